package webpush

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	recordSize    = 4096
	maxPlaintext  = recordSize - 16 - 1 // AEAD tag and padding delimiter
	keyInfoPrefix = "WebPush: info\x00"
	cekInfo       = "Content-Encoding: aes128gcm\x00"
	nonceInfo     = "Content-Encoding: nonce\x00"
)

var ErrPayloadTooLarge = errors.New("payload exceeds a single encryption record")

// Encrypt seals the message for a subscription's key material using the
// aes128gcm content encoding (RFC 8291). The output carries its own
// header (salt, record size, sender public key) followed by a single
// encrypted record.
func Encrypt(message []byte, p256dh, auth string) ([]byte, error) {
	if len(message) > maxPlaintext {
		return nil, ErrPayloadTooLarge
	}

	clientPub, err := decodeKey(p256dh)
	if err != nil {
		return nil, fmt.Errorf("invalid p256dh key: %w", err)
	}
	authSecret, err := decodeKey(auth)
	if err != nil {
		return nil, fmt.Errorf("invalid auth secret: %w", err)
	}

	remote, err := ecdh.P256().NewPublicKey(clientPub)
	if err != nil {
		return nil, fmt.Errorf("invalid p256dh key: %w", err)
	}
	local, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	shared, err := local.ECDH(remote)
	if err != nil {
		return nil, fmt.Errorf("ECDH agreement failed: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	localPub := local.PublicKey().Bytes()

	// IKM = HKDF(auth, ecdh_secret, "WebPush: info" || 0x00 || ua_public || as_public)
	keyInfo := make([]byte, 0, len(keyInfoPrefix)+len(clientPub)+len(localPub))
	keyInfo = append(keyInfo, keyInfoPrefix...)
	keyInfo = append(keyInfo, clientPub...)
	keyInfo = append(keyInfo, localPub...)

	ikm := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, authSecret, keyInfo), ikm); err != nil {
		return nil, fmt.Errorf("failed to derive IKM: %w", err)
	}

	cek := make([]byte, 16)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte(cekInfo)), cek); err != nil {
		return nil, fmt.Errorf("failed to derive CEK: %w", err)
	}
	nonce := make([]byte, 12)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte(nonceInfo)), nonce); err != nil {
		return nil, fmt.Errorf("failed to derive nonce: %w", err)
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	// Single record: plaintext, then 0x02 marking the final record.
	plaintext := make([]byte, 0, len(message)+1)
	plaintext = append(plaintext, message...)
	plaintext = append(plaintext, 0x02)

	var buf bytes.Buffer
	buf.Write(salt)
	binary.Write(&buf, binary.BigEndian, uint32(recordSize))
	buf.WriteByte(byte(len(localPub)))
	buf.Write(localPub)
	buf.Write(gcm.Seal(nil, nonce, plaintext, nil))

	return buf.Bytes(), nil
}
