package webpush

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidPrivateKey = errors.New("invalid VAPID private key")
	ErrInvalidPublicKey  = errors.New("invalid VAPID public key")
)

// AudienceOverride substitutes a fixed audience for endpoints whose host
// contains the given substring. Some push services (Apple's in
// particular) reject tokens whose audience is not exactly their
// documented origin.
type AudienceOverride struct {
	HostContains string
	Audience     string
}

// DefaultAudienceOverrides covers the push services known to need a
// fixed audience instead of the endpoint-derived origin.
var DefaultAudienceOverrides = []AudienceOverride{
	{HostContains: "webpush.icloud.com", Audience: "https://webpush.icloud.com"},
}

// Authenticator builds the signed VAPID token for a target endpoint.
// Tokens are cheap to produce and each destination's audience may
// differ, so a fresh one is generated per delivery.
type Authenticator struct {
	subscriber string
	privateKey *ecdsa.PrivateKey
	publicKey  string
	tokenTTL   time.Duration
	overrides  []AudienceOverride
}

// NewAuthenticator parses the base64url-encoded key pair. The private
// key is the raw 32-byte P-256 scalar, the public key the raw 65-byte
// uncompressed point, as produced by the usual VAPID key generators.
func NewAuthenticator(subscriber, privateKey, publicKey string, tokenTTL time.Duration, overrides []AudienceOverride) (*Authenticator, error) {
	priv, err := decodePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	pub, err := decodeKey(publicKey)
	if err != nil || len(pub) != 65 || pub[0] != 4 {
		return nil, ErrInvalidPublicKey
	}

	if !strings.Contains(subscriber, ":") && strings.Contains(subscriber, "@") {
		subscriber = "mailto:" + subscriber
	}

	return &Authenticator{
		subscriber: subscriber,
		privateKey: priv,
		publicKey:  publicKey,
		tokenTTL:   tokenTTL,
		overrides:  overrides,
	}, nil
}

// PublicKey returns the base64url public key as sent in the k= parameter
// and exposed to browsers for subscription.
func (a *Authenticator) PublicKey() string {
	return a.publicKey
}

// Audience derives the claim audience for an endpoint: the first
// matching override, otherwise the endpoint's own origin.
func (a *Authenticator) Audience(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint has no origin: %s", endpoint)
	}

	for _, o := range a.overrides {
		if strings.Contains(u.Host, o.HostContains) {
			return o.Audience, nil
		}
	}
	return u.Scheme + "://" + u.Host, nil
}

// Token signs a short-lived ES256 token scoped to the endpoint's
// audience.
func (a *Authenticator) Token(endpoint string) (string, error) {
	aud, err := a.Audience(endpoint)
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"aud": aud,
		"exp": jwt.NewNumericDate(time.Now().Add(a.tokenTTL)),
		"sub": a.subscriber,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(a.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign VAPID token: %w", err)
	}
	return token, nil
}

// AuthorizationHeader builds the full header value for one delivery.
func (a *Authenticator) AuthorizationHeader(endpoint string) (string, error) {
	token, err := a.Token(endpoint)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("vapid t=%s, k=%s", token, a.publicKey), nil
}

func decodePrivateKey(key string) (*ecdsa.PrivateKey, error) {
	raw, err := decodeKey(key)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidPrivateKey
	}

	curve := elliptic.P256()
	priv := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve},
		D:         new(big.Int).SetBytes(raw),
	}
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(raw)
	if priv.PublicKey.X == nil {
		return nil, ErrInvalidPrivateKey
	}
	return priv, nil
}

// decodeKey accepts both base64url and standard base64, padded or not,
// since browsers and key generators are inconsistent about it.
func decodeKey(key string) ([]byte, error) {
	key = strings.TrimRight(key, "=")
	if raw, err := base64.RawURLEncoding.DecodeString(key); err == nil {
		return raw, nil
	}
	return base64.RawStdEncoding.DecodeString(key)
}
