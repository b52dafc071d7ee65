package webpush

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateVAPIDKeys returns a fresh key pair in the base64url wire
// format the authenticator consumes, plus the parsed private key for
// verifying signatures.
func generateVAPIDKeys(t *testing.T) (string, string, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	d := make([]byte, 32)
	key.D.FillBytes(d)
	priv := base64.RawURLEncoding.EncodeToString(d)
	pub := base64.RawURLEncoding.EncodeToString(elliptic.Marshal(elliptic.P256(), key.X, key.Y))
	return priv, pub, key
}

func newTestAuthenticator(t *testing.T) (*Authenticator, *ecdsa.PrivateKey) {
	t.Helper()

	priv, pub, key := generateVAPIDKeys(t)
	a, err := NewAuthenticator("mailto:admin@example.com", priv, pub, 12*time.Hour, DefaultAudienceOverrides)
	require.NoError(t, err)
	return a, key
}

func parseToken(t *testing.T, token string, key *ecdsa.PrivateKey) jwt.MapClaims {
	t.Helper()

	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestAudienceFromEndpointOrigin(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	aud, err := a.Audience("https://fcm.googleapis.com/fcm/send/abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://fcm.googleapis.com", aud)

	aud, err = a.Audience("https://updates.push.services.mozilla.com/wpush/v2/xyz")
	require.NoError(t, err)
	assert.Equal(t, "https://updates.push.services.mozilla.com", aud)
}

func TestAudienceOverrideForICloud(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	aud, err := a.Audience("https://webpush.icloud.com/pubsubhubbub/devicetoken123")
	require.NoError(t, err)
	assert.Equal(t, "https://webpush.icloud.com", aud)
}

func TestAudienceInvalidEndpoint(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	_, err := a.Audience("not-a-url")
	assert.Error(t, err)
}

func TestTokenClaims(t *testing.T) {
	a, key := newTestAuthenticator(t)

	token, err := a.Token("https://fcm.googleapis.com/fcm/send/abc123")
	require.NoError(t, err)

	claims := parseToken(t, token, key)
	assert.Equal(t, "https://fcm.googleapis.com", claims["aud"])
	assert.Equal(t, "mailto:admin@example.com", claims["sub"])

	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	assert.Greater(t, exp, float64(time.Now().Unix()))
	assert.LessOrEqual(t, exp, float64(time.Now().Add(12*time.Hour+time.Minute).Unix()))
}

func TestTokenAudienceOverride(t *testing.T) {
	a, key := newTestAuthenticator(t)

	token, err := a.Token("https://webpush.icloud.com/pubsubhubbub/devicetoken123")
	require.NoError(t, err)

	claims := parseToken(t, token, key)
	assert.Equal(t, "https://webpush.icloud.com", claims["aud"])
}

func TestFreshTokenPerCall(t *testing.T) {
	a, key := newTestAuthenticator(t)

	first, err := a.Token("https://fcm.googleapis.com/fcm/send/abc")
	require.NoError(t, err)
	second, err := a.Token("https://fcm.googleapis.com/fcm/send/abc")
	require.NoError(t, err)

	// ES256 signatures are randomized, so two tokens over the same
	// claims never match.
	assert.NotEqual(t, first, second)
	parseToken(t, first, key)
	parseToken(t, second, key)
}

func TestAuthorizationHeaderFormat(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	header, err := a.AuthorizationHeader("https://fcm.googleapis.com/fcm/send/abc")
	require.NoError(t, err)
	assert.Regexp(t, `^vapid t=[A-Za-z0-9_.-]+, k=[A-Za-z0-9_-]+$`, header)
}

func TestSubscriberGetsMailtoPrefix(t *testing.T) {
	priv, pub, key := generateVAPIDKeys(t)
	a, err := NewAuthenticator("admin@example.com", priv, pub, time.Hour, nil)
	require.NoError(t, err)

	token, err := a.Token("https://example.com/push/1")
	require.NoError(t, err)
	claims := parseToken(t, token, key)
	assert.Equal(t, "mailto:admin@example.com", claims["sub"])
}

func TestNewAuthenticatorRejectsBadKeys(t *testing.T) {
	_, pub, _ := generateVAPIDKeys(t)

	_, err := NewAuthenticator("mailto:a@b.c", "short", pub, time.Hour, nil)
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	priv, _, _ := generateVAPIDKeys(t)
	_, err = NewAuthenticator("mailto:a@b.c", priv, "not-a-point", time.Hour, nil)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}
