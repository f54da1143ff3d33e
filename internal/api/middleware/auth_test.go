package middleware_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/api/middleware"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

// newKeyPair returns an RSA private key and its PEM-encoded public key
func newKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	})
	return key, string(pemBytes)
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAuthenticateAPIKey(t *testing.T) {
	cfg := middleware.AuthConfig{APIKeys: []string{"key-one", "key-two"}}

	t.Run("valid key", func(t *testing.T) {
		result := middleware.Authenticate("ApiKey key-one", cfg)
		assert.True(t, result.Success)
		assert.Equal(t, "apikey", result.AuthType)
	})

	t.Run("invalid key", func(t *testing.T) {
		result := middleware.Authenticate("ApiKey wrong", cfg)
		assert.False(t, result.Success)
		assert.Error(t, result.Error)
	})

	t.Run("no keys configured", func(t *testing.T) {
		result := middleware.Authenticate("ApiKey key-one", middleware.AuthConfig{})
		assert.False(t, result.Success)
	})
}

func TestAuthenticateJWT(t *testing.T) {
	key, publicPEM := newKeyPair(t)
	cfg := middleware.AuthConfig{JWTPublicKey: publicPEM}

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, key, jwt.RegisteredClaims{
			Subject:   "operator",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		result := middleware.Authenticate("Bearer "+token, cfg)
		assert.True(t, result.Success)
		assert.Equal(t, "jwt", result.AuthType)
		assert.Equal(t, "operator", result.AuthSubject)
		require.NotNil(t, result.Claims)
		assert.Equal(t, "operator", result.Claims.Subject)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, key, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		})

		result := middleware.Authenticate("Bearer "+token, cfg)
		assert.False(t, result.Success)
	})

	t.Run("token signed by another key", func(t *testing.T) {
		otherKey, _ := newKeyPair(t)
		token := signToken(t, otherKey, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		result := middleware.Authenticate("Bearer "+token, cfg)
		assert.False(t, result.Success)
	})

	t.Run("no public key configured", func(t *testing.T) {
		token := signToken(t, key, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		result := middleware.Authenticate("Bearer "+token, middleware.AuthConfig{})
		assert.False(t, result.Success)
	})
}

func TestAuthenticateHeaderFormats(t *testing.T) {
	cfg := middleware.AuthConfig{APIKeys: []string{"key-one"}}

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "no credentials", header: "ApiKey"},
		{name: "unsupported scheme", header: "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := middleware.Authenticate(tt.header, cfg)
			assert.False(t, result.Success)
			assert.Error(t, result.Error)
		})
	}
}
