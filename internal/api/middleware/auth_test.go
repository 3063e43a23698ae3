package middleware_test

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supp-dex/instance-api/internal/api/middleware"
)

const (
	testIssuer   = "checker"
	testAudience = "supp-dex"
)

func generateKeyPair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func encodePublicKeyPEM(t *testing.T, pub any) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signToken(t *testing.T, priv ed25519.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	require.NoError(t, err)
	return token
}

func validClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		Subject:   "checker-bot",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

func TestParseVerifyKey(t *testing.T) {
	pub, _ := generateKeyPair(t)

	key, err := middleware.ParseVerifyKey(encodePublicKeyPEM(t, pub))
	require.NoError(t, err)
	assert.Equal(t, pub, key)

	_, err = middleware.ParseVerifyKey("not a pem block")
	assert.ErrorContains(t, err, "failed to parse PEM block")

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	_, err = middleware.ParseVerifyKey(encodePublicKeyPEM(t, &ecKey.PublicKey))
	assert.ErrorContains(t, err, "not an Ed25519 key")
}

func TestAuthenticate(t *testing.T) {
	pub, priv := generateKeyPair(t)
	_, wrongPriv := generateKeyPair(t)
	cfg := middleware.AuthConfig{VerifyKey: pub, Issuer: testIssuer, Audience: testAudience}

	tests := []struct {
		name        string
		header      string
		expectedErr string
	}{
		{
			name:   "valid token",
			header: "Bearer " + signToken(t, priv, validClaims()),
		},
		{
			name:        "missing header",
			header:      "",
			expectedErr: "missing Authorization header",
		},
		{
			name:        "wrong scheme",
			header:      "Basic dXNlcjpwYXNz",
			expectedErr: "expected Bearer token",
		},
		{
			name:        "wrong signing key",
			header:      "Bearer " + signToken(t, wrongPriv, validClaims()),
			expectedErr: "failed to parse token",
		},
		{
			name: "wrong issuer",
			header: "Bearer " + signToken(t, priv, func() jwt.RegisteredClaims {
				c := validClaims()
				c.Issuer = "someone-else"
				return c
			}()),
			expectedErr: "failed to parse token",
		},
		{
			name: "wrong audience",
			header: "Bearer " + signToken(t, priv, func() jwt.RegisteredClaims {
				c := validClaims()
				c.Audience = jwt.ClaimStrings{"other-service"}
				return c
			}()),
			expectedErr: "failed to parse token",
		},
		{
			name: "expired token",
			header: "Bearer " + signToken(t, priv, func() jwt.RegisteredClaims {
				c := validClaims()
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
				return c
			}()),
			expectedErr: "failed to parse token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := middleware.Authenticate(tt.header, cfg)
			if tt.expectedErr != "" {
				assert.False(t, result.Success)
				require.Error(t, result.Error)
				assert.Contains(t, result.Error.Error(), tt.expectedErr)
				return
			}
			assert.True(t, result.Success)
			require.NotNil(t, result.Claims)
			assert.Equal(t, "checker-bot", result.Claims.Subject)
		})
	}
}

func TestAuthenticate_NoVerifyKey(t *testing.T) {
	result := middleware.Authenticate("Bearer whatever", middleware.AuthConfig{})
	assert.False(t, result.Success)
	assert.ErrorContains(t, result.Error, "verification key not configured")
}

func TestAuth_Middleware(t *testing.T) {
	pub, priv := generateKeyPair(t)
	cfg := middleware.AuthConfig{VerifyKey: pub, Issuer: testIssuer, Audience: testAudience}

	router := gin.New()
	router.GET("/protected", middleware.Auth(cfg), func(c *gin.Context) {
		subject, _ := c.Get(middleware.JWT_SUBJECT_KEY)
		c.JSON(http.StatusOK, gin.H{"subject": subject})
	})

	// No token is rejected before the handler runs
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unauthorized")

	// A valid token passes through with the subject attached
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, priv, validClaims()))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "checker-bot")
}
