package middleware

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/supp-dex/instance-api/internal/api/apierrors"
	"github.com/supp-dex/instance-api/internal/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	JWT_CLAIMS_KEY  contextKey = "jwt_claims"
	JWT_SUBJECT_KEY contextKey = "jwt_subject"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	VerifyKey ed25519.PublicKey // checker verification key
	Issuer    string            // expected iss claim
	Audience  string            // expected aud claim
}

// AuthResult holds the result of authentication
type AuthResult struct {
	Success bool
	Claims  *jwt.RegisteredClaims
	Error   error
}

// ParseVerifyKey parses an Ed25519 public key from SPKI PEM format
func ParseVerifyKey(publicKeyPEM string) (ed25519.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	edKey, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an Ed25519 key")
	}

	return edKey, nil
}

// Authenticate validates the Authorization header and returns the result.
// Reusable outside the gin middleware for testing.
func Authenticate(authHeader string, cfg AuthConfig) AuthResult {
	result := AuthResult{Success: false}

	if len(cfg.VerifyKey) == 0 {
		result.Error = errors.New("verification key not configured")
		return result
	}

	if authHeader == "" {
		result.Error = errors.New("missing Authorization header")
		return result
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		result.Error = errors.New("invalid Authorization header format, expected Bearer token")
		return result
	}

	claims, err := validateJWT(parts[1], cfg)
	if err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	result.Claims = claims
	return result
}

// Auth returns a gin middleware enforcing bearer token authentication. The
// request is rejected with 401 before reaching any handler side effects.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := Authenticate(c.GetHeader("Authorization"), cfg)

		if !result.Success {
			logger.Warn("Authentication failed",
				zap.Error(result.Error),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			apiErr := apierrors.NewUnauthorizedError("Authentication failed", result.Error.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiErr)
			return
		}

		c.Set(JWT_CLAIMS_KEY, result.Claims)
		if result.Claims.Subject != "" {
			c.Set(JWT_SUBJECT_KEY, result.Claims.Subject)
		}

		c.Next()
	}
}

// validateJWT verifies an EdDSA-signed token against the fixed verification
// key, issuer and audience
func validateJWT(tokenString string, cfg AuthConfig) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.VerifyKey, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
