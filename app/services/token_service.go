// Package services provides external service integrations and technical concerns like notifications, storage and tokens
package services

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/vetverify/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// TokenService verifies access tokens issued by the identity provider
type TokenService interface {
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
	RevokeToken(ctx context.Context, claims *TokenClaims) error
	IsTokenRevoked(ctx context.Context, tokenID string) bool
}

// TokenClaims represents the claims the API relies on
type TokenClaims struct {
	AccountUUID uuid.UUID   `json:"sub"`
	Role        models.Role `json:"role"`
	Email       string      `json:"email"`
	TokenType   string      `json:"token_type"`
	TokenID     string      `json:"jti"`
	IssuedAt    time.Time   `json:"issued_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// IsAdmin reports whether the token belongs to an admin
func (c *TokenClaims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

type identityClaims struct {
	Role      string `json:"role"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenServiceImpl implements TokenService
type TokenServiceImpl struct {
	publicKey  *rsa.PublicKey
	secretKey  []byte
	useRSAKeys bool
	issuer     string
	audience   string
	leeway     time.Duration
	rc         *redis.Client
	prefix     string
}

// NewTokenService creates a token verifier. rc may be nil, in which case revocation is disabled.
func NewTokenService(issuer, audience string, leeway time.Duration, useRSAKeys bool, publicKeyPEM, secretKey string, rc *redis.Client, prefix string) (TokenService, error) {
	s := &TokenServiceImpl{
		useRSAKeys: useRSAKeys,
		issuer:     issuer,
		audience:   audience,
		leeway:     leeway,
		rc:         rc,
		prefix:     prefix,
	}

	if useRSAKeys {
		publicKey, err := parseRSAPublicKey(publicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		s.publicKey = publicKey
	} else {
		if secretKey == "" {
			return nil, fmt.Errorf("secret key is required when not using RSA keys")
		}
		s.secretKey = []byte(secretKey)
	}

	return s, nil
}

// parseRSAPublicKey parses an RSA public key from PEM format
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	if publicKeyPEM == "" {
		return nil, fmt.Errorf("public key is required")
	}

	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("failed to decode public key")
	}

	publicKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPublicKey, ok := publicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA")
	}

	return rsaPublicKey, nil
}

func (s *TokenServiceImpl) keyFunc(token *jwt.Token) (any, error) {
	if s.useRSAKeys {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.publicKey, nil
	}
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secretKey, nil
}

// ValidateToken validates a JWT token and returns claims
func (s *TokenServiceImpl) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired(), jwt.WithLeeway(s.leeway)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	var claims identityClaims
	parsedToken, err := jwt.ParseWithClaims(token, &claims, s.keyFunc, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.TokenType != "" && claims.TokenType != "access" {
		return nil, ErrTokenInvalid
	}

	accountUUID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	role := models.Role(claims.Role)
	if !role.IsValid() {
		return nil, ErrTokenInvalid
	}

	if claims.ID != "" && s.IsTokenRevoked(ctx, claims.ID) {
		return nil, ErrTokenRevoked
	}

	out := &TokenClaims{
		AccountUUID: accountUUID,
		Role:        role,
		Email:       claims.Email,
		TokenType:   "access",
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func (s *TokenServiceImpl) revokedKey(tokenID string) string {
	return s.prefix + "revoked_token:" + tokenID
}

// RevokeToken stores the token id until the token would expire anyway
func (s *TokenServiceImpl) RevokeToken(ctx context.Context, claims *TokenClaims) error {
	if s.rc == nil {
		return fmt.Errorf("token revocation requires redis")
	}
	if claims == nil || claims.TokenID == "" {
		return ErrTokenInvalid
	}
	ttl := time.Until(claims.ExpiresAt) + s.leeway
	if ttl <= 0 {
		return nil
	}
	if err := s.rc.Set(ctx, s.revokedKey(claims.TokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked checks the revocation list. Lookup errors count as not revoked.
func (s *TokenServiceImpl) IsTokenRevoked(ctx context.Context, tokenID string) bool {
	if s.rc == nil || tokenID == "" {
		return false
	}
	n, err := s.rc.Exists(ctx, s.revokedKey(tokenID)).Result()
	return err == nil && n > 0
}
