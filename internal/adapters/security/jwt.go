package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
	"github.com/terraregistry/auth-service/internal/ports"
)

// JWTCodec implements HS256 token signing/parsing for auth sessions.
// The shared secret is held at adapter level so the application layer stays
// crypto-library agnostic.
type JWTCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTCodec builds a codec from the configured shared secret and lifetimes.
func NewJWTCodec(secret string, accessTTL, refreshTTL time.Duration) (*JWTCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt signing secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &JWTCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

type accessJWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type refreshJWTClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func (c *JWTCodec) IssuePair(user domain.User, now time.Time) (ports.TokenPair, error) {
	accessExpiry := now.Add(c.accessTTL)
	refreshExpiry := now.Add(c.refreshTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, accessJWTClaims{
		UserID: user.UserID.String(),
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
	})
	accessToken, err := access.SignedString(c.secret)
	if err != nil {
		return ports.TokenPair{}, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshJWTClaims{
		UserID: user.UserID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExpiry),
		},
	})
	refreshToken, err := refresh.SignedString(c.secret)
	if err != nil {
		return ports.TokenPair{}, err
	}

	return ports.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiry.UTC(),
		RefreshExpiresAt: refreshExpiry.UTC(),
	}, nil
}

func (c *JWTCodec) VerifyAccessToken(raw string) (ports.AccessClaims, error) {
	parsed, err := c.parse(raw, &accessJWTClaims{})
	if err != nil {
		return ports.AccessClaims{}, domain.ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*accessJWTClaims)
	if !ok || !parsed.Valid {
		return ports.AccessClaims{}, domain.ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return ports.AccessClaims{}, domain.ErrInvalidToken
	}
	return ports.AccessClaims{
		UserID: userID,
		Email:  claims.Email,
		Role:   domain.Role(claims.Role),
	}, nil
}

func (c *JWTCodec) VerifyRefreshToken(raw string) (ports.RefreshClaims, error) {
	parsed, err := c.parse(raw, &refreshJWTClaims{})
	if err != nil {
		return ports.RefreshClaims{}, domain.ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*refreshJWTClaims)
	if !ok || !parsed.Valid {
		return ports.RefreshClaims{}, domain.ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return ports.RefreshClaims{}, domain.ErrInvalidToken
	}
	return ports.RefreshClaims{UserID: userID}, nil
}

// HashToken derives the deterministic digest used as a session lookup key so
// raw bearer values never reach the persistence layer.
func (c *JWTCodec) HashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

func (c *JWTCodec) parse(raw string, claims jwt.Claims) (*jwt.Token, error) {
	return jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
}
