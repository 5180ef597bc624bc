// Package tokens issues and verifies the signed credential pair used for
// sessions: a short-lived access token and a long-lived refresh token,
// signed with distinct secrets.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single failure outcome of verification. Signature
// mismatch, expiry, and malformed input all collapse into it; callers never
// branch on the cause.
var ErrInvalidToken = errors.New("invalid token")

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Config carries the signing secrets and lifetimes for both credentials.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Service mints and verifies the credential pair. It is stateless; a token
// is a pure function of the user ID, the clock, and the secret.
type Service struct {
	cfg Config
}

func NewService(cfg Config) (*Service, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("tokens: access secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("tokens: refresh secret is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &Service{cfg: cfg}, nil
}

func (s *Service) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *Service) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

// MintAccess creates a signed access token bound to userID.
func (s *Service) MintAccess(userID string) (string, error) {
	return mint(userID, s.cfg.AccessSecret, s.cfg.AccessTTL)
}

// MintRefresh creates a signed refresh token bound to userID.
func (s *Service) MintRefresh(userID string) (string, error) {
	return mint(userID, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
}

// VerifyAccess returns the user ID bound to an access token, or
// ErrInvalidToken.
func (s *Service) VerifyAccess(token string) (string, error) {
	return verify(token, s.cfg.AccessSecret)
}

// VerifyRefresh returns the user ID bound to a refresh token, or
// ErrInvalidToken.
func (s *Service) VerifyRefresh(token string) (string, error) {
	return verify(token, s.cfg.RefreshSecret)
}

func mint(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId": userID,
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func verify(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["userId"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}
