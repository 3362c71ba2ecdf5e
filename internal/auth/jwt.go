// Package auth issues and checks the control plane's bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// UserClaims is the application part of a token.
type UserClaims struct {
	Username string `json:"username"`
	Role     int    `json:"user_role"`
	HashUsed string `json:"hash_used"`
}

// Claims is the full JWT payload.
type Claims struct {
	UserClaims
	jwt.RegisteredClaims
}

// JWTManager signs and validates HS256 tokens.
type JWTManager struct {
	secret   []byte
	validity time.Duration
}

// NewJWTManager returns a manager signing with secret.
func NewJWTManager(secret string, validity time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), validity: validity}
}

// Issue signs a token for the user and returns it with its expiry.
func (m *JWTManager) Issue(claims UserClaims) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.validity)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserClaims: claims,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "binance-monitor",
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate checks the signature and expiry and returns the claims.
func (m *JWTManager) Validate(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &claims.UserClaims, nil
}
