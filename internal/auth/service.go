package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"binance-monitor/internal/database"
)

var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrUserExists     = errors.New("username already taken")
)

// UserStore is the cb_user persistence the service needs.
type UserStore interface {
	GetUser(ctx context.Context, username string) (*database.User, error)
	CreateUser(ctx context.Context, u database.User) error
	SaveBearerToken(ctx context.Context, username, token string, validity int64) error
}

// Service handles login, registration and bearer-token checks. Tokens
// live in the cache with a database backfill, so a restarted process
// keeps accepting tokens it issued earlier.
type Service struct {
	store UserStore
	jwt   *JWTManager
	cache TokenCache
	log   zerolog.Logger
}

// NewService wires the service together.
func NewService(store UserStore, jwt *JWTManager, cache TokenCache, logger zerolog.Logger) *Service {
	return &Service{
		store: store,
		jwt:   jwt,
		cache: cache,
		log:   logger.With().Str("component", "auth").Logger(),
	}
}

// Login verifies the password digest and returns a fresh bearer token.
func (s *Service) Login(ctx context.Context, username, digest string) (string, error) {
	user, err := s.store.GetUser(ctx, username)
	if errors.Is(err, database.ErrUserNotFound) {
		return "", ErrBadCredentials
	}
	if err != nil {
		return "", err
	}
	if !CheckPassword(user.PasswordHash, digest) {
		return "", ErrBadCredentials
	}

	token, expiresAt, err := s.jwt.Issue(UserClaims{
		Username: username,
		Role:     user.Role,
		HashUsed: digest,
	})
	if err != nil {
		return "", err
	}

	ttl := time.Until(expiresAt)
	if err := s.cache.Save(ctx, token, username, ttl); err != nil {
		s.log.Error().Err(err).Msg("token cache save failed")
	}
	if err := s.store.SaveBearerToken(ctx, username, token, expiresAt.Unix()); err != nil {
		s.log.Error().Err(err).Msg("token persist failed")
	}
	return token, nil
}

// Register creates a user from a password digest.
func (s *Service) Register(ctx context.Context, username, digest string) error {
	if _, err := s.store.GetUser(ctx, username); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return err
	}

	hash, err := HashPassword(digest)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateUser(ctx, database.User{Username: username, PasswordHash: hash})
}

// Authorize checks a bearer token and returns its claims. Tokens absent
// from the cache are backfilled from the user row when they still
// match.
func (s *Service) Authorize(ctx context.Context, token string) (*UserClaims, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return nil, err
	}

	if _, ok := s.cache.Lookup(ctx, token); ok {
		return claims, nil
	}

	user, err := s.store.GetUser(ctx, claims.Username)
	if err != nil || user.BearerToken != token {
		return nil, ErrInvalidToken
	}
	ttl := time.Until(time.Unix(user.Validity, 0))
	if ttl > 0 {
		if err := s.cache.Save(ctx, token, claims.Username, ttl); err != nil {
			s.log.Error().Err(err).Msg("token cache backfill failed")
		}
	}
	return claims, nil
}
