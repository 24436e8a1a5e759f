// Package service exchanges provisioned API tokens for short-lived JWTs and
// validates those JWTs for the request middleware.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/user"
)

// Access tokens are short-lived; the API token in the user's keychain is the
// long-lived credential.
const defaultAccessTTL = 1 * time.Hour

// Store is the persistence surface the service needs.
type Store interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	Create(ctx context.Context, u *user.User) error
	UpdateToken(ctx context.Context, id uuid.UUID, tokenHash string) error
}

// Claims is the JWT payload: the account id in the subject plus the e-mail
// for log correlation.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Service struct {
	store  Store
	secret []byte
	ttl    time.Duration
	logger *slog.Logger

	now func() time.Time
}

func New(store Store, secret []byte, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		secret: secret,
		ttl:    defaultAccessTTL,
		logger: logger,
		now:    time.Now,
	}
}

// Authenticate checks an e-mail/API-token pair against the stored bcrypt
// hash. A missing account and a wrong token both come back as
// ErrInvalidCredentials so the response does not reveal which e-mails exist.
func (s *Service) Authenticate(ctx context.Context, email, apiToken string) (*user.User, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return nil, user.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.TokenHash), []byte(apiToken)) != nil {
		return nil, user.ErrInvalidCredentials
	}
	return u, nil
}

// IssueJWT signs a bearer token for an authenticated account.
func (s *Service) IssueJWT(u *user.User) (string, time.Time, error) {
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	claims := Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// ValidateJWT parses a bearer token and returns the account id it names.
func (s *Service) ValidateJWT(tokenString string) (uuid.UUID, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse token: %w", err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not an account id: %w", err)
	}
	return id, nil
}

// Seed provisions an account with a fresh API token, or rotates the token
// when the e-mail is already registered. The plaintext token is returned
// exactly once; only its bcrypt hash is stored.
func (s *Service) Seed(ctx context.Context, email, displayName string) (string, *user.User, error) {
	token, err := newAPIToken()
	if err != nil {
		return "", nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash token: %w", err)
	}

	existing, err := s.store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.store.UpdateToken(ctx, existing.ID, string(hash)); err != nil {
			return "", nil, err
		}
		existing.TokenHash = string(hash)
		s.logger.Info("api token rotated", slog.String("email", email))
		return token, existing, nil
	case errors.Is(err, user.ErrNotFound):
		u := &user.User{Email: email, DisplayName: displayName, TokenHash: string(hash)}
		if err := s.store.Create(ctx, u); err != nil {
			return "", nil, err
		}
		s.logger.Info("account provisioned", slog.String("email", email))
		return token, u, nil
	default:
		return "", nil, err
	}
}

func newAPIToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
