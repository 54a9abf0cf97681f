// Package auth registers users, verifies credentials and mints the bearer
// tokens the API accepts. Passwords are stored as bcrypt hashes; sessions are
// stateless HS256 JWTs whose subject is the user id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// Users is the slice of the record store the service needs.
type Users interface {
	CreateUser(ctx context.Context, email, passwordHash string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
}

// Service issues and validates sessions.
type Service struct {
	users  Users
	secret []byte
	ttl    time.Duration
}

func NewService(users Users, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{users: users, secret: []byte(secret), ttl: ttl}
}

// Register creates a new user and returns it together with a fresh token.
func (s *Service) Register(ctx context.Context, email, password string) (store.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return store.User{}, "", ErrInvalidEmail
	}
	if len(password) < 8 {
		return store.User{}, "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		return store.User{}, "", err
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return store.User{}, "", err
	}
	return u, token, nil
}

// Login verifies the credentials and returns a fresh token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (store.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return store.User{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return store.User{}, "", err
	}
	return u, token, nil
}

func (s *Service) issueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature and expiry and returns the user id the token
// was issued for.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidCredentials
	}
	return claims.Subject, nil
}

type contextKey struct{}

// WithUser returns a context carrying the authenticated user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserFrom returns the authenticated user id, if any.
func UserFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
