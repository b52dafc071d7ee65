package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/giftnotify/push-api/pkg/auth"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Service authenticates the single admin identity configured at process
// start and issues bearer tokens for the dashboard endpoints.
type Service struct {
	username     string
	passwordHash string
	tokens       auth.TokenService
}

func NewService(username, passwordHash string, tokens auth.TokenService) *Service {
	return &Service{
		username:     username,
		passwordHash: passwordHash,
		tokens:       tokens,
	}
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if username != s.username {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(username)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}
