package services

import (
	"context"
	"net/http"
	"strings"

	"resumematch/scanner-web/internal/models"
)

const (
	registerPath      = "/api/auth/register"
	minPasswordLength = 8
)

type AccountService interface {
	Register(ctx context.Context, username, password string) (string, error)
}

type accountService struct {
	pipeline RequestPipeline
}

func NewAccountService(pipeline RequestPipeline) AccountService {
	return &accountService{pipeline: pipeline}
}

// ValidateRegistration checks the registration form before any network call.
func ValidateRegistration(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return newValidationError("username", "username is required")
	}
	if len([]rune(strings.TrimSpace(password))) < minPasswordLength {
		return newValidationError("password", "password must be at least 8 characters")
	}
	return nil
}

// Register implements AccountService and returns the server's message.
func (s *accountService) Register(ctx context.Context, username, password string) (string, error) {
	if err := ValidateRegistration(username, password); err != nil {
		return "", err
	}

	var payload any
	creds := models.Credentials{Username: username, Password: password}
	if err := s.pipeline.DoJSON(ctx, http.MethodPost, registerPath, creds, &payload); err != nil {
		return "", err
	}
	return ExtractMessage(payload, "registered"), nil
}
