package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	userDatamodel "github.com/waynecorp/project-registry/internal/core/datamodel/user"
)

type Repository interface {
	FindUserByUsername(username string) (*userDatamodel.User, error)
}

// Service verifies credentials against the user table and issues access
// tokens. It is the only component that ever sees a password.
type Service struct {
	repo   Repository
	tokens *JWTTokenGenerator
	logger *slog.Logger
}

func NewService(repo Repository, tokens *JWTTokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		logger: logger,
	}
}

// Verify authenticates a username/password pair. An unknown username and a
// wrong password both come back as ErrInvalidCredentials so the response
// does not reveal which usernames exist.
func (s *Service) Verify(username, password string) (*User, error) {
	row, err := s.repo.FindUserByUsername(username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("credential lookup failed", "error", err)
		return nil, fmt.Errorf("credential lookup: %w", err)
	}

	if err := VerifyPassword(row.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return fromRow(row), nil
}

// Login validates the DTO, verifies the credentials and issues an access
// token for subsequent requests.
func (s *Service) Login(dto LoginDTO) (*User, string, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	user, err := s.Verify(dto.Username, dto.Password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("token generation failed", "error", err, "username", user.Username)
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	return user, token, nil
}

// AuthenticateBearer resolves a bearer token to a user. Two shapes are
// accepted: a signed access token issued by Login, and the legacy
// base64(username:password) form kept for wire compatibility with
// existing callers.
func (s *Service) AuthenticateBearer(token string) (*User, error) {
	if token == "" {
		return nil, ErrMalformedBearer
	}

	// Signed tokens always carry two dots; the legacy form never does.
	if strings.Count(token, ".") == 2 {
		return s.authenticateAccessToken(token)
	}

	username, password, err := decodeBasicCredentials(token)
	if err != nil {
		return nil, err
	}
	return s.Verify(username, password)
}

func (s *Service) authenticateAccessToken(token string) (*User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.FindUserByUsername(claims.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("token subject lookup failed", "error", err)
		return nil, fmt.Errorf("token subject lookup: %w", err)
	}

	return fromRow(row), nil
}

func decodeBasicCredentials(token string) (string, string, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", "", ErrMalformedBearer
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", ErrMalformedBearer
	}
	return parts[0], parts[1], nil
}

func fromRow(row *userDatamodel.User) *User {
	return &User{
		ID:          row.ID,
		Username:    row.Username,
		DisplayName: row.DisplayName,
		Role:        Role(row.Role),
		CreatedAt:   row.CreatedAt,
	}
}
