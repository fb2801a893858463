package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/auth"
)

// AuthService handles the login stub and session tokens
type AuthService struct {
	directory *auth.Directory
	tokens    *auth.TokenManager
	registry  *RegistryService
	ttl       time.Duration
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	directory *auth.Directory,
	tokens *auth.TokenManager,
	registry *RegistryService,
	ttl time.Duration,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		directory: directory,
		tokens:    tokens,
		registry:  registry,
		ttl:       ttl,
		logger:    logger,
	}
}

// LoginResult represents login response
type LoginResult struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresIn int         `json:"expires_in"` // seconds
	TokenType string      `json:"token_type"`
	Warning   string      `json:"warning,omitempty"`
}

// Login resolves the identity, makes it the current user and issues a token.
// There is no credential check; the role is chosen by the caller.
func (s *AuthService) Login(ctx context.Context, req auth.LoginRequest) (*LoginResult, error) {
	user, err := s.directory.Resolve(req)
	if err != nil {
		s.logger.Info("login rejected", slog.String("error", err.Error()))
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user, s.ttl)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, errors.New("failed to generate token")
	}

	warning := s.registry.StartSession(ctx, user)

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return &LoginResult{
		User:      user,
		Token:     token,
		ExpiresIn: int(s.ttl.Seconds()),
		TokenType: "Bearer",
		Warning:   warning,
	}, nil
}

// Logout ends the session for user. Tokens are stateless and simply expire.
func (s *AuthService) Logout(ctx context.Context, user *domain.User) (string, error) {
	if user == nil {
		return "", domain.ErrNoSession
	}
	return s.registry.EndSession(ctx, *user), nil
}

// VerifyToken verifies and parses a session token
func (s *AuthService) VerifyToken(tokenString string) (*domain.User, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user := claims.User()
	return &user, nil
}
