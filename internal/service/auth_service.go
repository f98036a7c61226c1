package service

import (
	"context"
	"fmt"
	"log"

	"backend/internal/apperr"
	"backend/internal/auth"
	"backend/internal/mail"
	"backend/internal/repository"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RequestRestoreRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type RestoreAccountRequest struct {
	Token string `json:"token" binding:"required"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// PublicProfile is the subset of account data returned alongside a session
// token.
type PublicProfile struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	User        PublicProfile `json:"user"`
}

// AuthService implements sign-in and the two token-backed recovery flows:
// account restoration (for deactivated accounts) and password reset (for
// active ones). Both reuse the same restore-purpose token.
type AuthService interface {
	SignIn(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	RequestRestore(ctx context.Context, email string) error
	RestoreAccount(ctx context.Context, token string) (*UserResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type authService struct {
	userRepo    repository.UserRepository
	userService UserService
	tokens      *auth.TokenService
	hasher      *auth.PasswordHasher
	mailer      mail.Mailer
	baseURL     string
}

// NewAuthService returns a new instance of AuthService. baseURL is the
// frontend origin the restore/reset links point at.
func NewAuthService(
	userRepo repository.UserRepository,
	userService UserService,
	tokens *auth.TokenService,
	hasher *auth.PasswordHasher,
	mailer mail.Mailer,
	baseURL string,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		userService: userService,
		tokens:      tokens,
		hasher:      hasher,
		mailer:      mailer,
		baseURL:     baseURL,
	}
}

// SignIn verifies credentials and issues a session token. An unknown or
// inactive username and a wrong password fail identically so usernames
// cannot be enumerated.
func (s *authService) SignIn(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.GetActiveByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperr.ErrInvalidCredentials
	}

	if !s.hasher.Verify(user.Password, req.Password) {
		return nil, apperr.ErrInvalidCredentials
	}

	token, err := s.tokens.IssueSession(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &AuthResponse{
		AccessToken: token,
		User: PublicProfile{
			Username: user.Username,
			Role:     string(user.Role),
		},
	}, nil
}

// RequestRestore mails a restore link for a deactivated account. An active
// account cannot be restored, so it reports NotFound just like a missing one.
func (s *authService) RequestRestore(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil || user.IsActive {
		return fmt.Errorf("no deactivated account with that email: %w", apperr.ErrNotFound)
	}

	token, err := s.tokens.IssueRestore(user.ID)
	if err != nil {
		return fmt.Errorf("failed to generate restore token: %w", err)
	}

	link := s.baseURL + "/restore?token=" + token
	subject, body := mail.RestoreEmail(link)
	if err := s.mailer.Send(user.Email, subject, body); err != nil {
		// The token stays valid until it expires; only the request fails.
		return err
	}
	log.Printf("Restore email sent to %s", user.Email)
	return nil
}

// RestoreAccount consumes a restore token and reactivates its subject.
func (s *authService) RestoreAccount(ctx context.Context, token string) (*UserResponse, error) {
	subjectID, err := s.tokens.VerifyRestore(token)
	if err != nil {
		return nil, err
	}
	return s.userService.Restore(ctx, subjectID)
}

// RequestPasswordReset mails a reset link for an active account.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil || !user.IsActive {
		return fmt.Errorf("user not found or inactive: %w", apperr.ErrNotFound)
	}

	token, err := s.tokens.IssueRestore(user.ID)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	link := s.baseURL + "/reset-password?token=" + token
	subject, body := mail.ResetPasswordEmail(link)
	if err := s.mailer.Send(user.Email, subject, body); err != nil {
		return err
	}
	log.Printf("Password reset email sent to %s", user.Email)
	return nil
}

// ResetPassword consumes a restore token and replaces the subject's password.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("new password must be at least 8 characters: %w", apperr.ErrInvalidInput)
	}

	subjectID, err := s.tokens.VerifyRestore(token)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetActiveByID(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("user not found or inactive: %w", apperr.ErrNotFound)
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{"password": hashed})
}
