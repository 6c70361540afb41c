package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// SettingsPort reports whether self-registration is open.
type SettingsPort interface {
	RegistrationEnabled(ctx context.Context) (bool, error)
}

// MailPort delivers password reset tokens.
type MailPort interface {
	SendPasswordReset(ctx context.Context, email, name, token string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	tokens   *Tokens
	settings SettingsPort
	mail     MailPort
	resetTTL time.Duration
	cost     int
	now      func() time.Time
}

// NewService constructs a new Service. settings and mail may be nil:
// registration is then closed and reset tokens are stored without being
// mailed.
func NewService(repo Repository, tokens *Tokens, settings SettingsPort, mail MailPort, resetTTL time.Duration) *Service {
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &Service{
		repo:     repo,
		tokens:   tokens,
		settings: settings,
		mail:     mail,
		resetTTL: resetTTL,
		cost:     bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Login validates username/password credentials and issues a token.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	if err := httpx.Validate(in); err != nil {
		return Session{}, err
	}
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(in.Username))
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(*user)
}

// Register creates a user account when registration is enabled.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := httpx.Validate(in); err != nil {
		return Session{}, err
	}
	if s.settings == nil {
		return Session{}, ErrRegistrationClosed
	}
	open, err := s.settings.RegistrationEnabled(ctx)
	if err != nil {
		return Session{}, err
	}
	if !open {
		return Session{}, ErrRegistrationClosed
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Session{}, err
	}
	now := s.now()
	user := User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		Role:         RoleUser,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return Session{}, err
	}
	return s.session(user)
}

// Verify resolves the user behind a token.
func (s *Service) Verify(ctx context.Context, raw string) (User, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.FindByID(ctx, claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidToken
	}
	if err != nil {
		return User{}, err
	}
	if !user.IsActive {
		return User{}, ErrInvalidToken
	}
	return *user, nil
}

// ForgotPassword issues a reset token for email. Unknown addresses succeed
// silently.
func (s *Service) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	in.Email = strings.TrimSpace(in.Email)
	if err := httpx.Validate(in); err != nil {
		return err
	}
	user, err := s.repo.FindByEmail(ctx, in.Email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}
	token := uuid.NewString()
	reset := PasswordReset{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.repo.CreateReset(ctx, reset); err != nil {
		return err
	}
	if s.mail == nil {
		return nil
	}
	return s.mail.SendPasswordReset(ctx, user.Email, user.Name, token)
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := httpx.Validate(in); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return err
	}
	return s.repo.ResetPassword(ctx, hashToken(strings.TrimSpace(in.Token)), s.now(), string(hash))
}

func (s *Service) session(user User) (Session, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token, ExpiresAt: expires}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
