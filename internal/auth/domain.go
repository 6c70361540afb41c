package auth

import (
	"fmt"
	"time"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Role values stored on users.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an authenticated user account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PasswordReset is a pending one-time reset token. Only the SHA-256 of
// the token is stored.
type PasswordReset struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
}

// Session is returned by login and register.
type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
}

type TokenInput struct {
	Token string `json:"token" validate:"required"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", httpx.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", httpx.ErrUnauthorized)
	ErrRegistrationClosed = fmt.Errorf("%w: registration is disabled", httpx.ErrForbidden)
	ErrUsernameTaken      = fmt.Errorf("%w: username already exists", httpx.ErrDuplicate)
	ErrEmailTaken         = fmt.Errorf("%w: email already exists", httpx.ErrDuplicate)
	ErrInvalidResetToken  = fmt.Errorf("%w: reset token is invalid or expired", httpx.ErrValidation)
	ErrUserNotFound       = fmt.Errorf("%w: user", httpx.ErrNotFound)
)
