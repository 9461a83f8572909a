package domain

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenInvalid       = errors.New("password reset is invalid or has expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
)

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`

	// ResetPasswordToken holds the SHA-256 hex of the emailed token, never the token itself.
	// Both reset fields are nil or both are set.
	ResetPasswordToken   *string    `json:"-"`
	ResetPasswordExpires *time.Time `json:"-"`

	Hearts    []string  `json:"hearts"` // store IDs
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) HasHeart(storeID string) bool {
	return slices.Contains(u.Hearts, storeID)
}
