package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/store-finder/internal/domain"
)

type CreateUserInput struct {
	Email        string
	Name         string
	PasswordHash string
}

type UserRepository interface {
	Create(ctx context.Context, input CreateUserInput) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateAccount(ctx context.Context, id, name, email string) (*domain.User, error)

	// SetResetToken stores the token hash and its expiry on the user.
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	// FindByResetToken returns the user only when the hash matches and the token has not expired.
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)
	// ResetPassword sets the new hash and clears both reset fields in one statement.
	// Returns ErrTokenInvalid if the token no longer matches or has expired.
	ResetPassword(ctx context.Context, userID, tokenHash, passwordHash string, now time.Time) (*domain.User, error)
	// PurgeExpiredResetTokens clears reset fields whose expiry is at or before now.
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int, error)

	AddHeart(ctx context.Context, userID, storeID string) (*domain.User, error)
	RemoveHeart(ctx context.Context, userID, storeID string) (*domain.User, error)
}
