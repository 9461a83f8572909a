package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `
	u.id::text, u.email, u.name, u.password_hash,
	u.reset_password_token, u.reset_password_expires, u.created_at,
	COALESCE((SELECT array_agg(h.store_id::text ORDER BY h.created_at)
	          FROM hearts h WHERE h.user_id = u.id), '{}')`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, input repository.CreateUserInput) (*domain.User, error) {
	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash) VALUES ($1, $2, $3) RETURNING id::text`,
		normalizeEmail(input.Email), strings.TrimSpace(input.Name), input.PasswordHash,
	).Scan(&id)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.ErrUserNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE lower(u.email) = $1`,
		normalizeEmail(email),
	)
	return scanUser(row)
}

func (r *UserRepository) UpdateAccount(ctx context.Context, id, name, email string) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.ErrUserNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, email = $3 WHERE id = $1`,
		id, strings.TrimSpace(name), normalizeEmail(email),
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrUserNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	if !validID(userID) {
		return domain.ErrUserNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET reset_password_token = $2, reset_password_expires = $3 WHERE id = $1`,
		userID, tokenHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		FROM users u
		WHERE u.reset_password_token = $1
		  AND u.reset_password_expires > $2`,
		tokenHash, now,
	)
	u, err := scanUser(row)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrTokenInvalid
	}
	return u, err
}

func (r *UserRepository) ResetPassword(ctx context.Context, userID, tokenHash, passwordHash string, now time.Time) (*domain.User, error) {
	if !validID(userID) {
		return nil, domain.ErrTokenInvalid
	}
	// The token predicate makes the password change and the token invalidation one atomic step.
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		SET    password_hash          = $3,
		       reset_password_token   = NULL,
		       reset_password_expires = NULL
		WHERE  id                     = $1
		  AND  reset_password_token   = $2
		  AND  reset_password_expires > $4`,
		userID, tokenHash, passwordHash, now,
	)
	if err != nil {
		return nil, fmt.Errorf("reset password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrTokenInvalid
	}
	return r.FindByID(ctx, userID)
}

func (r *UserRepository) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		SET    reset_password_token = NULL, reset_password_expires = NULL
		WHERE  reset_password_expires <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("purge reset tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *UserRepository) AddHeart(ctx context.Context, userID, storeID string) (*domain.User, error) {
	if !validID(userID) {
		return nil, domain.ErrUserNotFound
	}
	if !validID(storeID) {
		return nil, domain.ErrStoreNotFound
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO hearts (user_id, store_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, storeID,
	)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, fmt.Errorf("add heart: %w", err)
	}
	return r.FindByID(ctx, userID)
}

func (r *UserRepository) RemoveHeart(ctx context.Context, userID, storeID string) (*domain.User, error) {
	if !validID(userID) {
		return nil, domain.ErrUserNotFound
	}
	if validID(storeID) {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM hearts WHERE user_id = $1 AND store_id = $2`,
			userID, storeID,
		)
		if err != nil {
			return nil, fmt.Errorf("remove heart: %w", err)
		}
	}
	return r.FindByID(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash,
		&u.ResetPasswordToken, &u.ResetPasswordExpires, &u.CreatedAt,
		&u.Hearts,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
