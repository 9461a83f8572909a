package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) (*domain.Review, error) {
	rv.Text = strings.TrimSpace(rv.Text)
	if err := validateReview(rv); err != nil {
		return nil, err
	}

	var created domain.Review
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reviews (author_id, store_id, text, rating)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created, author_id::text, store_id::text, text, rating`,
		rv.AuthorID, rv.StoreID, rv.Text, rv.Rating,
	).Scan(&created.ID, &created.Created, &created.AuthorID, &created.StoreID, &created.Text, &created.Rating)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, fmt.Errorf("create review: %w", err)
	}
	return &created, nil
}
