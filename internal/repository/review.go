package repository

import (
	"context"

	"github.com/ErlanBelekov/store-finder/internal/domain"
)

type ReviewRepository interface {
	Create(ctx context.Context, r *domain.Review) (*domain.Review, error)
}
