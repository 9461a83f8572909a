package repository

import (
	"context"

	"github.com/ErlanBelekov/store-finder/internal/domain"
)

type ListStoresInput struct {
	Skip  int
	Limit int
}

type NearInput struct {
	Lng            float64
	Lat            float64
	MaxDistanceMet float64
	Limit          int
}

type StoreRepository interface {
	Create(ctx context.Context, s *domain.Store) (*domain.Store, error)
	// Update replaces the mutable fields of the store matching s.ID and s.AuthorID.
	Update(ctx context.Context, s *domain.Store) (*domain.Store, error)
	GetByID(ctx context.Context, id string) (*domain.Store, error)
	// GetBySlug loads the store together with its author and reviews.
	GetBySlug(ctx context.Context, slug string) (*domain.Store, error)

	List(ctx context.Context, input ListStoresInput) ([]*domain.Store, error)
	Count(ctx context.Context) (int, error)
	// CountSlugs counts stores whose slug is base or base-<n>, case-insensitively.
	CountSlugs(ctx context.Context, base string) (int, error)

	// ListByTag returns stores carrying tag, or every tagged store when tag is empty.
	ListByTag(ctx context.Context, tag string) ([]*domain.Store, error)
	TagList(ctx context.Context) ([]domain.TagCount, error)

	Search(ctx context.Context, query string, limit int) ([]*domain.Store, error)
	Near(ctx context.Context, input NearInput) ([]*domain.Store, error)
	ListByIDs(ctx context.Context, ids []string) ([]*domain.Store, error)
	Top(ctx context.Context, minReviews, limit int) ([]*domain.RankedStore, error)
}
