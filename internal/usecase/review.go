package usecase

import (
	"context"
	"fmt"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/metrics"
	"github.com/ErlanBelekov/store-finder/internal/repository"
)

type ReviewUsecase struct {
	reviews repository.ReviewRepository
}

func NewReviewUsecase(reviews repository.ReviewRepository) *ReviewUsecase {
	return &ReviewUsecase{reviews: reviews}
}

type AddReviewInput struct {
	AuthorID string
	StoreID  string
	Text     string
	Rating   int
}

func (u *ReviewUsecase) AddReview(ctx context.Context, input AddReviewInput) (*domain.Review, error) {
	r, err := u.reviews.Create(ctx, &domain.Review{
		AuthorID: input.AuthorID,
		StoreID:  input.StoreID,
		Text:     input.Text,
		Rating:   input.Rating,
	})
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	metrics.ReviewsCreatedTotal.Inc()
	return r, nil
}
