package handler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/flash"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/middleware"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/view"
	"github.com/ErlanBelekov/store-finder/internal/usecase"
	"github.com/gin-gonic/gin"
)

type reviewUsecaser interface {
	AddReview(ctx context.Context, input usecase.AddReviewInput) (*domain.Review, error)
}

type ReviewHandler struct {
	reviewUsecase reviewUsecaser
	views         view.Renderer
	logger        *slog.Logger
}

func NewReviewHandler(reviewUsecase reviewUsecaser, views view.Renderer, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewUsecase: reviewUsecase,
		views:         views,
		logger:        logger.With("component", "review_handler"),
	}
}

// POST /reviews/:id
func (h *ReviewHandler) Add(c *gin.Context) {
	user := middleware.CurrentUser(c)

	// Unparseable ratings become 0 and fail the 1..5 check.
	rating, _ := strconv.Atoi(c.PostForm("rating"))

	_, err := h.reviewUsecase.AddReview(c.Request.Context(), usecase.AddReviewInput{
		AuthorID: user.ID,
		StoreID:  c.Param("id"),
		Text:     c.PostForm("text"),
		Rating:   rating,
	})
	if err != nil {
		if flashValidation(c, err) {
			return
		}
		if errors.Is(err, domain.ErrStoreNotFound) {
			NotFound(h.views)(c)
			return
		}
		internalError(c, h.views, h.logger, "add review", err)
		return
	}

	flash.Add(c, flash.Success, msgReviewSaved)
	middleware.RedirectBack(c)
}
