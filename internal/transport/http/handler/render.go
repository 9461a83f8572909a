package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/flash"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/middleware"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/view"
	"github.com/gin-gonic/gin"
)

// NotFound renders the 404 page. It is also the router's NoRoute handler.
func NotFound(views view.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		views.Render(c, http.StatusNotFound, "notFound", gin.H{"title": errPageNotFound})
	}
}

func renderError(c *gin.Context, views view.Renderer, status int, message string) {
	views.Render(c, status, "error", gin.H{"title": http.StatusText(status), "message": message})
}

func internalError(c *gin.Context, views view.Renderer, logger *slog.Logger, msg string, err error) {
	logger.ErrorContext(c.Request.Context(), msg, "error", err)
	renderError(c, views, http.StatusInternalServerError, errInternalServer)
}

// flashValidation turns a validation failure into error notices and sends the user back
// to the form. It reports false when err is not a validation failure.
func flashValidation(c *gin.Context, err error) bool {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	for _, msg := range verr.Messages() {
		flash.Add(c, flash.Error, msg)
	}
	middleware.RedirectBack(c)
	return true
}

func redirect(c *gin.Context, to string) {
	c.Redirect(http.StatusFound, to)
}
