package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/flash"
	"github.com/ErlanBelekov/store-finder/internal/reqctx"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/view"
	"github.com/gin-gonic/gin"
)

const (
	msgLoginRequired = "You must be logged in to do that!"
	errUnauthorized  = "Unauthorized"
)

type SessionParser interface {
	Parse(r *http.Request) (string, error)
	Clear(w http.ResponseWriter)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Session resolves the session cookie to a user. Requests without a valid cookie,
// or whose user no longer exists, continue anonymously.
func Session(sessions SessionParser, users UserFinder, logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "session")

	return func(c *gin.Context) {
		userID, err := sessions.Parse(c.Request)
		if err != nil {
			c.Next()
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				sessions.Clear(c.Writer)
			} else {
				logger.ErrorContext(c.Request.Context(), "load session user", "error", err)
			}
			c.Next()
			return
		}

		c.Set(view.UserKey, user)
		c.Request = c.Request.WithContext(reqctx.WithUserID(c.Request.Context(), user.ID))
		c.Next()
	}
}

// CurrentUser returns the signed-in user, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(view.UserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}

// RequireAuth sends anonymous visitors to the login page with a notice.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			flash.Add(c, flash.Error, msgLoginRequired)
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAuthJSON is RequireAuth for API routes.
func RequireAuthJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		c.Next()
	}
}
