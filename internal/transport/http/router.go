package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/store-finder/internal/flash"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/handler"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/middleware"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/view"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

const maxUploadMemory = 10 << 20

type Handlers struct {
	Auth   *handler.AuthHandler
	Store  *handler.StoreHandler
	Review *handler.ReviewHandler
}

type Options struct {
	Views     view.Renderer
	Sessions  middleware.SessionParser
	Users     middleware.UserFinder
	Limiter   *middleware.RateLimiter
	PublicDir string
	// UploadDir is served at /uploads when photos are stored locally.
	UploadDir string
	// HSTS adds Strict-Transport-Security; set outside local runs.
	HSTS bool
}

// NewRouter builds the engine. engine may come pre-configured (for example with
// templates loaded by view.Load); nil means a fresh gin.New().
func NewRouter(engine *gin.Engine, logger *slog.Logger, h Handlers, opts Options) *gin.Engine {
	r := engine
	if r == nil {
		r = gin.New()
	}
	r.MaxMultipartMemory = maxUploadMemory

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(opts.HSTS))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())
	r.Use(flash.Middleware())
	r.Use(middleware.Session(opts.Sessions, opts.Users, logger))

	if opts.PublicDir != "" {
		r.Static("/public", opts.PublicDir)
	}
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	auth := middleware.RequireAuth()
	rate := opts.Limiter.Handler()

	// Stores
	r.GET("/", h.Store.List)
	r.GET("/stores", h.Store.List)
	r.GET("/stores/page/:page", h.Store.List)
	r.GET("/add", auth, h.Store.AddForm)
	r.POST("/add", auth, h.Store.Create)
	r.POST("/add/:id", auth, h.Store.Update)
	r.GET("/stores/:id/edit", auth, h.Store.EditForm)
	r.GET("/store/:slug", h.Store.Show)
	r.GET("/tags", h.Store.Tags)
	r.GET("/tags/:tag", h.Store.Tags)
	r.GET("/top", h.Store.Top)
	r.GET("/map", h.Store.Map)
	r.GET("/hearts", auth, h.Store.Hearts)

	// Reviews
	r.POST("/reviews/:id", auth, h.Review.Add)

	// Accounts
	r.GET("/login", h.Auth.LoginForm)
	r.POST("/login", rate, h.Auth.Login)
	r.GET("/logout", h.Auth.Logout)
	r.GET("/register", h.Auth.RegisterForm)
	r.POST("/register", middleware.ConfirmPasswords(), h.Auth.Register)
	r.GET("/account", auth, h.Auth.AccountForm)
	r.POST("/account", auth, h.Auth.UpdateAccount)
	r.GET("/account/forgot", h.Auth.ForgotForm)
	r.POST("/account/forgot", rate, h.Auth.Forgot)
	r.GET("/account/reset/:token", h.Auth.ResetForm)
	r.POST("/account/reset/:token", middleware.ConfirmPasswords(), h.Auth.UpdatePassword)

	// API
	api := r.Group("/api")
	api.GET("/search", h.Store.Search)
	api.GET("/stores/near", h.Store.Near)
	api.POST("/stores/:id/heart", middleware.RequireAuthJSON(), h.Store.Heart)

	r.NoRoute(handler.NotFound(opts.Views))

	return r
}
