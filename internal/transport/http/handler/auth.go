package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/flash"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/middleware"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/view"
	"github.com/ErlanBelekov/store-finder/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Register(ctx context.Context, input usecase.RegisterInput) (*domain.User, error)
	UpdateAccount(ctx context.Context, userID, name, email string) (*domain.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, rawToken string) (*domain.User, error)
	UpdatePassword(ctx context.Context, rawToken, password string) (*domain.User, error)
}

type sessionIssuer interface {
	Issue(w http.ResponseWriter, userID string) error
	Clear(w http.ResponseWriter)
}

type AuthHandler struct {
	authUsecase authUsecaser
	sessions    sessionIssuer
	views       view.Renderer
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, sessions sessionIssuer, views view.Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		sessions:    sessions,
		views:       views,
		logger:      logger.With("component", "auth_handler"),
	}
}

// GET /login
func (h *AuthHandler) LoginForm(c *gin.Context) {
	h.views.Render(c, http.StatusOK, "login", gin.H{"title": "Login"})
}

// POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	user, err := h.authUsecase.Login(c.Request.Context(), normalizeEmail(c.PostForm("email")), c.PostForm("password"))
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			h.logger.ErrorContext(c.Request.Context(), "login", "error", err)
		}
		flash.Add(c, flash.Error, msgLoginFailed)
		redirect(c, "/login")
		return
	}

	if err := h.sessions.Issue(c.Writer, user.ID); err != nil {
		internalError(c, h.views, h.logger, "issue session", err)
		return
	}
	flash.Add(c, flash.Success, msgLoggedIn)
	redirect(c, "/")
}

// GET /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.Clear(c.Writer)
	flash.Add(c, flash.Success, msgLoggedOut)
	redirect(c, "/")
}

// GET /register
func (h *AuthHandler) RegisterForm(c *gin.Context) {
	h.views.Render(c, http.StatusOK, "register", gin.H{"title": "Register"})
}

type registerRequest struct {
	Name            string `form:"name"             binding:"required"`
	Email           string `form:"email"            binding:"required,email"`
	Password        string `form:"password"         binding:"required"`
	PasswordConfirm string `form:"password-confirm" binding:"required"`
}

var formMessages = map[string]string{
	"Name":            msgNameRequired,
	"Email":           msgEmailInvalid,
	"Password":        msgPasswordBlank,
	"PasswordConfirm": msgConfirmBlank,
}

// POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		h.flashBindErrors(c, err)
		h.views.Render(c, http.StatusBadRequest, "register", gin.H{
			"title": "Register",
			"body":  gin.H{"name": req.Name, "email": req.Email},
		})
		return
	}

	user, err := h.authUsecase.Register(c.Request.Context(), usecase.RegisterInput{
		Name:     strings.TrimSpace(req.Name),
		Email:    normalizeEmail(req.Email),
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			flash.Add(c, flash.Error, msgEmailTaken)
			redirect(c, "/register")
			return
		}
		internalError(c, h.views, h.logger, "register", err)
		return
	}

	if err := h.sessions.Issue(c.Writer, user.ID); err != nil {
		internalError(c, h.views, h.logger, "issue session", err)
		return
	}
	flash.Add(c, flash.Success, msgLoggedIn)
	redirect(c, "/")
}

// GET /account
func (h *AuthHandler) AccountForm(c *gin.Context) {
	h.views.Render(c, http.StatusOK, "account", gin.H{"title": "Edit Your Account"})
}

type accountRequest struct {
	Name  string `form:"name"  binding:"required"`
	Email string `form:"email" binding:"required,email"`
}

// POST /account
func (h *AuthHandler) UpdateAccount(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req accountRequest
	if err := c.ShouldBind(&req); err != nil {
		h.flashBindErrors(c, err)
		middleware.RedirectBack(c)
		return
	}

	_, err := h.authUsecase.UpdateAccount(c.Request.Context(), user.ID, strings.TrimSpace(req.Name), normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			flash.Add(c, flash.Error, msgEmailTaken)
			middleware.RedirectBack(c)
			return
		}
		internalError(c, h.views, h.logger, "update account", err)
		return
	}

	flash.Add(c, flash.Success, msgProfileUpdated)
	middleware.RedirectBack(c)
}

// GET /account/forgot
func (h *AuthHandler) ForgotForm(c *gin.Context) {
	h.views.Render(c, http.StatusOK, "forgot", gin.H{"title": "Forgot Password"})
}

// POST /account/forgot
func (h *AuthHandler) Forgot(c *gin.Context) {
	err := h.authUsecase.ForgotPassword(c.Request.Context(), normalizeEmail(c.PostForm("email")))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			flash.Add(c, flash.Error, msgNoAccount)
			redirect(c, "/login")
			return
		}
		internalError(c, h.views, h.logger, "forgot password", err)
		return
	}

	flash.Add(c, flash.Success, msgResetSent)
	redirect(c, "/login")
}

// GET /account/reset/:token
func (h *AuthHandler) ResetForm(c *gin.Context) {
	if _, err := h.authUsecase.ValidateResetToken(c.Request.Context(), c.Param("token")); err != nil {
		h.resetFailed(c, "validate reset token", err)
		return
	}
	h.views.Render(c, http.StatusOK, "reset", gin.H{"title": "Reset your Password"})
}

// POST /account/reset/:token, behind ConfirmPasswords.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	user, err := h.authUsecase.UpdatePassword(c.Request.Context(), c.Param("token"), c.PostForm("password"))
	if err != nil {
		h.resetFailed(c, "update password", err)
		return
	}

	if err := h.sessions.Issue(c.Writer, user.ID); err != nil {
		internalError(c, h.views, h.logger, "issue session", err)
		return
	}
	flash.Add(c, flash.Success, msgPasswordReset)
	redirect(c, "/")
}

func (h *AuthHandler) resetFailed(c *gin.Context, op string, err error) {
	if errors.Is(err, domain.ErrTokenInvalid) {
		flash.Add(c, flash.Error, msgResetInvalid)
		redirect(c, "/login")
		return
	}
	internalError(c, h.views, h.logger, op, err)
}

// flashBindErrors adds one notice per rejected form field.
func (h *AuthHandler) flashBindErrors(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		flash.Add(c, flash.Error, err.Error())
		return
	}
	for _, fe := range verrs {
		if msg, ok := formMessages[fe.Field()]; ok {
			flash.Add(c, flash.Error, msg)
		}
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
