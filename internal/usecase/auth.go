package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/email"
	"github.com/ErlanBelekov/store-finder/internal/metrics"
	"github.com/ErlanBelekov/store-finder/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	resetTokenBytes = 20
	defaultResetTTL = time.Hour
	mailTimeout     = 30 * time.Second
)

// Authenticator verifies credentials. PasswordAuthenticator is the default strategy.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

// PasswordAuthenticator checks an email + bcrypt password pair against the user store.
type PasswordAuthenticator struct {
	users repository.UserRepository
}

func NewPasswordAuthenticator(users repository.UserRepository) *PasswordAuthenticator {
	return &PasswordAuthenticator{users: users}
}

func (a *PasswordAuthenticator) Authenticate(ctx context.Context, emailAddr, password string) (*domain.User, error) {
	user, err := a.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

type AuthUsecase struct {
	users      repository.UserRepository
	auth       Authenticator
	mailer     email.Sender
	logger     *slog.Logger
	baseURL    string
	resetTTL   time.Duration
	bcryptCost int

	// in-flight reset emails
	mail sync.WaitGroup
}

func NewAuthUsecase(users repository.UserRepository, auth Authenticator, mailer email.Sender, logger *slog.Logger, baseURL string) *AuthUsecase {
	return &AuthUsecase{
		users:      users,
		auth:       auth,
		mailer:     mailer,
		logger:     logger.With("component", "auth_usecase"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		resetTTL:   defaultResetTTL,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Login delegates to the configured Authenticator.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, password string) (*domain.User, error) {
	user, err := u.auth.Authenticate(ctx, emailAddr, password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return user, nil
}

func (u *AuthUsecase) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func (u *AuthUsecase) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	hash, err := u.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := u.users.Create(ctx, repository.CreateUserInput{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (u *AuthUsecase) UpdateAccount(ctx context.Context, userID, name, emailAddr string) (*domain.User, error) {
	user, err := u.users.UpdateAccount(ctx, userID, name, emailAddr)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return user, nil
}

// ForgotPassword stores a fresh reset token for the account and emails the reset link in the
// background. Returns ErrUserNotFound when no account has that email.
func (u *AuthUsecase) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.PasswordResetRequestsTotal.WithLabelValues("unknown_email").Inc()
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	raw := make([]byte, resetTokenBytes)
	if _, err = io.ReadFull(rand.Reader, raw); err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	rawToken := hex.EncodeToString(raw)

	expiresAt := time.Now().Add(u.resetTTL)
	if err = u.users.SetResetToken(ctx, user.ID, hashToken(rawToken), expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	msg, err := email.PasswordReset(user.Email, user.Name, u.ResetURL(rawToken))
	if err != nil {
		return fmt.Errorf("build reset email: %w", err)
	}

	metrics.PasswordResetRequestsTotal.WithLabelValues("sent").Inc()
	u.sendAsync(ctx, msg)
	return nil
}

// ResetURL is the link embedded in reset emails.
func (u *AuthUsecase) ResetURL(rawToken string) string {
	return u.baseURL + "/account/reset/" + rawToken
}

// ValidateResetToken returns the user holding rawToken. Unknown and expired tokens both
// yield ErrTokenInvalid.
func (u *AuthUsecase) ValidateResetToken(ctx context.Context, rawToken string) (*domain.User, error) {
	if rawToken == "" {
		return nil, domain.ErrTokenInvalid
	}
	user, err := u.users.FindByResetToken(ctx, hashToken(rawToken), time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("find by reset token: %w", err)
	}
	return user, nil
}

// UpdatePassword re-validates rawToken, then sets the new password and clears the token in a
// single update so the token cannot be used twice.
func (u *AuthUsecase) UpdatePassword(ctx context.Context, rawToken, password string) (*domain.User, error) {
	user, err := u.ValidateResetToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	hash, err := u.hashPassword(password)
	if err != nil {
		return nil, err
	}

	updated, err := u.users.ResetPassword(ctx, user.ID, hashToken(rawToken), hash, time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("reset password: %w", err)
	}
	return updated, nil
}

// Wait blocks until every queued reset email has been attempted.
func (u *AuthUsecase) Wait() {
	u.mail.Wait()
}

func (u *AuthUsecase) sendAsync(ctx context.Context, msg email.Message) {
	sendCtx := context.WithoutCancel(ctx)

	u.mail.Add(1)
	go func() {
		defer u.mail.Done()

		ctx, cancel := context.WithTimeout(sendCtx, mailTimeout)
		defer cancel()

		if err := u.mailer.Send(ctx, msg); err != nil {
			metrics.PasswordResetEmailsTotal.WithLabelValues("failed").Inc()
			u.logger.ErrorContext(ctx, "send password reset email", "to", msg.To, "error", err)
			return
		}
		metrics.PasswordResetEmailsTotal.WithLabelValues("sent").Inc()
	}()
}

func (u *AuthUsecase) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func hashToken(rawToken string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(rawToken)))
}
