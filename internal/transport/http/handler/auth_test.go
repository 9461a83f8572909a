package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/flash"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/handler"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/view"
	"github.com/ErlanBelekov/store-finder/internal/usecase"
	"github.com/gin-gonic/gin"
)

// fakeAuthUsecase implements the unexported authUsecaser interface via method matching.
type fakeAuthUsecase struct {
	login              func(ctx context.Context, email, password string) (*domain.User, error)
	register           func(ctx context.Context, input usecase.RegisterInput) (*domain.User, error)
	updateAccount      func(ctx context.Context, userID, name, email string) (*domain.User, error)
	forgotPassword     func(ctx context.Context, email string) error
	validateResetToken func(ctx context.Context, rawToken string) (*domain.User, error)
	updatePassword     func(ctx context.Context, rawToken, password string) (*domain.User, error)
}

func (f *fakeAuthUsecase) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return f.login(ctx, email, password)
}

func (f *fakeAuthUsecase) Register(ctx context.Context, input usecase.RegisterInput) (*domain.User, error) {
	return f.register(ctx, input)
}

func (f *fakeAuthUsecase) UpdateAccount(ctx context.Context, userID, name, email string) (*domain.User, error) {
	return f.updateAccount(ctx, userID, name, email)
}

func (f *fakeAuthUsecase) ForgotPassword(ctx context.Context, email string) error {
	return f.forgotPassword(ctx, email)
}

func (f *fakeAuthUsecase) ValidateResetToken(ctx context.Context, rawToken string) (*domain.User, error) {
	return f.validateResetToken(ctx, rawToken)
}

func (f *fakeAuthUsecase) UpdatePassword(ctx context.Context, rawToken, password string) (*domain.User, error) {
	return f.updatePassword(ctx, rawToken, password)
}

type fakeSessions struct {
	issued  []string
	cleared int
}

func (s *fakeSessions) Issue(w http.ResponseWriter, userID string) error {
	s.issued = append(s.issued, userID)
	return nil
}

func (s *fakeSessions) Clear(http.ResponseWriter) { s.cleared++ }

var wes = &domain.User{ID: "user-1", Email: "wes@example.com", Name: "Wes"}

func newAuthEngine(uc *fakeAuthUsecase, sessions *fakeSessions, user *domain.User) *gin.Engine {
	h := handler.NewAuthHandler(uc, sessions, view.JSONRenderer{}, discard())

	r := newBaseEngine(user)
	r.GET("/login", h.LoginForm)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)
	r.POST("/register", h.Register)
	r.POST("/account", h.UpdateAccount)
	r.POST("/account/forgot", h.Forgot)
	r.GET("/account/reset/:token", h.ResetForm)
	r.POST("/account/reset/:token", h.UpdatePassword)
	return r
}

// ---- Login / Logout ----

func TestLogin_Success_IssuesSessionAndRedirectsHome(t *testing.T) {
	var gotEmail string
	uc := &fakeAuthUsecase{login: func(_ context.Context, email, _ string) (*domain.User, error) {
		gotEmail = email
		return wes, nil
	}}
	sessions := &fakeSessions{}
	r := newAuthEngine(uc, sessions, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, form(http.MethodPost, "/login", url.Values{"email": {" Wes@Example.com "}, "password": {"pw"}}))

	assertRedirect(t, w, "/")
	if gotEmail != "wes@example.com" {
		t.Errorf("email passed as %q, want normalized", gotEmail)
	}
	if len(sessions.issued) != 1 || sessions.issued[0] != "user-1" {
		t.Errorf("sessions issued = %v", sessions.issued)
	}
	if !hasNotice(flashesAfter(t, r, w), flash.Success, "You are now logged in!") {
		t.Error("missing success notice")
	}
}

func TestLogin_BadCredentials_RedirectsToLogin(t *testing.T) {
	uc := &fakeAuthUsecase{login: func(context.Context, string, string) (*domain.User, error) {
		return nil, domain.ErrInvalidCredentials
	}}
	sessions := &fakeSessions{}
	r := newAuthEngine(uc, sessions, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, form(http.MethodPost, "/login", url.Values{"email": {"x@example.com"}, "password": {"bad"}}))

	assertRedirect(t, w, "/login")
	if len(sessions.issued) != 0 {
		t.Error("session issued on failed login")
	}
	if !hasNotice(flashesAfter(t, r, w), flash.Error, "Failed Login!") {
		t.Error("missing failure notice")
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	sessions := &fakeSessions{}
	r := newAuthEngine(&fakeAuthUsecase{}, sessions, wes)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logout", nil))

	assertRedirect(t, w, "/")
	if sessions.cleared != 1 {
		t.Errorf("cleared = %d, want 1", sessions.cleared)
	}
	if !hasNotice(flashesAfter(t, r, w), flash.Success, "You are now logged out!") {
		t.Error("missing logout notice")
	}
}

func TestLoginForm_RendersLoginView(t *testing.T) {
	r := newAuthEngine(&fakeAuthUsecase{}, &fakeSessions{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if v := decodeView(t, w); v.View != "login" {
		t.Errorf("view = %q, want login", v.View)
	}
}

// ---- Register ----

func TestRegister_Success_LogsIn(t *testing.T) {
	var got usecase.RegisterInput
	uc := &fakeAuthUsecase{register: func(_ context.Context, in usecase.RegisterInput) (*domain.User, error) {
		got = in
		return &domain.User{ID: "user-2"}, nil
	}}
	sessions := &fakeSessions{}
	r := newAuthEngine(uc, sessions, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, form(http.MethodPost, "/register", url.Values{
		"name": {"Ada"}, "email": {"ADA@example.com"}, "password": {"pw"}, "password-confirm": {"pw"},
	}))

	assertRedirect(t, w, "/")
	if got.Email != "ada@example.com" || got.Name != "Ada" || got.Password != "pw" {
		t.Errorf("unexpected input %+v", got)
	}
	if len(sessions.issued) != 1 || sessions.issued[0] != "user-2" {
		t.Errorf("sessions issued = %v", sessions.issued)
	}
}

func TestRegister_InvalidForm_RerendersWithNotices(t *testing.T) {
	uc := &fakeAuthUsecase{register: func(context.Context, usecase.RegisterInput) (*domain.User, error) {
		t.Fatal("register must not be called")
		return nil, nil
	}}
	r := newAuthEngine(uc, &fakeSessions{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, form(http.MethodPost, "/register", url.Values{"name": {"Ada"}, "email": {"not-an-email"}}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	v := decodeView(t, w)
	if v.View != "register" {
		t.Errorf("view = %q", v.View)
	}
	if !hasNotice(v.Flashes, flash.Error, "That Email is not valid!") || !hasNotice(v.Flashes, flash.Error, "Password Cannot be Blank!") {
		t.Errorf("unexpected notices %+v", v.Flashes)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	uc := &fakeAuthUsecase{register: func(context.Context, usecase.RegisterInput) (*domain.User, error) {
		return nil, domain.ErrEmailTaken
	}}
	r := newAuthEngine(uc, &fakeSessions{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, form(http.MethodPost, "/register", url.Values{
		"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"pw"}, "password-confirm": {"pw"},
	}))

	assertRedirect(t, w, "/register")
	if !hasNotice(flashesAfter(t, r, w), flash.Error, "An account with that email already exists.") {
		t.Error("missing duplicate email notice")
	}
}

// ---- Account ----

func TestUpdateAccount_Success(t *testing.T) {
	var gotID, gotName, gotEmail string
	uc := &fakeAuthUsecase{updateAccount: func(_ context.Context, id, name, email string) (*domain.User, error) {
		gotID, gotName, gotEmail = id, name, email
		return wes, nil
	}}
	r := newAuthEngine(uc, &fakeSessions{}, wes)

	req := form(http.MethodPost, "/account", url.Values{"name": {"Wesley "}, "email": {"WES@example.com"}})
	req.Header.Set("Referer", "/account")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assertRedirect(t, w, "/account")
	if gotID != "user-1" || gotName != "Wesley" || gotEmail != "wes@example.com" {
		t.Errorf("got %q %q %q", gotID, gotName, gotEmail)
	}
	if !hasNotice(flashesAfter(t, r, w), flash.Success, "Updated the profile!") {
		t.Error("missing success notice")
	}
}

// ---- Forgot / Reset ----

func TestForgot_UnknownEmail(t *testing.T) {
	uc := &fakeAuthUsecase{forgotPassword: func(context.Context, string) error { return domain.ErrUserNotFound }}
	r := newAuthEngine(uc, &fakeSessions{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, form(http.MethodPost, "/account/forgot", url.Values{"email": {"nobody@example.com"}}))

	assertRedirect(t, w, "/login")
	if !hasNotice(flashesAfter(t, r, w), flash.Error, "No account with that email exists.") {
		t.Error("missing no-account notice")
	}
}

func TestForgot_Success(t *testing.T) {
	uc := &fakeAuthUsecase{forgotPassword: func(context.Context, string) error { return nil }}
	r := newAuthEngine(uc, &fakeSessions{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, form(http.MethodPost, "/account/forgot", url.Values{"email": {"wes@example.com"}}))

	assertRedirect(t, w, "/login")
	if !hasNotice(flashesAfter(t, r, w), flash.Success, "You have been emailed a password reset link.") {
		t.Error("missing sent notice")
	}
}

func TestForgot_RepoError_Returns500(t *testing.T) {
	uc := &fakeAuthUsecase{forgotPassword: func(context.Context, string) error { return errors.New("db down") }}
	r := newAuthEngine(uc, &fakeSessions{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, form(http.MethodPost, "/account/forgot", url.Values{"email": {"wes@example.com"}}))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestResetForm_InvalidToken_RedirectsToLogin(t *testing.T) {
	uc := &fakeAuthUsecase{validateResetToken: func(context.Context, string) (*domain.User, error) {
		return nil, domain.ErrTokenInvalid
	}}
	r := newAuthEngine(uc, &fakeSessions{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/account/reset/nope", nil))

	assertRedirect(t, w, "/login")
	if !hasNotice(flashesAfter(t, r, w), flash.Error, "Password reset is invalid or has expired") {
		t.Error("missing invalid-token notice")
	}
}

func TestResetForm_ValidToken_RendersReset(t *testing.T) {
	var gotToken string
	uc := &fakeAuthUsecase{validateResetToken: func(_ context.Context, raw string) (*domain.User, error) {
		gotToken = raw
		return wes, nil
	}}
	r := newAuthEngine(uc, &fakeSessions{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/account/reset/abc123", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotToken != "abc123" {
		t.Errorf("token = %q", gotToken)
	}
	if v := decodeView(t, w); v.View != "reset" {
		t.Errorf("view = %q", v.View)
	}
}

func TestUpdatePassword_Success_LogsInAndRedirectsHome(t *testing.T) {
	uc := &fakeAuthUsecase{updatePassword: func(_ context.Context, raw, pw string) (*domain.User, error) {
		if raw != "abc123" || pw != "new" {
			t.Errorf("got token %q password %q", raw, pw)
		}
		return wes, nil
	}}
	sessions := &fakeSessions{}
	r := newAuthEngine(uc, sessions, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, form(http.MethodPost, "/account/reset/abc123", url.Values{"password": {"new"}, "password-confirm": {"new"}}))

	assertRedirect(t, w, "/")
	if len(sessions.issued) != 1 {
		t.Errorf("expected a new session, got %v", sessions.issued)
	}
	if !hasNotice(flashesAfter(t, r, w), flash.Success, "Nice! Your password has been reset! You are now logged in!") {
		t.Error("missing reset notice")
	}
}

func TestUpdatePassword_ReusedToken_RedirectsToLogin(t *testing.T) {
	uc := &fakeAuthUsecase{updatePassword: func(context.Context, string, string) (*domain.User, error) {
		return nil, domain.ErrTokenInvalid
	}}
	sessions := &fakeSessions{}
	r := newAuthEngine(uc, sessions, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, form(http.MethodPost, "/account/reset/used", url.Values{"password": {"new"}, "password-confirm": {"new"}}))

	assertRedirect(t, w, "/login")
	if len(sessions.issued) != 0 {
		t.Error("session issued for invalid token")
	}
}
