package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testKey = "session-test-secret-at-least-32-chars"

// roundTrip issues a cookie with issuer and parses it back with parser.
func roundTrip(t *testing.T, issuer *Manager, parser *Manager, userID string) (string, error) {
	t.Helper()
	w := httptest.NewRecorder()
	if err := issuer.Issue(w, userID); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	return parser.Parse(req)
}

func TestIssueParse_RoundTrip(t *testing.T) {
	m := NewManager([]byte(testKey), time.Hour, false)

	got, err := roundTrip(t, m, m, "user-1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != "user-1" {
		t.Errorf("got %q, want user-1", got)
	}
}

func TestIssue_CookieAttributes(t *testing.T) {
	m := NewManager([]byte(testKey), time.Hour, true)
	w := httptest.NewRecorder()
	if err := m.Issue(w, "user-1"); err != nil {
		t.Fatal(err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName || !c.HttpOnly || !c.Secure || c.Path != "/" || c.MaxAge != 3600 {
		t.Errorf("unexpected cookie %+v", c)
	}
}

func TestParse_NoCookie(t *testing.T) {
	m := NewManager([]byte(testKey), time.Hour, false)
	if _, err := m.Parse(httptest.NewRequest(http.MethodGet, "/", nil)); err != ErrNoSession {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestParse_WrongKey(t *testing.T) {
	issuer := NewManager([]byte(testKey), time.Hour, false)
	parser := NewManager([]byte("another-secret-that-is-32-chars-long"), time.Hour, false)

	if _, err := roundTrip(t, issuer, parser, "user-1"); err != ErrNoSession {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestParse_Expired(t *testing.T) {
	m := NewManager([]byte(testKey), time.Hour, false)
	issuedAt := time.Now()
	m.now = func() time.Time { return issuedAt }

	w := httptest.NewRecorder()
	if err := m.Issue(w, "user-1"); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}

	m.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	if _, err := m.Parse(req); err != ErrNoSession {
		t.Errorf("expected ErrNoSession for expired token, got %v", err)
	}
}

func TestParse_RejectsNoneAlgorithm(t *testing.T) {
	m := NewManager([]byte(testKey), time.Hour, false)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: signed})
	if _, err := m.Parse(req); err != ErrNoSession {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestClear_ExpiresCookie(t *testing.T) {
	m := NewManager([]byte(testKey), time.Hour, false)
	w := httptest.NewRecorder()
	m.Clear(w)

	c := w.Result().Cookies()[0]
	if c.Name != CookieName || c.MaxAge >= 0 {
		t.Errorf("expected expired session cookie, got %+v", c)
	}
}
