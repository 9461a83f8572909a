package handler_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/flash"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/view"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// newBaseEngine has the flash middleware, an optional signed-in user and a /flashes
// route that echoes pending notices.
func newBaseEngine(user *domain.User) *gin.Engine {
	r := gin.New()
	r.Use(flash.Middleware())
	if user != nil {
		r.Use(func(c *gin.Context) { c.Set(view.UserKey, user) })
	}
	r.GET("/flashes", func(c *gin.Context) { c.JSON(http.StatusOK, flash.Consume(c)) })
	return r
}

// flashesAfter replays w's cookies against /flashes.
func flashesAfter(t *testing.T, r *gin.Engine, w *httptest.ResponseRecorder) []flash.Notice {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/flashes", nil)
	for _, c := range w.Result().Cookies() {
		if c.Name == flash.CookieName && c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	fw := httptest.NewRecorder()
	r.ServeHTTP(fw, req)

	var notices []flash.Notice
	if err := json.Unmarshal(fw.Body.Bytes(), &notices); err != nil {
		t.Fatalf("decode flashes: %v", err)
	}
	return notices
}

func hasNotice(notices []flash.Notice, kind flash.Kind, msg string) bool {
	for _, n := range notices {
		if n.Kind == kind && n.Message == msg {
			return true
		}
	}
	return false
}

func form(method, path string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

type renderedView struct {
	View    string          `json:"view"`
	Flashes []flash.Notice  `json:"flashes"`
	Data    json.RawMessage `json:"data"`
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) renderedView {
	t.Helper()
	var v renderedView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view: %v (body %q)", err, w.Body.String())
	}
	return v
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, to string) {
	t.Helper()
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (body %q)", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != to {
		t.Errorf("Location = %q, want %q", loc, to)
	}
}
