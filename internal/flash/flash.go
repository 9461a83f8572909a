// Package flash keeps one-shot notices in a cookie so they survive a redirect.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CookieName = "flash"
	contextKey = "flash.state"
)

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

type Notice struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

type state struct {
	pending []Notice
}

// Middleware loads notices left by the previous response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := &state{}
		if cookie, err := c.Request.Cookie(CookieName); err == nil {
			st.pending = decode(cookie.Value)
		}
		c.Set(contextKey, st)
		c.Next()
	}
}

// Add queues a notice for the next rendered page.
func Add(c *gin.Context, kind Kind, message string) {
	st := load(c)
	st.pending = append(st.pending, Notice{Kind: kind, Message: message})
	write(c, st.pending)
}

// Consume returns queued notices and clears them.
func Consume(c *gin.Context) []Notice {
	st := load(c)
	out := st.pending
	st.pending = nil
	if out != nil {
		write(c, nil)
	}
	return out
}

func load(c *gin.Context) *state {
	if v, ok := c.Get(contextKey); ok {
		if st, ok := v.(*state); ok {
			return st
		}
	}
	st := &state{}
	c.Set(contextKey, st)
	return st
}

// write replaces any flash cookie already set on this response.
func write(c *gin.Context, notices []Notice) {
	h := c.Writer.Header()
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, CookieName+"=") {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}

	cookie := &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if len(notices) == 0 {
		cookie.MaxAge = -1
	} else {
		cookie.Value = encode(notices)
	}
	http.SetCookie(c.Writer, cookie)
}

func encode(notices []Notice) string {
	b, _ := json.Marshal(notices)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decode(v string) []Notice {
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil
	}
	var notices []Notice
	if err := json.Unmarshal(b, &notices); err != nil {
		return nil
	}
	return notices
}
