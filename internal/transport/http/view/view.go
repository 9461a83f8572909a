// Package view renders named pages. Handlers pass a page name and its data; the
// renderer adds the flash notices and the signed-in user shared by every page.
package view

import (
	"encoding/json"
	"html/template"
	"slices"
	"strings"
	"time"

	"github.com/ErlanBelekov/store-finder/internal/flash"
	"github.com/gin-gonic/gin"
)

// UserKey is the gin context key holding the signed-in *domain.User.
const UserKey = "currentUser"

const placeholderPhoto = "/public/images/photos/store.png"

type Renderer interface {
	Render(c *gin.Context, status int, name string, data gin.H)
}

func locals(c *gin.Context, data gin.H) gin.H {
	out := gin.H{}
	for k, v := range data {
		out[k] = v
	}
	out["flashes"] = flash.Consume(c)
	if u, ok := c.Get(UserKey); ok {
		out["user"] = u
	}
	return out
}

// JSONRenderer answers every page as {"view": name, "flashes": [...], "data": {...}}.
// It is used when no template set is configured and in tests.
type JSONRenderer struct{}

func (JSONRenderer) Render(c *gin.Context, status int, name string, data gin.H) {
	l := locals(c, data)
	flashes := l["flashes"]
	delete(l, "flashes")
	c.JSON(status, gin.H{"view": name, "flashes": flashes, "data": l})
}

// HTMLRenderer executes "<name>.html" from the engine's loaded templates.
type HTMLRenderer struct{}

func (HTMLRenderer) Render(c *gin.Context, status int, name string, data gin.H) {
	c.HTML(status, name+".html", locals(c, data))
}

// Funcs are the helpers available to page templates. photoBase prefixes stored
// photo names.
func Funcs(photoBase string) template.FuncMap {
	return template.FuncMap{
		"dump": func(v any) string {
			b, _ := json.MarshalIndent(v, "", "  ")
			return string(b)
		},
		"photo":   func(name *string) string { return photoURL(photoBase, name) },
		"hearted": slices.Contains[[]string],
		"date":    func(t time.Time) string { return t.Format("Jan 2, 2006") },
	}
}

// Load configures engine for HTML rendering from glob and returns the matching renderer.
// An empty glob selects the JSON renderer.
func Load(engine *gin.Engine, glob, photoBase string) Renderer {
	if glob == "" {
		return JSONRenderer{}
	}
	engine.SetFuncMap(Funcs(photoBase))
	engine.LoadHTMLGlob(glob)
	return HTMLRenderer{}
}

// photoURL falls back to the placeholder under /public, which is served for
// every storage backend.
func photoURL(base string, name *string) string {
	if name == nil || *name == "" {
		return placeholderPhoto
	}
	return strings.TrimRight(base, "/") + "/" + *name
}
