// Package view renders the HTML pages. Templates are embedded in the binary;
// each page is parsed together with layout.html and cached.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/diewo77/go-tutoring/auth"
	"github.com/diewo77/go-tutoring/internal/models"
)

//go:embed templates/*.html
var embedded embed.FS

// FlashSource drains the flash messages of the current request.
type FlashSource interface {
	Flashes(w http.ResponseWriter, r *http.Request) []auth.Flash
}

// Renderer executes page templates inside the shared layout.
type Renderer struct {
	fsys    fs.FS
	flashes FlashSource
	// dev re-parses templates on every render.
	dev bool

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// New returns a Renderer over the embedded templates.
func New(flashes FlashSource, dev bool) *Renderer {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err) // the embed pattern guarantees the directory
	}
	return NewFromFS(sub, flashes, dev)
}

// NewFromFS is New over an arbitrary template tree (tests).
func NewFromFS(fsys fs.FS, flashes FlashSource, dev bool) *Renderer {
	return &Renderer{fsys: fsys, flashes: flashes, dev: dev, cache: map[string]*template.Template{}}
}

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"year":    func() int { return time.Now().Year() },
		"fmtDate": func(t time.Time) string { return t.Format("Jan 02, 2006 15:04") },
		"statusClass": func(s models.SessionStatus) string {
			switch s {
			case models.StatusConfirmed:
				return "info"
			case models.StatusCompleted:
				return "success"
			default:
				return "warning"
			}
		},
		"flashClass": func(kind string) string {
			switch kind {
			case auth.FlashSuccess, auth.FlashDanger, auth.FlashWarning:
				return "alert-" + kind
			default:
				return "alert-info"
			}
		},
		"idstr": func(id uint) string { return strconv.FormatUint(uint64(id), 10) },
	}
}

func (v *Renderer) template(name string) (*template.Template, error) {
	if !v.dev {
		v.mu.RLock()
		t, ok := v.cache[name]
		v.mu.RUnlock()
		if ok {
			return t, nil
		}
	}
	t, err := template.New("layout.html").Funcs(Funcs()).ParseFS(v.fsys, "layout.html", name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if !v.dev {
		v.mu.Lock()
		v.cache[name] = t
		v.mu.Unlock()
	}
	return t, nil
}

// Render writes the page with status 200.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	return v.RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus executes into a buffer first so a template error never leaves
// a half-written page.
func (v *Renderer) RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) error {
	t, err := v.template(name)
	if err != nil {
		return err
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["IsLoggedIn"]; !exists {
		_, loggedIn := auth.UserIDFromContext(r.Context())
		data["IsLoggedIn"] = loggedIn
	}
	if _, exists := data["Role"]; !exists {
		data["Role"] = auth.RoleFromContext(r.Context())
	}
	if v.flashes != nil {
		// Draining saves the session, which must happen before the body is written.
		data["Flashes"] = v.flashes.Flashes(w, r)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
