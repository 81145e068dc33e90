// Package render executes the site's page and text templates.
//
// Page templates live under pages/ and are each parsed together with
// layout.html, which defines the "layout" entry point. Text templates
// (robots.txt, sitemap.xml) live under text/.
package render

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
	texttemplate "text/template"
)

// ErrPageNotFound is returned when no template exists for a name
var ErrPageNotFound = errors.New("render: template not found")

const (
	layoutFile = "layout.html"
	pagesGlob  = "pages/*.html"
	textGlob   = "text/*"
)

// Renderer executes templates from an fs.FS
type Renderer struct {
	fsys   fs.FS
	reload bool

	mu    sync.RWMutex
	pages map[string]*template.Template
	texts *texttemplate.Template
}

// Option customizes a Renderer
type Option func(*Renderer)

// WithReload re-parses templates on every call. Used in dev mode.
func WithReload(reload bool) Option {
	return func(r *Renderer) {
		r.reload = reload
	}
}

// New parses every template in fsys. Parse errors are reported up front
// even in reload mode.
func New(fsys fs.FS, opts ...Option) (*Renderer, error) {
	r := &Renderer{fsys: fsys}
	for _, opt := range opts {
		opt(r)
	}

	pages, texts, err := parse(fsys)
	if err != nil {
		return nil, err
	}
	r.pages = pages
	r.texts = texts
	return r, nil
}

func funcs() map[string]any {
	return map[string]any{
		"xml": func(s string) (string, error) {
			var b strings.Builder
			if err := xml.EscapeText(&b, []byte(s)); err != nil {
				return "", err
			}
			return b.String(), nil
		},
		"trimSlash": func(s string) string {
			return strings.TrimRight(s, "/")
		},
	}
}

func parse(fsys fs.FS) (map[string]*template.Template, *texttemplate.Template, error) {
	files, err := fs.Glob(fsys, pagesGlob)
	if err != nil {
		return nil, nil, fmt.Errorf("render: failed to list pages: %w", err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("render: no page templates found")
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		t, err := template.New(layoutFile).Funcs(funcs()).ParseFS(fsys, layoutFile, file)
		if err != nil {
			return nil, nil, fmt.Errorf("render: failed to parse page %s: %w", name, err)
		}
		pages[name] = t
	}

	texts := texttemplate.New("text").Funcs(funcs())
	textFiles, err := fs.Glob(fsys, textGlob)
	if err != nil {
		return nil, nil, fmt.Errorf("render: failed to list text templates: %w", err)
	}
	if len(textFiles) > 0 {
		texts, err = texts.ParseFS(fsys, textGlob)
		if err != nil {
			return nil, nil, fmt.Errorf("render: failed to parse text templates: %w", err)
		}
	}

	return pages, texts, nil
}

func (r *Renderer) templates() (map[string]*template.Template, *texttemplate.Template, error) {
	if r.reload {
		pages, texts, err := parse(r.fsys)
		if err != nil {
			return nil, nil, err
		}
		r.mu.Lock()
		r.pages, r.texts = pages, texts
		r.mu.Unlock()
		return pages, texts, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pages, r.texts, nil
}

// HasPage reports whether a page template exists
func (r *Renderer) HasPage(name string) bool {
	pages, _, err := r.templates()
	if err != nil {
		return false
	}
	_, ok := pages[name]
	return ok
}

// Page renders the named page inside the layout. Output is buffered so a
// failing template never writes a partial document.
func (r *Renderer) Page(w io.Writer, name string, data any) error {
	pages, _, err := r.templates()
	if err != nil {
		return err
	}

	t, ok := pages[name]
	if !ok {
		return fmt.Errorf("%w: page %q", ErrPageNotFound, name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render: failed to execute page %s: %w", name, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// Text renders a text template such as robots.txt or sitemap.xml
func (r *Renderer) Text(w io.Writer, name string, data any) error {
	_, texts, err := r.templates()
	if err != nil {
		return err
	}

	t := texts.Lookup(name)
	if t == nil {
		return fmt.Errorf("%w: text %q", ErrPageNotFound, name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Errorf("render: failed to execute %s: %w", name, err)
	}
	_, err = buf.WriteTo(w)
	return err
}
