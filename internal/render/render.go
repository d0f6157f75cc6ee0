// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the vocabulary
// pages. Every page template is paired with the base layout; the error
// page is standalone so it renders even when page data is incomplete.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"vocabserve/internal/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData holds all data passed to page templates.
type PageData struct {
	Title   string         // Page title for <title> tag
	Section string         // Active navigation section ("vocabularies", "about")
	Lang    string         // Language the page is rendered in
	VocabID string         // Vocabulary the page belongs to, if any
	Local   bool           // Link resources to the local object view
	Data    map[string]any // Page-specific data

	// Alternates lists the other representations of this resource.
	Alternates []Alternate
}

// Alternate is one view/format combination of a resource.
type Alternate struct {
	View      string `json:"view"`
	MediaType string `json:"media_type"`
	URL       string `json:"url"`
}

// Href returns the link target for a resource of the page's vocabulary.
func (p *PageData) Href(uri string) string {
	if !p.Local || p.VocabID == "" {
		return uri
	}
	return catalog.ObjectPath(p.VocabID, uri)
}

// Renderer handles template parsing and execution.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

// standaloneTemplates lists templates that render as full HTML pages
// without the base layout.
var standaloneTemplates = map[string]bool{
	"error": true,
}

// New creates a Renderer by parsing all page templates from the embedded
// filesystem. When devMode is true pages are marked noindex.
func New(devMode bool) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap: template.FuncMap{
			// isDev returns true when the app runs in development mode.
			"isDev": func() bool {
				return devMode
			},
			"join": strings.Join,
		},
	}

	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "base.html" || !strings.HasSuffix(name, ".html") {
			continue
		}
		tmplName := strings.TrimSuffix(name, ".html")

		var tmpl *template.Template
		var parseErr error
		if standaloneTemplates[tmplName] {
			tmpl, parseErr = template.New(name).Funcs(r.funcMap).ParseFS(templateFS, "templates/"+name)
		} else {
			tmpl, parseErr = template.New("base.html").Funcs(r.funcMap).ParseFS(
				templateFS, "templates/base.html", "templates/"+name,
			)
		}
		if parseErr != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, parseErr)
		}
		r.templates[tmplName] = tmpl
	}

	return r, nil
}

// Has reports whether a page template exists.
func (rn *Renderer) Has(name string) bool {
	_, ok := rn.templates[name]
	return ok
}

// Render executes a page template into w.
func (rn *Renderer) Render(w io.Writer, name string, data *PageData) error {
	tmpl, ok := rn.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	execName := "base.html"
	if standaloneTemplates[name] {
		execName = name + ".html"
	}
	return tmpl.ExecuteTemplate(w, execName, data)
}

// Bytes renders a page template into memory.
func (rn *Renderer) Bytes(name string, data *PageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := rn.Render(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Page renders a full page with the given status. The page is rendered
// into memory first so a template failure still yields a clean 500.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	body, err := rn.Bytes(name, data)
	if err != nil {
		slog.Error("template render failed", "template", name, "path", r.URL.Path, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}
