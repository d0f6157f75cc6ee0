// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vocabserve/internal/models"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	rn, err := New(false)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	return rn
}

// --------------------------------------------------------------------------
// TestNew: every page template is parsed
// --------------------------------------------------------------------------

func TestNew(t *testing.T) {
	rn := newRenderer(t)
	for _, name := range []string{
		"index", "vocabularies", "vocabulary", "concepts", "collections", "register",
		"concept", "collection", "alternates", "about", "error",
	} {
		if !rn.Has(name) {
			t.Errorf("expected template %q to be parsed", name)
		}
	}
	if rn.Has("base") {
		t.Error("base layout must not be a page of its own")
	}
}

func TestDevModeMarksNoindex(t *testing.T) {
	for _, dev := range []bool{true, false} {
		rn, err := New(dev)
		if err != nil {
			t.Fatal(err)
		}
		out, err := rn.Bytes("index", &PageData{Title: "Home", Data: map[string]any{"Count": 0}})
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.Contains(string(out), "noindex"); got != dev {
			t.Errorf("dev=%v: noindex present = %v", dev, got)
		}
	}
}

// --------------------------------------------------------------------------
// Page rendering
// --------------------------------------------------------------------------

func TestPageRendering(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/vocabulary/", nil)

	rn.Page(w, req, http.StatusOK, "vocabularies", &PageData{
		Title:   "Vocabularies",
		Section: "vocabularies",
		Data: map[string]any{
			"Vocabularies": []*models.Vocabulary{
				{ID: "rocks", Title: "Rock <Types>", Source: models.SourceSPARQL, Modified: "2024-01-02"},
			},
		},
		Alternates: []Alternate{{MediaType: "application/json", URL: "/vocabulary/?_format=json"}},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type: got %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{
		`<a href="/vocabulary/rocks">Rock &lt;Types&gt;</a>`,
		`<a href="/vocabulary/" class="active">`,
		`rel="alternate" type="application/json"`,
		"2024-01-02",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestVocabularyPage(t *testing.T) {
	rn := newRenderer(t)
	v := &models.Vocabulary{
		ID: "rocks", Title: "Rocks", URI: "http://ex/rocks", ConceptSchemeURI: "http://ex/rocks",
		TopConcepts: []models.Labelled{{URI: "http://ex/rocks/igneous", Label: "Igneous"}},
		Hierarchy: &models.Hierarchy{
			Entries: []models.HierarchyEntry{{Level: 1, URI: "http://ex/rocks/igneous", Label: "Igneous"}},
			HTML:    template.HTML(`<ul><li><a href="x">Igneous</a></li></ul>`),
		},
	}

	tests := []struct {
		name  string
		local bool
		want  string
	}{
		{"remote links", false, `href="http://ex/rocks/igneous"`},
		{"local links", true, `href="/object?uri=http%3a%2f%2fex%2frocks%2figneous&amp;vocab_id=rocks"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := rn.Bytes("vocabulary", &PageData{
				Title: v.Title, VocabID: v.ID, Local: tt.local,
				Data: map[string]any{"Vocab": v},
			})
			if err != nil {
				t.Fatal(err)
			}
			body := strings.ToLower(string(out))
			if !strings.Contains(body, strings.ToLower(tt.want)) {
				t.Errorf("body missing %s:\n%s", tt.want, out)
			}
			if !strings.Contains(string(out), `<ul><li><a href="x">Igneous</a></li></ul>`) {
				t.Error("hierarchy HTML should be inserted unescaped")
			}
		})
	}
}

func TestConceptPage(t *testing.T) {
	rn := newRenderer(t)
	c := &models.Concept{
		VocabID: "rocks", URI: "http://ex/rocks/granite", PrefLabel: "Granite",
		Definition: "A coarse rock.", AltLabels: []string{"Granit", "Grey rock"},
		Broaders: []models.Labelled{{URI: "http://ex/rocks/igneous", Label: "Igneous"}},
		RelatedObjects: []models.Relationship{{
			Predicate: "http://www.w3.org/2004/02/skos/core#prefLabel",
			Label:     models.MultilingualLabels,
			Objects:   []models.RelatedObject{{Value: "Granit (de)"}},
		}},
	}
	out, err := rn.Bytes("concept", &PageData{
		Title: c.PrefLabel, VocabID: "rocks",
		Data: map[string]any{"Vocab": &models.Vocabulary{ID: "rocks", Title: "Rocks"}, "Concept": c},
	})
	if err != nil {
		t.Fatal(err)
	}
	body := string(out)
	for _, want := range []string{"<h1>Granite</h1>", "Granit, Grey rock", "Igneous", "Granit (de)", "A coarse rock."} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestErrorPageIsStandalone(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()
	rn.Page(w, httptest.NewRequest(http.MethodGet, "/x", nil), http.StatusNotFound, "error", &PageData{
		Title: "Not Found",
		Data:  map[string]any{"Status": 404, "Message": "no such vocabulary"},
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "no such vocabulary") {
		t.Error("message missing")
	}
	if strings.Contains(body, `class="brand"`) {
		t.Error("error page should not use the base layout")
	}
}

// --------------------------------------------------------------------------
// TestMissingTemplate: Page() with nonexistent template returns 500
// --------------------------------------------------------------------------

func TestMissingTemplate(t *testing.T) {
	rn := newRenderer(t)
	w := httptest.NewRecorder()
	rn.Page(w, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "nonexistent_template", &PageData{})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestHref(t *testing.T) {
	tests := []struct {
		name string
		page PageData
		want string
	}{
		{"remote", PageData{VocabID: "rocks"}, "http://ex/a"},
		{"local", PageData{VocabID: "rocks", Local: true}, "/object?uri=http%3A%2F%2Fex%2Fa&vocab_id=rocks"},
		{"local without vocabulary", PageData{Local: true}, "http://ex/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.Href("http://ex/a"); got != tt.want {
				t.Errorf("Href = %q, want %q", got, tt.want)
			}
		})
	}
}
