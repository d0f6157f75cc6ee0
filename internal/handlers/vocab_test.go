// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"vocabserve/internal/catalog"
	"vocabserve/internal/models"
	"vocabserve/internal/render"
	"vocabserve/internal/source"
)

// ---------- Helpers ----------

const rocksTTL = `@prefix skos: <http://www.w3.org/2004/02/skos/core#> .
@prefix dct: <http://purl.org/dc/terms/> .
@prefix rocks: <http://ex.org/def/rocks/> .

<http://ex.org/def/rocks> a skos:ConceptScheme ;
    skos:prefLabel "Rock Types"@en ;
    dct:description "Types of rock." ;
    skos:hasTopConcept rocks:igneous .
rocks:igneous a skos:Concept ; skos:inScheme <http://ex.org/def/rocks> ;
    skos:prefLabel "Igneous"@en ; skos:narrower rocks:granite .
rocks:granite a skos:Concept ; skos:inScheme <http://ex.org/def/rocks> ;
    skos:prefLabel "Granite"@en , "Granit"@de ;
    skos:definition "A coarse-grained rock."@en ;
    skos:broader rocks:igneous .
rocks:plutonic a skos:Collection ;
    skos:prefLabel "Plutonic"@en ;
    skos:member rocks:granite .
`

const (
	graniteURI  = "http://ex.org/def/rocks/granite"
	plutonicURI = "http://ex.org/def/rocks/plutonic"
)

type stubRuns struct {
	runs []catalog.CollectRun
	err  error
}

func (s stubRuns) RecentRuns(ctx context.Context, limit int) ([]catalog.CollectRun, error) {
	return s.runs, s.err
}

// newTestServer collects a one-file catalog and mounts the handlers the
// way the router does.
func newTestServer(t *testing.T, opts Options) http.Handler {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rocks.ttl"), []byte(rocksTTL), 0o644); err != nil {
		t.Fatal(err)
	}
	ad := source.NewFile(source.Settings{Name: "files", Kind: models.SourceFile, Dir: dir}, source.Options{Language: "en"})
	cat := catalog.New(catalog.Options{Language: "en", LocalURLs: true})
	if err := cat.Collect(context.Background(), []source.Adapter{ad}); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if cat.Len() != 1 {
		t.Fatalf("catalog holds %d vocabularies, want 1", cat.Len())
	}

	rn, err := render.New(false)
	if err != nil {
		t.Fatal(err)
	}
	h := NewVocab(rn, cat, nil, opts)

	r := chi.NewRouter()
	r.Get("/", h.Index)
	r.Get("/vocabulary/", h.Vocabularies)
	r.Get("/vocabulary/{vocab_id}", h.Vocabulary)
	r.Get("/vocabulary/{vocab_id}/concept/", h.Concepts)
	r.Get("/vocabulary/{vocab_id}/collection/", h.Collections)
	r.Get("/concept/", h.AllConcepts)
	r.Get("/collection/", h.AllCollections)
	r.Get("/object", h.Object)
	r.Get("/about", h.About)
	r.Get("/health", h.Health)
	return r
}

func get(t *testing.T, srv http.Handler, target, accept string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

func expectBody(t *testing.T, rr *httptest.ResponseRecorder, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(rr.Body.String(), p) {
			t.Errorf("body should contain %q; got:\n%s", p, rr.Body.String())
		}
	}
}

// ---------- Index and register ----------

func TestIndex(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := get(t, srv, "/", "")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "publishes 1 controlled vocabularies")
	if got := rr.Header().Get("Vary"); got != "Accept, Accept-Language" {
		t.Errorf("Vary = %q", got)
	}

	rr = get(t, srv, "/", "application/json")
	expectStatus(t, rr, http.StatusOK)
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["vocabularies"] != float64(1) {
		t.Errorf("vocabularies = %v", body["vocabularies"])
	}

	expectStatus(t, get(t, srv, "/", "text/turtle"), http.StatusNotAcceptable)
}

func TestVocabularies(t *testing.T) {
	srv := newTestServer(t, Options{})

	t.Run("html", func(t *testing.T) {
		rr := get(t, srv, "/vocabulary/", "text/html")
		expectStatus(t, rr, http.StatusOK)
		expectBody(t, rr, "Rock Types", `href="/vocabulary/rocks"`, `rel="alternate"`)
	})

	t.Run("json", func(t *testing.T) {
		rr := get(t, srv, "/vocabulary/?_format=json", "")
		expectStatus(t, rr, http.StatusOK)
		var got []vocabularySummary
		if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ID != "rocks" || got[0].Href != "/vocabulary/rocks" || got[0].Source != models.SourceFile {
			t.Errorf("register = %+v", got)
		}
	})

	t.Run("turtle", func(t *testing.T) {
		rr := get(t, srv, "/vocabulary/", "text/turtle")
		expectStatus(t, rr, http.StatusOK)
		if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/turtle") {
			t.Errorf("Content-Type = %q", ct)
		}
		expectBody(t, rr, "Rock Types", "http://www.w3.org/ns/dcat#")
	})

	t.Run("unknown format", func(t *testing.T) {
		expectStatus(t, get(t, srv, "/vocabulary/?_format=text/csv", ""), http.StatusNotAcceptable)
	})
}

// ---------- Vocabulary views ----------

func TestVocabulary_DCAT(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := get(t, srv, "/vocabulary/rocks", "")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "<h1>Rock Types</h1>", "Types of rock.", "Igneous", "Concept hierarchy")

	rr = get(t, srv, "/vocabulary/rocks", "application/json")
	expectStatus(t, rr, http.StatusOK)
	var v models.Vocabulary
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v.ID != "rocks" || len(v.TopConcepts) != 1 || v.TopConcepts[0].Label != "Igneous" {
		t.Errorf("vocabulary = %+v", v)
	}
	if v.Hierarchy == nil || len(v.Hierarchy.Entries) != 2 {
		t.Errorf("hierarchy = %+v", v.Hierarchy)
	}
	if len(v.Collections) != 1 {
		t.Errorf("collections = %+v", v.Collections)
	}

	rr = get(t, srv, "/vocabulary/rocks?_format=application/n-triples", "")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "<http://ex.org/def/rocks> <http://purl.org/dc/terms/title>")
}

func TestVocabulary_SKOS(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := get(t, srv, "/vocabulary/rocks?_view=skos&_format=text/turtle", "")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "rocks/granite", "Granit")

	rr = get(t, srv, "/vocabulary/rocks?_view=skos", "application/json")
	expectStatus(t, rr, http.StatusOK)
	var concepts []models.ConceptSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &concepts); err != nil {
		t.Fatal(err)
	}
	if len(concepts) != 2 {
		t.Errorf("got %d concepts, want 2", len(concepts))
	}

	rr = get(t, srv, "/vocabulary/rocks?_view=skos", "")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "Concepts of", "A coarse-grained rock.")
}

func TestVocabulary_Alternates(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := get(t, srv, "/vocabulary/rocks?_view=alternates&_format=json", "")
	expectStatus(t, rr, http.StatusOK)
	var body struct {
		Resource   string             `json:"resource"`
		Alternates []render.Alternate `json:"alternates"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Resource != "http://ex.org/def/rocks" {
		t.Errorf("resource = %q", body.Resource)
	}
	if len(body.Alternates) != 10 {
		t.Fatalf("got %d alternates, want 10", len(body.Alternates))
	}
	if u := body.Alternates[0].URL; !strings.HasPrefix(u, "/vocabulary/rocks?") || !strings.Contains(u, "_view=dcat") {
		t.Errorf("first alternate URL = %q", u)
	}

	rr = get(t, srv, "/vocabulary/rocks?_view=alternates", "")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "Alternate representations")

	expectStatus(t, get(t, srv, "/vocabulary/rocks?_view=alternates&_format=text/turtle", ""), http.StatusNotAcceptable)
}

func TestVocabulary_Errors(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := get(t, srv, "/vocabulary/granite", "")
	expectStatus(t, rr, http.StatusNotFound)
	expectBody(t, rr, "No vocabulary with that id is known.")

	rr = get(t, srv, "/vocabulary/granite", "application/json")
	expectStatus(t, rr, http.StatusNotFound)
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	expectStatus(t, get(t, srv, "/vocabulary/rocks?_view=owl", ""), http.StatusNotAcceptable)
}

// ---------- Registers ----------

func TestConceptsAndCollections(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := get(t, srv, "/vocabulary/rocks/concept/", "")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "Granite", "Igneous", "/object?uri=")

	rr = get(t, srv, "/vocabulary/rocks/concept/", "application/n-triples")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "<"+graniteURI+"> <http://www.w3.org/2004/02/skos/core#inScheme> <http://ex.org/def/rocks>")

	rr = get(t, srv, "/vocabulary/rocks/collection/", "application/json")
	expectStatus(t, rr, http.StatusOK)
	var cols []models.Labelled
	if err := json.Unmarshal(rr.Body.Bytes(), &cols); err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 || cols[0].URI != plutonicURI || cols[0].Label != "Plutonic" {
		t.Errorf("collections = %+v", cols)
	}

	expectStatus(t, get(t, srv, "/vocabulary/nope/concept/", ""), http.StatusNotFound)
}

func TestAllConceptsAndCollections(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := get(t, srv, "/concept/", "")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "Rock Types", "Granite", "Igneous", "/object?uri=", `href="/vocabulary/rocks"`)

	rr = get(t, srv, "/concept/", "application/json")
	expectStatus(t, rr, http.StatusOK)
	var concepts []registerItem
	if err := json.Unmarshal(rr.Body.Bytes(), &concepts); err != nil {
		t.Fatal(err)
	}
	if len(concepts) != 2 {
		t.Fatalf("concepts = %+v, want 2", concepts)
	}
	for _, c := range concepts {
		if c.VocabID != "rocks" || !strings.HasPrefix(c.Href, "/object?") {
			t.Errorf("concept = %+v", c)
		}
	}

	rr = get(t, srv, "/collection/", "application/n-triples")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "<"+plutonicURI+"> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/2004/02/skos/core#Collection>")

	rr = get(t, srv, "/collection/", "application/json")
	expectStatus(t, rr, http.StatusOK)
	var cols []registerItem
	if err := json.Unmarshal(rr.Body.Bytes(), &cols); err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 || cols[0].URI != plutonicURI || cols[0].Label != "Plutonic" {
		t.Errorf("collections = %+v", cols)
	}

	rr = get(t, srv, "/collection/?_view=alternates", "application/json")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, `"resource":"/collection/"`)
}

// ---------- Object ----------

func TestObject(t *testing.T) {
	srv := newTestServer(t, Options{})

	t.Run("concept", func(t *testing.T) {
		rr := get(t, srv, "/object?vocab_id=rocks&uri="+graniteURI, "")
		expectStatus(t, rr, http.StatusOK)
		expectBody(t, rr, "<h1>Granite</h1>", "A coarse-grained rock.", "Igneous")
	})

	t.Run("concept in another language", func(t *testing.T) {
		rr := get(t, srv, "/object?vocab_id=rocks&lang=de&uri="+graniteURI, "")
		expectStatus(t, rr, http.StatusOK)
		expectBody(t, rr, "<h1>Granit</h1>")
	})

	t.Run("concept as turtle", func(t *testing.T) {
		rr := get(t, srv, "/object?vocab_id=rocks&uri="+graniteURI, "text/turtle")
		expectStatus(t, rr, http.StatusOK)
		expectBody(t, rr, "Granite")
	})

	t.Run("vocabulary found from the uri", func(t *testing.T) {
		rr := get(t, srv, "/object?_format=json&uri="+graniteURI, "")
		expectStatus(t, rr, http.StatusOK)
		var c models.Concept
		if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
			t.Fatal(err)
		}
		if c.VocabID != "rocks" || c.PrefLabel != "Granite" {
			t.Errorf("concept = %+v", c)
		}
	})

	t.Run("collection", func(t *testing.T) {
		rr := get(t, srv, "/object?vocab_id=rocks&uri="+plutonicURI, "application/json")
		expectStatus(t, rr, http.StatusOK)
		var c models.Collection
		if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
			t.Fatal(err)
		}
		if c.PrefLabel != "Plutonic" || len(c.Members) != 1 {
			t.Errorf("collection = %+v", c)
		}
	})

	t.Run("scheme redirects to the vocabulary", func(t *testing.T) {
		rr := get(t, srv, "/object?vocab_id=rocks&_format=json&uri=http://ex.org/def/rocks", "")
		expectStatus(t, rr, http.StatusSeeOther)
		if loc := rr.Header().Get("Location"); loc != "/vocabulary/rocks?_format=json" {
			t.Errorf("Location = %q", loc)
		}
	})

	t.Run("missing uri redirects to the vocabulary", func(t *testing.T) {
		rr := get(t, srv, "/object?vocab_id=rocks", "")
		expectStatus(t, rr, http.StatusSeeOther)
		if loc := rr.Header().Get("Location"); loc != "/vocabulary/rocks" {
			t.Errorf("Location = %q", loc)
		}
	})

	t.Run("unknown resource", func(t *testing.T) {
		expectStatus(t, get(t, srv, "/object?vocab_id=rocks&uri=http://ex.org/def/rocks/chalk", ""), http.StatusNotFound)
	})

	t.Run("no owning vocabulary", func(t *testing.T) {
		expectStatus(t, get(t, srv, "/object?uri=http://elsewhere.org/x", ""), http.StatusNotFound)
	})

	t.Run("unknown view on a concept", func(t *testing.T) {
		expectStatus(t, get(t, srv, "/object?vocab_id=rocks&_view=dcat&uri="+graniteURI, ""), http.StatusNotAcceptable)
	})

	t.Run("bad parameters", func(t *testing.T) {
		for _, target := range []string{
			"/object",
			"/object?uri=granite",
			"/object?vocab_id=rocks&lang=not+a+tag!&uri=" + graniteURI,
		} {
			expectStatus(t, get(t, srv, target, ""), http.StatusBadRequest)
		}
	})
}

// ---------- About and health ----------

func TestAbout(t *testing.T) {
	srv := newTestServer(t, Options{About: "<p>Run by the survey.</p>"})
	rr := get(t, srv, "/about", "")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "<p>Run by the survey.</p>")
}

func TestHealth(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("with collect runs", func(t *testing.T) {
		runs := stubRuns{runs: []catalog.CollectRun{
			{Source: "gsq", Kind: models.SourceSPARQL, StartedAt: started, Err: "timeout", FromArchive: true, Vocabularies: 3},
		}}
		rr := get(t, newTestServer(t, Options{Runs: runs}), "/health", "")
		expectStatus(t, rr, http.StatusOK)
		var body struct {
			Status       string      `json:"status"`
			Vocabularies int         `json:"vocabularies"`
			Runs         []runStatus `json:"collect_runs"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Status != "ok" || body.Vocabularies != 1 {
			t.Errorf("body = %+v", body)
		}
		if len(body.Runs) != 1 || !body.Runs[0].FromArchive || body.Runs[0].StartedAt != "2026-03-01T09:30:00Z" {
			t.Errorf("runs = %+v", body.Runs)
		}
	})

	t.Run("run log failure is not fatal", func(t *testing.T) {
		rr := get(t, newTestServer(t, Options{Runs: stubRuns{err: errors.New("db down")}}), "/health", "")
		expectStatus(t, rr, http.StatusOK)
		if strings.Contains(rr.Body.String(), "collect_runs") {
			t.Errorf("body should omit runs: %s", rr.Body.String())
		}
	})
}

// ---------- Error mapping ----------

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad parameter", invalid("URI must be absolute."), http.StatusBadRequest},
		{"unknown vocabulary", catalog.ErrUnknownVocabulary, http.StatusNotFound},
		{"missing entity", errors.Join(errors.New("concept x"), source.ErrNotFound), http.StatusNotFound},
		{"unavailable", errors.Join(errors.New("query"), source.ErrUnavailable), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := status(tt.err); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}
