// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"vocabserve/internal/graph"
	"vocabserve/internal/hierarchy"
	"vocabserve/internal/models"
	"vocabserve/internal/source"
)

// ---------- Helpers ----------

// stubAdapter serves fixed records and counts content calls.
type stubAdapter struct {
	name   string
	kind   models.SourceKind
	vocabs []*models.Vocabulary
	err    error

	failTop   atomic.Bool
	topCalls  atomic.Int32
	treeCalls atomic.Int32
}

func (s *stubAdapter) Kind() models.SourceKind { return s.kind }
func (s *stubAdapter) Name() string            { return s.name }

func (s *stubAdapter) Collect(ctx context.Context) ([]*models.Vocabulary, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*models.Vocabulary, len(s.vocabs))
	for i, v := range s.vocabs {
		out[i] = v.Clone()
		out[i].Source = s.kind
	}
	return out, nil
}

func (s *stubAdapter) ListVocabularies(ctx context.Context) (map[string]source.Summary, error) {
	return nil, nil
}

func (s *stubAdapter) GetVocabulary(ctx context.Context, id string) (*models.Vocabulary, error) {
	return nil, source.ErrNotFound
}

func (s *stubAdapter) ListConcepts(ctx context.Context, v *models.Vocabulary, lang string) ([]models.ConceptSummary, error) {
	return nil, nil
}

func (s *stubAdapter) ListCollections(ctx context.Context, v *models.Vocabulary, lang string) ([]models.Labelled, error) {
	return []models.Labelled{{URI: v.URI + "/set", Label: "Set"}}, nil
}

func (s *stubAdapter) GetConcept(ctx context.Context, v *models.Vocabulary, uri, lang string) (*models.Concept, error) {
	return nil, source.ErrNotFound
}

func (s *stubAdapter) GetCollection(ctx context.Context, v *models.Vocabulary, uri, lang string) (*models.Collection, error) {
	return nil, source.ErrNotFound
}

func (s *stubAdapter) TopConcepts(ctx context.Context, v *models.Vocabulary, lang string) ([]models.Labelled, error) {
	s.topCalls.Add(1)
	if s.failTop.Load() {
		return nil, source.ErrUnavailable
	}
	return []models.Labelled{{URI: v.URI + "/a", Label: "A (" + lang + ")"}}, nil
}

func (s *stubAdapter) Hierarchy(ctx context.Context, v *models.Vocabulary, lang string) (hierarchy.Result, error) {
	s.treeCalls.Add(1)
	return hierarchy.Build([]hierarchy.Row{
		{URI: v.URI + "/a", Label: "A"},
		{URI: v.URI + "/b", Label: "B", BroaderURI: v.URI + "/a"},
		{URI: v.URI + "/x", Label: "X", BroaderURI: v.URI + "/gone"},
	}), nil
}

func (s *stubAdapter) ObjectClass(ctx context.Context, v *models.Vocabulary, uri string) (string, error) {
	return "", nil
}

func (s *stubAdapter) Graph(ctx context.Context, v *models.Vocabulary) (*graph.Graph, error) {
	return graph.New(), nil
}

func vocab(id, title, uri string) *models.Vocabulary {
	return &models.Vocabulary{ID: id, Title: title, URI: uri, ConceptSchemeURI: uri}
}

// memArchive is an in-memory Archive.
type memArchive struct {
	mu    sync.Mutex
	saved map[string][]*models.Vocabulary
	runs  []CollectRun
}

func newMemArchive() *memArchive {
	return &memArchive{saved: map[string][]*models.Vocabulary{}}
}

func (m *memArchive) SaveVocabularies(ctx context.Context, name string, vs []*models.Vocabulary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[name] = vs
	return nil
}

func (m *memArchive) LoadVocabularies(ctx context.Context, name string) ([]*models.Vocabulary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[name], nil
}

func (m *memArchive) LogRun(ctx context.Context, run CollectRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

// ---------- Collect ----------

func TestCollect_OrderAndLastWriteWins(t *testing.T) {
	reg := &stubAdapter{name: "reg", kind: models.SourceRegistry, vocabs: []*models.Vocabulary{
		vocab("rocks", "Rocks (registry)", "http://ex.org/def/rocks"),
	}}
	sparqlSrc := &stubAdapter{name: "sparql", kind: models.SourceSPARQL, vocabs: []*models.Vocabulary{
		vocab("rocks", "Rocks (sparql)", "http://ex.org/def/rocks"),
		vocab("soils", "Soils", "http://ex.org/def/soils"),
	}}
	files := &stubAdapter{name: "files", kind: models.SourceFile, vocabs: []*models.Vocabulary{
		vocab("soils", "Soils (file)", "http://ex.org/def/soils"),
		vocab("minerals", "Minerals", "http://ex.org/def/minerals"),
	}}

	c := New(Options{})
	// Passed out of order on purpose.
	if err := c.Collect(context.Background(), []source.Adapter{reg, sparqlSrc, files}); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	tests := []struct {
		id    string
		title string
		kind  models.SourceKind
	}{
		{"rocks", "Rocks (registry)", models.SourceRegistry},
		{"soils", "Soils", models.SourceSPARQL},
		{"minerals", "Minerals", models.SourceFile},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			a, v, err := c.Resolve(tt.id)
			if err != nil {
				t.Fatal(err)
			}
			if v.Title != tt.title || a.Kind() != tt.kind || v.Source != tt.kind {
				t.Errorf("got %q from %s, want %q from %s", v.Title, a.Kind(), tt.title, tt.kind)
			}
		})
	}
}

func TestCollect_FailureKeepsOthers(t *testing.T) {
	good := &stubAdapter{name: "files", kind: models.SourceFile, vocabs: []*models.Vocabulary{
		vocab("minerals", "Minerals", "http://ex.org/def/minerals"),
	}}
	bad := &stubAdapter{name: "sparql", kind: models.SourceSPARQL, err: source.ErrUnavailable}

	c := New(Options{})
	err := c.Collect(context.Background(), []source.Adapter{good, bad})
	if !errors.Is(err, source.ErrUnavailable) {
		t.Errorf("err = %v, want joined ErrUnavailable", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCollect_RecollectOverwritesChangedIDs(t *testing.T) {
	a := &stubAdapter{name: "files", kind: models.SourceFile, vocabs: []*models.Vocabulary{
		vocab("rocks", "Rocks", "http://ex.org/def/rocks"),
		vocab("soils", "Soils", "http://ex.org/def/soils"),
	}}
	c := New(Options{})
	if err := c.Collect(context.Background(), []source.Adapter{a}); err != nil {
		t.Fatal(err)
	}
	a.vocabs = []*models.Vocabulary{vocab("rocks", "Rocks v2", "http://ex.org/def/rocks")}
	if err := c.Collect(context.Background(), []source.Adapter{a}); err != nil {
		t.Fatal(err)
	}
	if _, v, _ := c.Resolve("rocks"); v.Title != "Rocks v2" {
		t.Errorf("rocks title = %q", v.Title)
	}
	if _, _, err := c.Resolve("soils"); err != nil {
		t.Errorf("soils dropped on re-collect: %v", err)
	}
}

func TestCollect_ArchiveFallback(t *testing.T) {
	arch := newMemArchive()
	a := &stubAdapter{name: "sparql", kind: models.SourceSPARQL, vocabs: []*models.Vocabulary{
		vocab("rocks", "Rocks", "http://ex.org/def/rocks"),
	}}

	first := New(Options{Archive: arch})
	if err := first.Collect(context.Background(), []source.Adapter{a}); err != nil {
		t.Fatal(err)
	}

	a.err = source.ErrUnavailable
	second := New(Options{Archive: arch})
	if err := second.Collect(context.Background(), []source.Adapter{a}); err == nil {
		t.Error("expected collect error")
	}
	if _, v, err := second.Resolve("rocks"); err != nil || v.Title != "Rocks" {
		t.Errorf("archived rocks = %+v, %v", v, err)
	}

	if len(arch.runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(arch.runs))
	}
	if arch.runs[0].Err != "" || arch.runs[0].Vocabularies != 1 {
		t.Errorf("first run = %+v", arch.runs[0])
	}
	if arch.runs[1].Err == "" || !arch.runs[1].FromArchive {
		t.Errorf("second run = %+v", arch.runs[1])
	}
}

func TestCollect_SkipsInvalidURI(t *testing.T) {
	a := &stubAdapter{name: "registry", kind: models.SourceRegistry, vocabs: []*models.Vocabulary{
		vocab("rocks", "Rocks", "http://ex.org/def/rocks"),
		vocab("relative", "Relative", "def/relative"),
		vocab("blank", "Blank", ""),
	}}
	c := New(Options{})
	if err := c.Collect(context.Background(), []source.Adapter{a}); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	for _, id := range []string{"relative", "blank"} {
		if _, _, err := c.Resolve(id); !errors.Is(err, ErrUnknownVocabulary) {
			t.Errorf("Resolve(%s) err = %v, want ErrUnknownVocabulary", id, err)
		}
	}
}

// ---------- Lookup ----------

func TestResolve_Unknown(t *testing.T) {
	c := New(Options{})
	if _, _, err := c.Resolve("nope"); !errors.Is(err, ErrUnknownVocabulary) {
		t.Errorf("err = %v, want ErrUnknownVocabulary", err)
	}
	if _, err := c.TopConcepts(context.Background(), "nope"); !errors.Is(err, ErrUnknownVocabulary) {
		t.Errorf("TopConcepts err = %v", err)
	}
}

func TestVocabularies_SortedByTitle(t *testing.T) {
	a := &stubAdapter{name: "files", kind: models.SourceFile, vocabs: []*models.Vocabulary{
		vocab("z", "Alpha", "http://ex/z"),
		vocab("b", "Gamma", "http://ex/b"),
		vocab("a", "Alpha", "http://ex/a"),
	}}
	c := New(Options{})
	c.Collect(context.Background(), []source.Adapter{a})

	var ids []string
	for _, v := range c.Vocabularies() {
		ids = append(ids, v.ID)
	}
	if got := strings.Join(ids, ","); got != "a,z,b" {
		t.Errorf("order = %s, want a,z,b", got)
	}
}

func TestFindByConceptURI(t *testing.T) {
	a := &stubAdapter{name: "files", kind: models.SourceFile, vocabs: []*models.Vocabulary{
		vocab("def", "Definitions", "http://ex.org/def"),
		vocab("rocks", "Rocks", "http://ex.org/def/rocks"),
		vocab("agift", "AGIFT", "https://data.naa.gov.au/def/agift/AGIFT"),
	}}
	c := New(Options{})
	c.Collect(context.Background(), []source.Adapter{a})

	tests := []struct {
		uri    string
		want   string
		wantOK bool
	}{
		{"http://ex.org/def/rocks/granite", "rocks", true},
		{"http://ex.org/def/soils/loam", "def", true},
		{"https://data.naa.gov.au/def/agift/3412", "agift", true},
		{"http://other.org/x", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, ok := c.FindByConceptURI(tt.uri)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("got (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ---------- Lazy fields ----------

func TestTopConcepts_ComputedOnce(t *testing.T) {
	a := &stubAdapter{name: "files", kind: models.SourceFile, vocabs: []*models.Vocabulary{
		vocab("rocks", "Rocks", "http://ex/rocks"),
	}}
	c := New(Options{Language: "fr"})
	c.Collect(context.Background(), []source.Adapter{a})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			top, err := c.TopConcepts(context.Background(), "rocks")
			if err != nil || len(top) != 1 || top[0].Label != "A (fr)" {
				t.Errorf("TopConcepts = %+v, %v", top, err)
			}
		}()
	}
	wg.Wait()
	if n := a.topCalls.Load(); n != 1 {
		t.Errorf("adapter called %d times, want 1", n)
	}
}

func TestTopConcepts_FailureIsRetried(t *testing.T) {
	a := &stubAdapter{name: "files", kind: models.SourceFile, vocabs: []*models.Vocabulary{
		vocab("rocks", "Rocks", "http://ex/rocks"),
	}}
	a.failTop.Store(true)
	c := New(Options{})
	c.Collect(context.Background(), []source.Adapter{a})

	if _, err := c.TopConcepts(context.Background(), "rocks"); !errors.Is(err, source.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	a.failTop.Store(false)
	top, err := c.TopConcepts(context.Background(), "rocks")
	if err != nil || len(top) != 1 {
		t.Errorf("after recovery: %+v, %v", top, err)
	}
	if n := a.topCalls.Load(); n != 2 {
		t.Errorf("adapter called %d times, want 2", n)
	}
}

func TestHierarchy_LocalURLs(t *testing.T) {
	tests := []struct {
		name     string
		local    bool
		wantHref string
	}{
		{"concept uris", false, `href="http://ex/rocks/a"`},
		{"local object view", true, `href="/object?uri=http%3A%2F%2Fex%2Frocks%2Fa&amp;vocab_id=rocks"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &stubAdapter{name: "files", kind: models.SourceFile, vocabs: []*models.Vocabulary{
				vocab("rocks", "Rocks", "http://ex/rocks"),
			}}
			c := New(Options{LocalURLs: tt.local})
			c.Collect(context.Background(), []source.Adapter{a})

			h, err := c.Hierarchy(context.Background(), "rocks")
			if err != nil {
				t.Fatal(err)
			}
			if len(h.Entries) != 3 {
				t.Errorf("entries = %+v", h.Entries)
			}
			if !strings.Contains(string(h.HTML), tt.wantHref) {
				t.Errorf("HTML missing %s:\n%s", tt.wantHref, h.HTML)
			}
			c.Hierarchy(context.Background(), "rocks")
			if n := a.treeCalls.Load(); n != 1 {
				t.Errorf("hierarchy computed %d times", n)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	a := &stubAdapter{name: "files", kind: models.SourceFile, vocabs: []*models.Vocabulary{
		vocab("rocks", "Rocks", "http://ex/rocks"),
	}}
	c := New(Options{})
	c.Collect(context.Background(), []source.Adapter{a})

	v, err := c.Describe(context.Background(), "rocks")
	if err != nil {
		t.Fatal(err)
	}
	if len(v.TopConcepts) != 1 || v.Hierarchy == nil || len(v.Collections) != 1 {
		t.Errorf("described = %+v", v)
	}
	_, stored, _ := c.Resolve("rocks")
	if stored.TopConcepts != nil || stored.Hierarchy != nil {
		t.Error("Describe must not modify the stored record")
	}
}

func TestHref(t *testing.T) {
	if got := New(Options{}).Href("rocks", "http://ex/rocks/a"); got != "http://ex/rocks/a" {
		t.Errorf("Href without LocalURLs = %q", got)
	}
	want := "/object?uri=http%3A%2F%2Fex%2Frocks%2Fa&vocab_id=rocks"
	if got := New(Options{LocalURLs: true}).Href("rocks", "http://ex/rocks/a"); got != want {
		t.Errorf("Href with LocalURLs = %q, want %q", got, want)
	}
	if got := New(Options{}).Language(); got != "en" {
		t.Errorf("default language = %q", got)
	}
}
