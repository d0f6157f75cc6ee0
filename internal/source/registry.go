// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"vocabserve/internal/hierarchy"
	"vocabserve/internal/models"
	"vocabserve/internal/sparql"
)

// Registry access point kinds.
const (
	accessSPARQL   = "apiSparql"
	accessFile     = "file"
	accessWebPage  = "webPage"
	statusCurrent  = "current"
	registryPrefix = "/vocabularies"
)

// registryVocabulary is a vocabulary as described by the registry API.
type registryVocabulary struct {
	ID          registryID        `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Owner       string            `json:"owner"`
	URI         string            `json:"uri"`
	Versions    []registryVersion `json:"version"`
}

// registryID accepts both numeric and string identifiers.
type registryID string

func (r *registryID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = registryID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("registry id: %w", err)
	}
	*r = registryID(n.String())
	return nil
}

type registryVersion struct {
	Status       string                `json:"status"`
	Title        string                `json:"title"`
	ReleaseDate  string                `json:"release-date"`
	AccessPoints []registryAccessPoint `json:"access-point"`
}

type registryAccessPoint struct {
	Discriminator string `json:"discriminator"`
	URL           string `json:"url"`
}

type registryList struct {
	Vocabularies []registryVocabulary `json:"vocabulary"`
}

// current returns the current version, or the first one listed.
func (r registryVocabulary) current() (registryVersion, bool) {
	for _, v := range r.Versions {
		if v.Status == statusCurrent {
			return v, true
		}
	}
	if len(r.Versions) > 0 {
		return r.Versions[0], true
	}
	return registryVersion{}, false
}

// RegistryAdapter discovers vocabularies through a registry API and reads
// their content from the SPARQL endpoint the registry lists for the
// current version. Its hierarchy comes from endpoint-computed depths.
type RegistryAdapter struct {
	*SPARQLAdapter
	base string
	ids  []string
	http *http.Client
}

// NewRegistry creates a registry adapter.
func NewRegistry(s Settings, opts Options) (*RegistryAdapter, error) {
	inner, err := NewSPARQL(Settings{
		Name:        s.Name,
		Kind:        models.SourceRegistry,
		Credentials: s.Credentials,
		NamedGraphs: s.NamedGraphs,
		ChaseSameAs: s.ChaseSameAs,
		URIFilter:   s.URIFilter,
	}, opts)
	if err != nil {
		return nil, err
	}
	inner.kind = models.SourceRegistry
	if s.RegistryURL == "" {
		return nil, fmt.Errorf("source %q: registry url is required", s.Name)
	}
	return &RegistryAdapter{
		SPARQLAdapter: inner,
		base:          strings.TrimRight(s.RegistryURL, "/"),
		ids:           s.RegistryIDs,
		http:          inner.opts.HTTP,
	}, nil
}

func (a *RegistryAdapter) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+path, nil)
	if err != nil {
		return fmt.Errorf("registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: registry http: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: registry read body: %v", ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("registry %s: %w", path, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: registry returned %d: %s", ErrUnavailable, resp.StatusCode, truncateBody(body))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("registry decode %s: %w", path, err)
	}
	return nil
}

func truncateBody(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "..."
	}
	return string(b)
}

// fetch loads the configured registry entries, or all when none are named.
func (a *RegistryAdapter) fetch(ctx context.Context) ([]registryVocabulary, error) {
	if len(a.ids) == 0 {
		var list registryList
		if err := a.get(ctx, registryPrefix, &list); err != nil {
			return nil, err
		}
		return list.Vocabularies, nil
	}
	out := make([]registryVocabulary, 0, len(a.ids))
	for _, id := range a.ids {
		var rv registryVocabulary
		if err := a.get(ctx, registryPrefix+"/"+url.PathEscape(id), &rv); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, nil
}

// record maps a registry entry onto a vocabulary. Entries without a
// usable identity are skipped.
func (a *RegistryAdapter) record(rv registryVocabulary) (*models.Vocabulary, bool) {
	id := rv.Slug
	if id == "" {
		id = VocabIDFromURI(rv.URI)
	}
	if id == "" {
		id = string(rv.ID)
	}
	if id == "" || rv.URI == "" {
		slog.Warn("skipping registry entry without id or uri", "registry", a.base, "title", rv.Title)
		return nil, false
	}
	if a.filter != nil && !a.filter.MatchString(rv.URI) {
		return nil, false
	}

	v := &models.Vocabulary{
		ID:               id,
		URI:              VocabURIFromSchemeURI(rv.URI),
		ConceptSchemeURI: rv.URI,
		Title:            rv.Title,
		Description:      rv.Description,
		Creator:          rv.Owner,
		Source:           models.SourceRegistry,
		SparqlUsername:   a.settings.Credentials.Username,
		SparqlPassword:   a.settings.Credentials.Password,
	}
	if v.Title == "" {
		v.Title = MakeTitle(v.URI)
	}
	if ver, ok := rv.current(); ok {
		v.VersionInfo = ver.Title
		v.Modified = models.DateOnly(ver.ReleaseDate)
		for _, ap := range ver.AccessPoints {
			switch ap.Discriminator {
			case accessSPARQL:
				v.SparqlEndpoint = ap.URL
			case accessFile:
				v.DownloadURL = ap.URL
			case accessWebPage:
				v.AccessURL = ap.URL
			}
		}
	}
	return v, true
}

// Collect loads vocabulary records from the registry.
func (a *RegistryAdapter) Collect(ctx context.Context) ([]*models.Vocabulary, error) {
	entries, err := a.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", a.base, err)
	}

	out := make([]*models.Vocabulary, 0, len(entries))
	known := make(map[string]*models.Vocabulary, len(entries))
	for _, rv := range entries {
		v, ok := a.record(rv)
		if !ok {
			continue
		}
		if v.SparqlEndpoint == "" {
			slog.Warn("registry vocabulary has no sparql access point", "vocab_id", v.ID)
		}
		known[v.ID] = v.Clone()
		out = append(out, v)
	}

	a.mu.Lock()
	a.known = known
	a.mu.Unlock()

	slog.Info("registry source collected", "source", a.settings.Name, "vocabularies", len(out))
	return out, nil
}

// ListVocabularies enumerates registry entries without contacting any
// SPARQL endpoint.
func (a *RegistryAdapter) ListVocabularies(ctx context.Context) (map[string]Summary, error) {
	entries, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Summary, len(entries))
	for _, rv := range entries {
		if v, ok := a.record(rv); ok {
			out[v.ID] = Summary{Title: v.Title, URI: v.URI, Source: models.SourceRegistry}
		}
	}
	return out, nil
}

// GetVocabulary reads one entry back from the registry.
func (a *RegistryAdapter) GetVocabulary(ctx context.Context, id string) (*models.Vocabulary, error) {
	a.mu.RLock()
	_, ok := a.known[id]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vocabulary %s: %w", id, ErrNotFound)
	}
	entries, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, rv := range entries {
		if v, ok := a.record(rv); ok && v.ID == id {
			return v, nil
		}
	}
	return nil, fmt.Errorf("vocabulary %s: %w", id, ErrNotFound)
}

// Hierarchy places each concept below its stated parent using the
// endpoint-computed distance from the scheme for ordering.
func (a *RegistryAdapter) Hierarchy(ctx context.Context, v *models.Vocabulary, lang string) (hierarchy.Result, error) {
	lang = a.lang(lang)
	if err := checkIRI(v.ConceptSchemeURI); err != nil {
		return hierarchy.Result{}, nil
	}
	rows, err := a.query(ctx, v, a.dialect.depthHierarchyQuery(v.ConceptSchemeURI, lang))
	if err != nil {
		return hierarchy.Result{}, listing(err)
	}
	return hierarchy.BuildFromDepths(depthRowsFromRows(rows, v.ConceptSchemeURI)), nil
}

// depthRowsFromRows converts (length, c, pl, parent) rows. A parent equal
// to the scheme marks a top concept.
func depthRowsFromRows(rows []sparql.Row, scheme string) []hierarchy.DepthRow {
	out := make([]hierarchy.DepthRow, 0, len(rows))
	for _, r := range rows {
		if r.Require("c", "parent") != nil {
			continue
		}
		depth, _ := strconv.Atoi(r.Value("length"))
		label := r.Value("pl")
		if label == "" {
			label = MakeTitle(r.Value("c"))
		}
		parent := r.Value("parent")
		if parent == scheme {
			parent = ""
		}
		out = append(out, hierarchy.DepthRow{URI: r.Value("c"), Label: label, ParentURI: parent, Depth: depth})
	}
	return out
}
