// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sync"

	"vocabserve/internal/graph"
	"vocabserve/internal/hierarchy"
	"vocabserve/internal/models"
	"vocabserve/internal/sparql"
)

// SPARQLAdapter serves vocabularies held in a remote triple store. One
// adapter handles a discovery endpoint plus any individually configured
// schemes; each vocabulary carries its own endpoint binding.
type SPARQLAdapter struct {
	settings Settings
	opts     Options
	dialect  dialect
	filter   *regexp.Regexp
	kind     models.SourceKind

	mu    sync.RWMutex
	known map[string]*models.Vocabulary
}

// NewSPARQL creates a SPARQL adapter.
func NewSPARQL(s Settings, opts Options) (*SPARQLAdapter, error) {
	re, err := compileFilter(s.URIFilter)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", s.Name, err)
	}
	return &SPARQLAdapter{
		settings: s,
		opts:     opts.withDefaults(),
		dialect:  dialect{NamedGraphs: s.NamedGraphs, ChaseSameAs: s.ChaseSameAs},
		filter:   re,
		kind:     models.SourceSPARQL,
		known:    make(map[string]*models.Vocabulary),
	}, nil
}

func (a *SPARQLAdapter) Kind() models.SourceKind { return a.kind }
func (a *SPARQLAdapter) Name() string            { return a.settings.Name }

func (a *SPARQLAdapter) lang(lang string) string {
	return cleanLang(lang, a.opts.Language)
}

// query runs a SELECT against the vocabulary's endpoint.
func (a *SPARQLAdapter) query(ctx context.Context, v *models.Vocabulary, q string) ([]sparql.Row, error) {
	endpoint, creds := a.binding(v)
	if endpoint == "" {
		return nil, fmt.Errorf("vocabulary %s has no sparql endpoint: %w", v.ID, ErrNotFound)
	}
	rows, err := a.opts.Client.Query(ctx, endpoint, q, creds)
	return rows, classify(err)
}

// binding returns the endpoint and login for v. Records restored from the
// archive carry no credentials; they take them from the configured
// vocabulary of the same id, or from the source when the endpoint matches.
// Registry sources always lend theirs.
func (a *SPARQLAdapter) binding(v *models.Vocabulary) (string, sparql.Credentials) {
	if v == nil || v.SparqlEndpoint == "" {
		return a.settings.Endpoint, a.settings.Credentials
	}
	creds := sparql.Credentials{Username: v.SparqlUsername, Password: v.SparqlPassword}
	if creds.Username != "" {
		return v.SparqlEndpoint, creds
	}
	for _, s := range a.settings.Vocabs {
		if s.ID == v.ID && s.SparqlEndpoint == v.SparqlEndpoint {
			return v.SparqlEndpoint, sparql.Credentials{Username: s.SparqlUsername, Password: s.SparqlPassword}
		}
	}
	if v.SparqlEndpoint == a.settings.Endpoint || a.kind == models.SourceRegistry {
		creds = a.settings.Credentials
	}
	return v.SparqlEndpoint, creds
}

// Collect runs the discovery query (when a discovery endpoint is
// configured) and resolves every individually configured scheme.
func (a *SPARQLAdapter) Collect(ctx context.Context) ([]*models.Vocabulary, error) {
	records := make(map[string]*models.Vocabulary)

	if a.settings.Endpoint != "" {
		rows, err := a.opts.Client.Query(ctx, a.settings.Endpoint,
			a.dialect.discoveryQuery(a.opts.Language, false), a.settings.Credentials)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", a.settings.Endpoint, classify(err))
		}
		for _, row := range rows {
			v, ok := a.recordFromRow(row, a.opts.Language)
			if !ok {
				continue
			}
			v.SparqlEndpoint = a.settings.Endpoint
			v.SparqlUsername = a.settings.Credentials.Username
			v.SparqlPassword = a.settings.Credentials.Password
			mergeDiscovered(records, v)
		}
	}

	for i := range a.settings.Vocabs {
		static := a.settings.Vocabs[i]
		v, err := a.resolveStatic(ctx, &static)
		if err != nil {
			slog.Warn("using configured metadata for vocabulary",
				"vocab_id", static.ID, "endpoint", static.SparqlEndpoint, "error", err)
			v = static.Clone()
		}
		records[v.ID] = v
	}

	out := make([]*models.Vocabulary, 0, len(records))
	a.mu.Lock()
	a.known = make(map[string]*models.Vocabulary, len(records))
	for _, v := range records {
		v.Source = a.kind
		a.known[v.ID] = v.Clone()
		out = append(out, v)
	}
	a.mu.Unlock()

	slog.Info("sparql source collected", "source", a.settings.Name, "vocabularies", len(out))
	return out, nil
}

// recordFromRow builds a vocabulary record from one discovery row. Rows
// with an unusable id or filtered out by URIFilter are skipped.
func (a *SPARQLAdapter) recordFromRow(row sparql.Row, lang string) (*models.Vocabulary, bool) {
	if !row.Has("conceptScheme") || !row["conceptScheme"].IsURI() {
		return nil, false
	}
	scheme := row.Value("conceptScheme")
	id := VocabIDFromURI(scheme)
	if id == "" {
		slog.Warn("cannot derive vocabulary id", "uri", scheme)
		return nil, false
	}
	if a.filter != nil && !a.filter.MatchString(scheme) {
		slog.Debug("skipping vocabulary", "vocab_id", id, "uri", scheme)
		return nil, false
	}
	v := schemeRecord(id, scheme, []sparql.Row{row}, lang)
	return v, true
}

// schemeRecord fills vocabulary metadata from scheme rows.
func schemeRecord(id, scheme string, rows []sparql.Row, lang string) *models.Vocabulary {
	pick := func(name string) string {
		var terms []sparql.Term
		for _, r := range rows {
			if r.Has(name) {
				terms = append(terms, r[name])
			}
		}
		s, _ := bestLiteral(terms, lang, true)
		if s == "" {
			for _, t := range terms {
				if t.Value != "" {
					return t.Value
				}
			}
		}
		return s
	}

	v := &models.Vocabulary{
		ID:               id,
		URI:              VocabURIFromSchemeURI(scheme),
		ConceptSchemeURI: scheme,
		Creator:          pick("creator"),
		Created:          models.DateOnly(pick("created")),
		Modified:         models.DateOnly(pick("modified")),
		VersionInfo:      pick("version"),
	}
	for _, name := range []string{"prefLabel", "title", "label"} {
		if t := pick(name); t != "" {
			v.Title = t
			break
		}
	}
	if v.Title == "" {
		v.Title = MakeTitle(scheme)
	}
	v.Description = pick("definition")
	if v.Description == "" {
		v.Description = pick("description")
	}
	return v
}

// resolveStatic fetches metadata for a configured scheme, keeping the
// configured id, title and bindings.
func (a *SPARQLAdapter) resolveStatic(ctx context.Context, static *models.Vocabulary) (*models.Vocabulary, error) {
	scheme := static.ConceptSchemeURI
	if scheme == "" {
		scheme = static.URI
	}
	if err := checkIRI(scheme); err != nil {
		return nil, err
	}
	rows, err := a.query(ctx, static, a.dialect.schemeQuery(scheme, a.opts.Language))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("scheme %s: %w", scheme, ErrNotFound)
	}
	v := schemeRecord(static.ID, scheme, rows, a.opts.Language)
	if static.Title != "" {
		v.Title = static.Title
	}
	if static.URI != "" {
		v.URI = static.URI
	}
	v.SparqlEndpoint = static.SparqlEndpoint
	v.SparqlUsername = static.SparqlUsername
	v.SparqlPassword = static.SparqlPassword
	v.AccessURL = static.AccessURL
	v.DownloadURL = static.DownloadURL
	return v, nil
}

// ListVocabularies lists concept schemes and collections published by the
// discovery endpoint plus the configured schemes.
func (a *SPARQLAdapter) ListVocabularies(ctx context.Context) (map[string]Summary, error) {
	out := make(map[string]Summary)
	uris := make(map[string]string)
	if a.settings.Endpoint != "" {
		rows, err := a.opts.Client.Query(ctx, a.settings.Endpoint,
			a.dialect.discoveryQuery(a.opts.Language, true), a.settings.Credentials)
		if err != nil {
			return nil, classify(err)
		}
		for _, row := range rows {
			v, ok := a.recordFromRow(row, a.opts.Language)
			if !ok {
				continue
			}
			title := MakeTitle(v.ConceptSchemeURI)
			if t := row.Value("title"); t != "" {
				title = t
			} else if l := row.Value("label"); l != "" {
				title = l
			}
			if prev, ok := uris[v.ID]; ok && !preferURI(v.ConceptSchemeURI, prev) {
				continue
			}
			uris[v.ID] = v.ConceptSchemeURI
			out[v.ID] = Summary{Title: title, URI: v.URI, Source: a.kind}
		}
	}
	for _, v := range a.settings.Vocabs {
		title := v.Title
		if title == "" {
			title = MakeTitle(v.URI)
		}
		out[v.ID] = Summary{Title: title, URI: v.URI, Source: a.kind}
	}
	return out, nil
}

// GetVocabulary re-reads the scheme metadata of a collected vocabulary.
func (a *SPARQLAdapter) GetVocabulary(ctx context.Context, id string) (*models.Vocabulary, error) {
	a.mu.RLock()
	known, ok := a.known[id]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vocabulary %s: %w", id, ErrNotFound)
	}
	v, err := a.resolveStatic(ctx, known)
	if err != nil {
		return nil, err
	}
	v.Source = a.kind
	return v, nil
}

func (a *SPARQLAdapter) ListConcepts(ctx context.Context, v *models.Vocabulary, lang string) ([]models.ConceptSummary, error) {
	lang = a.lang(lang)
	if err := checkIRI(v.ConceptSchemeURI); err != nil {
		return nil, nil
	}
	rows, err := a.query(ctx, v, a.dialect.conceptsQuery(v.ConceptSchemeURI, lang))
	if err != nil {
		return nil, listing(err)
	}
	return conceptSummariesFromRows(rows, lang), nil
}

func (a *SPARQLAdapter) ListCollections(ctx context.Context, v *models.Vocabulary, lang string) ([]models.Labelled, error) {
	lang = a.lang(lang)
	if err := checkIRI(v.ConceptSchemeURI); err != nil {
		return nil, nil
	}
	rows, err := a.query(ctx, v, a.dialect.collectionsQuery(v.ConceptSchemeURI, lang))
	if err != nil {
		return nil, listing(err)
	}
	return labelledFromRows(rows, varCollection, varLabel, lang), nil
}

func (a *SPARQLAdapter) GetConcept(ctx context.Context, v *models.Vocabulary, uri, lang string) (*models.Concept, error) {
	lang = a.lang(lang)
	if err := checkIRI(uri); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	rows, err := a.query(ctx, v, a.dialect.conceptQuery(uri, lang))
	if err != nil {
		return nil, err
	}
	return conceptFromRows(v.ID, uri, lang, rows)
}

func (a *SPARQLAdapter) GetCollection(ctx context.Context, v *models.Vocabulary, uri, lang string) (*models.Collection, error) {
	lang = a.lang(lang)
	if err := checkIRI(uri); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	meta, err := a.query(ctx, v, a.dialect.collectionQuery(uri, lang))
	if err != nil {
		return nil, err
	}
	members, err := a.query(ctx, v, a.dialect.membersQuery(uri, lang))
	if err != nil {
		return nil, err
	}
	return collectionFromRows(v.ID, uri, lang, meta, members)
}

// TopConcepts returns the declared top concepts or, when the scheme
// declares none, the concepts of the scheme without a broader concept.
func (a *SPARQLAdapter) TopConcepts(ctx context.Context, v *models.Vocabulary, lang string) ([]models.Labelled, error) {
	lang = a.lang(lang)
	if err := checkIRI(v.ConceptSchemeURI); err != nil {
		return nil, nil
	}
	rows, err := a.query(ctx, v, a.dialect.topConceptsQuery(v.ConceptSchemeURI, lang))
	if err != nil {
		return nil, listing(err)
	}
	if tops := topConceptsFromRows(rows, lang); len(tops) > 0 {
		return tops, nil
	}
	rows, err = a.query(ctx, v, a.dialect.parentlessQuery(v.ConceptSchemeURI, lang))
	if err != nil {
		return nil, listing(err)
	}
	return topConceptsFromRows(rows, lang), nil
}

func (a *SPARQLAdapter) Hierarchy(ctx context.Context, v *models.Vocabulary, lang string) (hierarchy.Result, error) {
	lang = a.lang(lang)
	if err := checkIRI(v.ConceptSchemeURI); err != nil {
		return hierarchy.Result{}, nil
	}
	rows, err := a.query(ctx, v, a.dialect.hierarchyQuery(v.ConceptSchemeURI, lang))
	if err != nil {
		return hierarchy.Result{}, listing(err)
	}
	return hierarchy.Build(hierarchyRowsFromRows(rows, lang)), nil
}

func (a *SPARQLAdapter) ObjectClass(ctx context.Context, v *models.Vocabulary, uri string) (string, error) {
	if err := checkIRI(uri); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	rows, err := a.query(ctx, v, a.dialect.classQuery(uri))
	if err != nil {
		return "", err
	}
	var types []string
	for _, r := range rows {
		if r[varClass].IsURI() {
			types = append(types, r.Value(varClass))
		}
	}
	return pickObjectClass(types), nil
}

// Graph downloads the scheme with a CONSTRUCT query. Downloads are kept
// under CacheDir for CacheTTL.
func (a *SPARQLAdapter) Graph(ctx context.Context, v *models.Vocabulary) (*graph.Graph, error) {
	cachePath := ""
	if a.opts.CacheDir != "" {
		cachePath = filepath.Join(a.opts.CacheDir, v.ID+graph.SnapshotExt)
		if g, ok := graph.ReadFreshSnapshot(cachePath, a.opts.CacheTTL); ok {
			return g, nil
		}
	}

	if err := checkIRI(v.ConceptSchemeURI); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	endpoint, creds := a.binding(v)
	body, err := a.opts.Client.Construct(ctx, endpoint, a.dialect.constructQuery(v.ConceptSchemeURI), sparql.AcceptNTriples, creds)
	if err != nil {
		return nil, classify(err)
	}
	g, err := graph.Parse(bytes.NewReader(body), graph.FormatNTriples)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s download: %w", v.ID, err)
	}
	if g.Len() == 0 {
		return nil, fmt.Errorf("vocabulary %s download: %w", v.ID, ErrNotFound)
	}
	if cachePath != "" {
		if err := graph.WriteSnapshot(cachePath, g); err != nil {
			slog.Warn("failed to cache vocabulary graph", "vocab_id", v.ID, "error", err)
		}
	}
	return g, nil
}
