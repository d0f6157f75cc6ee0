// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package source adapts the backends vocabularies live in (RDF files,
// SPARQL endpoints and vocabulary registries) to one set of operations
// returning models entities. Each models.SourceKind maps to exactly one
// adapter type; New performs that mapping.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"vocabserve/internal/graph"
	"vocabserve/internal/hierarchy"
	"vocabserve/internal/models"
	"vocabserve/internal/sparql"
)

var (
	// ErrNotFound means the backend answered but has no such entity.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable means the backend could not be reached.
	ErrUnavailable = errors.New("source unavailable")
)

// Summary is one entry of a vocabulary listing.
type Summary struct {
	Title  string            `json:"title"`
	URI    string            `json:"uri"`
	Source models.SourceKind `json:"source"`
}

// Adapter is the set of operations every backend supports. Lookups either
// return a fully populated entity or an error wrapping ErrNotFound or
// ErrUnavailable. Listings return an empty slice when there is no data.
type Adapter interface {
	Kind() models.SourceKind
	Name() string

	// Collect discovers the vocabularies this source provides. It is
	// called at startup and on every re-collect.
	Collect(ctx context.Context) ([]*models.Vocabulary, error)
	ListVocabularies(ctx context.Context) (map[string]Summary, error)
	GetVocabulary(ctx context.Context, id string) (*models.Vocabulary, error)

	ListConcepts(ctx context.Context, v *models.Vocabulary, lang string) ([]models.ConceptSummary, error)
	ListCollections(ctx context.Context, v *models.Vocabulary, lang string) ([]models.Labelled, error)
	GetConcept(ctx context.Context, v *models.Vocabulary, uri, lang string) (*models.Concept, error)
	GetCollection(ctx context.Context, v *models.Vocabulary, uri, lang string) (*models.Collection, error)
	TopConcepts(ctx context.Context, v *models.Vocabulary, lang string) ([]models.Labelled, error)
	Hierarchy(ctx context.Context, v *models.Vocabulary, lang string) (hierarchy.Result, error)

	// ObjectClass returns the most specific known class of uri, or ""
	// when the resource is not one the service presents.
	ObjectClass(ctx context.Context, v *models.Vocabulary, uri string) (string, error)
	// Graph returns every statement of the vocabulary for RDF downloads.
	Graph(ctx context.Context, v *models.Vocabulary) (*graph.Graph, error)
}

// Settings describes one configured source.
type Settings struct {
	Name string
	Kind models.SourceKind

	// SPARQL discovery and registry content.
	Endpoint    string
	Credentials sparql.Credentials
	URIFilter   string // regular expression on scheme URIs
	NamedGraphs bool
	ChaseSameAs bool

	// FILE: directory scanned for RDF files.
	Dir string

	// REGISTRY: API base URL and the registry ids to load (all when empty).
	RegistryURL string
	RegistryIDs []string

	// Vocabularies declared one by one in configuration.
	Vocabs []models.Vocabulary
}

// Options are the shared dependencies of all adapters.
type Options struct {
	Client   *sparql.Client
	HTTP     *http.Client
	Language string        // default language
	CacheDir string        // downloaded graphs
	CacheTTL time.Duration // age limit of downloaded graphs
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = sparql.NewClient(sparql.Options{})
	}
	if o.HTTP == nil {
		o.HTTP = &http.Client{Timeout: sparql.DefaultTimeout}
	}
	if o.Language == "" {
		o.Language = "en"
	}
	return o
}

// New returns the adapter bound to s.Kind.
func New(s Settings, opts Options) (Adapter, error) {
	opts = opts.withDefaults()
	switch s.Kind {
	case models.SourceFile:
		return NewFile(s, opts), nil
	case models.SourceSPARQL:
		return NewSPARQL(s, opts)
	case models.SourceRegistry:
		return NewRegistry(s, opts)
	}
	return nil, fmt.Errorf("source %q: unknown kind %q", s.Name, s.Kind)
}

// compileFilter compiles an optional URI filter.
func compileFilter(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("uri filter %q: %w", expr, err)
	}
	return re, nil
}

// classify maps client errors onto the adapter error set. Malformed
// results count as "not found" for lookups.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var qf *sparql.QueryFailure
	if errors.As(err, &qf) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	var me *sparql.MalformedResultError
	if errors.As(err, &me) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// listing converts a lookup error into an empty listing where the data is
// merely absent, and passes transport failures through.
func listing(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
