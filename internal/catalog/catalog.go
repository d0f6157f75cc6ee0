// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog keeps the set of served vocabularies keyed by id. It is
// populated from the configured sources at startup and handed to request
// handlers explicitly. Top concepts, hierarchy and collections of each
// vocabulary are computed on first use and kept for the process lifetime.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vocabserve/internal/hierarchy"
	"vocabserve/internal/models"
	"vocabserve/internal/source"
)

// ErrUnknownVocabulary is returned for ids the catalog does not hold.
var ErrUnknownVocabulary = errors.New("unknown vocabulary")

// CollectRun is the outcome of collecting one source.
type CollectRun struct {
	ID           uuid.UUID
	Source       string
	Kind         models.SourceKind
	StartedAt    time.Time
	FinishedAt   time.Time
	Vocabularies int
	Err          string
	FromArchive  bool
}

// Archive persists collected records so a source that is down at startup
// can be served from its last good state. Implementations must be safe for
// concurrent use.
type Archive interface {
	SaveVocabularies(ctx context.Context, sourceName string, vocabs []*models.Vocabulary) error
	LoadVocabularies(ctx context.Context, sourceName string) ([]*models.Vocabulary, error)
	LogRun(ctx context.Context, run CollectRun) error
}

// Options configures a Catalog.
type Options struct {
	// Language is used for the lazily computed fields.
	Language string
	// LocalURLs makes hierarchy links point at this service's /object
	// view instead of the concept URIs themselves.
	LocalURLs bool
	// Archive is optional.
	Archive Archive
}

type entry struct {
	adapter source.Adapter
	vocab   *models.Vocabulary

	top  lazy[[]models.Labelled]
	tree lazy[*models.Hierarchy]
	cols lazy[[]models.Labelled]
}

// Catalog is safe for concurrent use.
type Catalog struct {
	opts Options

	mu      sync.RWMutex
	entries map[string]*entry
}

// New returns an empty catalog.
func New(opts Options) *Catalog {
	if opts.Language == "" {
		opts.Language = "en"
	}
	return &Catalog{opts: opts, entries: make(map[string]*entry)}
}

// Collect asks every adapter for its vocabularies, source kinds in
// models.CollectOrder, and stores the records. A record replaces an
// earlier one with the same id. A failing adapter leaves the records it
// contributed before untouched; its last archived state is used when the
// catalog has nothing for it yet. The returned error joins all adapter
// failures.
func (c *Catalog) Collect(ctx context.Context, adapters []source.Adapter) error {
	ordered := make([]source.Adapter, len(adapters))
	copy(ordered, adapters)
	rank := make(map[models.SourceKind]int, len(models.CollectOrder))
	for i, k := range models.CollectOrder {
		rank[k] = i
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank[ordered[i].Kind()] < rank[ordered[j].Kind()]
	})

	var errs []error
	for _, a := range ordered {
		run := CollectRun{ID: uuid.New(), Source: a.Name(), Kind: a.Kind(), StartedAt: time.Now()}
		vocabs, err := a.Collect(ctx)
		if err != nil {
			slog.Warn("source collect failed", "source", a.Name(), "kind", a.Kind(), "error", err)
			errs = append(errs, fmt.Errorf("collect %s: %w", a.Name(), err))
			run.Err = err.Error()
			vocabs = c.restore(ctx, a)
			run.FromArchive = len(vocabs) > 0
		} else {
			c.archive(ctx, a.Name(), vocabs)
		}

		kept := vocabs[:0:0]
		for _, v := range vocabs {
			if !v.HasValidURI() {
				slog.Warn("skipping vocabulary with invalid uri", "vocab_id", v.ID, "uri", v.URI, "source", a.Name())
				continue
			}
			kept = append(kept, v)
		}
		vocabs = kept

		c.mu.Lock()
		for _, v := range vocabs {
			if prev, ok := c.entries[v.ID]; ok && prev.adapter != a {
				slog.Info("vocabulary id redefined", "vocab_id", v.ID,
					"previous_source", prev.adapter.Name(), "source", a.Name())
			}
			c.entries[v.ID] = &entry{adapter: a, vocab: v}
		}
		c.mu.Unlock()

		run.Vocabularies = len(vocabs)
		run.FinishedAt = time.Now()
		c.logRun(ctx, run)
	}

	slog.Info("catalog collected", "vocabularies", c.Len(), "failed_sources", len(errs))
	return errors.Join(errs...)
}

// restore returns the archived records of a failed source, unless the
// catalog already serves records from it.
func (c *Catalog) restore(ctx context.Context, a source.Adapter) []*models.Vocabulary {
	if c.opts.Archive == nil {
		return nil
	}
	c.mu.RLock()
	for _, e := range c.entries {
		if e.adapter == a {
			c.mu.RUnlock()
			return nil
		}
	}
	c.mu.RUnlock()

	vocabs, err := c.opts.Archive.LoadVocabularies(ctx, a.Name())
	if err != nil {
		slog.Warn("archive load failed", "source", a.Name(), "error", err)
		return nil
	}
	if len(vocabs) > 0 {
		slog.Info("serving archived vocabularies", "source", a.Name(), "vocabularies", len(vocabs))
	}
	return vocabs
}

func (c *Catalog) archive(ctx context.Context, name string, vocabs []*models.Vocabulary) {
	if c.opts.Archive == nil {
		return
	}
	if err := c.opts.Archive.SaveVocabularies(ctx, name, vocabs); err != nil {
		slog.Warn("archive save failed", "source", name, "error", err)
	}
}

func (c *Catalog) logRun(ctx context.Context, run CollectRun) {
	if c.opts.Archive == nil {
		return
	}
	if err := c.opts.Archive.LogRun(ctx, run); err != nil {
		slog.Warn("failed to log collect run", "source", run.Source, "error", err)
	}
}

// Len returns the number of vocabularies.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Catalog) lookup(id string) (*entry, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVocabulary, id)
	}
	return e, nil
}

// Resolve returns the adapter serving id and its record. The record must
// not be modified.
func (c *Catalog) Resolve(id string) (source.Adapter, *models.Vocabulary, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	return e.adapter, e.vocab, nil
}

// Vocabularies returns all records sorted by title, then id.
func (c *Catalog) Vocabularies() []*models.Vocabulary {
	c.mu.RLock()
	out := make([]*models.Vocabulary, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.vocab)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindByConceptURI returns the id of the vocabulary a concept URI belongs
// to: the vocabulary with the longest URI contained in it or, failing
// that, the one with the longest URI whose parent path is contained in it.
func (c *Catalog) FindByConceptURI(uri string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	match := func(part func(*models.Vocabulary) string) (string, bool) {
		best, bestLen := "", -1
		for id, e := range c.entries {
			p := part(e.vocab)
			if p == "" || !strings.Contains(uri, p) {
				continue
			}
			n := len(e.vocab.URI)
			if n > bestLen || (n == bestLen && id < best) {
				best, bestLen = id, n
			}
		}
		return best, bestLen >= 0
	}

	if id, ok := match(func(v *models.Vocabulary) string { return v.URI }); ok {
		return id, true
	}
	return match(func(v *models.Vocabulary) string {
		i := strings.LastIndex(v.URI, "/")
		if i < 0 || strings.HasSuffix(v.URI[:i], "/") {
			return ""
		}
		return v.URI[:i]
	})
}

// TopConcepts returns the top concepts of a vocabulary.
func (c *Catalog) TopConcepts(ctx context.Context, id string) ([]models.Labelled, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.top.get(ctx, func() ([]models.Labelled, error) {
		return e.adapter.TopConcepts(ctx, e.vocab, c.opts.Language)
	})
}

// Collections returns the collections of a vocabulary.
func (c *Catalog) Collections(ctx context.Context, id string) ([]models.Labelled, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.cols.get(ctx, func() ([]models.Labelled, error) {
		return e.adapter.ListCollections(ctx, e.vocab, c.opts.Language)
	})
}

// Hierarchy returns the concept tree of a vocabulary with its rendered
// outline.
func (c *Catalog) Hierarchy(ctx context.Context, id string) (*models.Hierarchy, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.tree.get(ctx, func() (*models.Hierarchy, error) {
		res, err := e.adapter.Hierarchy(ctx, e.vocab, c.opts.Language)
		if err != nil {
			return nil, err
		}
		for _, p := range res.Problems {
			slog.Warn("inconsistent concept hierarchy", "vocab_id", id,
				"problem", p.Kind, "uri", p.URI, "broader", p.BroaderURI)
		}
		html, err := hierarchy.HTML(res.Entries, c.linker(id))
		if err != nil {
			return nil, fmt.Errorf("render hierarchy %s: %w", id, err)
		}
		return &models.Hierarchy{Entries: res.Entries, HTML: html}, nil
	})
}

func (c *Catalog) linker(id string) hierarchy.Linker {
	if !c.opts.LocalURLs {
		return nil
	}
	return func(uri string) string {
		return ObjectPath(id, uri)
	}
}

// Href is the link target of a resource of vocabulary id: the local
// object view when LocalURLs is set, else the URI itself.
func (c *Catalog) Href(id, uri string) string {
	if !c.opts.LocalURLs {
		return uri
	}
	return ObjectPath(id, uri)
}

// LocalURLs reports whether resources link to the local object view.
func (c *Catalog) LocalURLs() bool { return c.opts.LocalURLs }

// Language is the language lazily computed fields are rendered in.
func (c *Catalog) Language() string { return c.opts.Language }

// ObjectPath is the local URL of a resource of vocabulary id.
func ObjectPath(id, uri string) string {
	q := url.Values{}
	q.Set("vocab_id", id)
	q.Set("uri", uri)
	return "/object?" + q.Encode()
}

// Describe returns a copy of the vocabulary record with top concepts,
// hierarchy and collections filled in.
func (c *Catalog) Describe(ctx context.Context, id string) (*models.Vocabulary, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	top, err := c.TopConcepts(ctx, id)
	if err != nil {
		return nil, err
	}
	tree, err := c.Hierarchy(ctx, id)
	if err != nil {
		return nil, err
	}
	cols, err := c.Collections(ctx, id)
	if err != nil {
		return nil, err
	}
	v := e.vocab.Clone()
	v.TopConcepts = top
	v.Hierarchy = tree
	v.Collections = cols
	return v, nil
}
