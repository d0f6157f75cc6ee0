// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers serves the vocabulary catalog over HTTP. Every resource
// is negotiated into HTML, JSON or one of the RDF serializations; rendered
// representations go through the optional Valkey response cache.
package handlers

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"vocabserve/internal/cache"
	"vocabserve/internal/catalog"
	"vocabserve/internal/graph"
	"vocabserve/internal/linkeddata"
	"vocabserve/internal/models"
	"vocabserve/internal/negotiate"
	"vocabserve/internal/render"
)

// RunLister reports recent collect runs. *store.ArchiveStore satisfies it.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]catalog.CollectRun, error)
}

// Options configures the Vocab handler group.
type Options struct {
	// DefaultLanguage is served when the client names no usable language.
	DefaultLanguage string
	// Languages restricts Accept-Language matching. Empty accepts any tag.
	Languages []language.Tag
	// About is the rendered body of the about page.
	About template.HTML
	// Runs is optional; without it /health omits the collect log.
	Runs RunLister
}

// Vocab groups the public handlers of the vocabulary catalog.
type Vocab struct {
	renderer *render.Renderer
	catalog  *catalog.Catalog
	cache    *cache.ResponseCache
	opts     Options
}

// NewVocab creates the handler group. cache may be nil.
func NewVocab(renderer *render.Renderer, cat *catalog.Catalog, rc *cache.ResponseCache, opts Options) *Vocab {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = cat.Language()
	}
	return &Vocab{renderer: renderer, catalog: cat, cache: rc, opts: opts}
}

func (h *Vocab) language(r *http.Request) string {
	return negotiate.Language(r, h.opts.DefaultLanguage, h.opts.Languages)
}

// page builds the common page data of a request.
func (h *Vocab) page(r *http.Request, title, section, vocabID string, data map[string]any) *render.PageData {
	return &render.PageData{
		Title:   title,
		Section: section,
		Lang:    h.language(r),
		VocabID: vocabID,
		Local:   h.catalog.LocalURLs(),
		Data:    data,
	}
}

// Index renders the start page.
func (h *Vocab) Index(w http.ResponseWriter, r *http.Request) {
	c, err := negotiate.Resolve(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.serve(w, r, c, func() (cache.Entry, error) {
		count := h.catalog.Len()
		switch {
		case c.MediaType == negotiate.MediaJSON:
			return jsonEntry(map[string]any{
				"vocabularies": count,
				"register":     "/vocabulary/",
				"about":        "/about",
			})
		case c.IsRDF():
			return cache.Entry{}, notAcceptable(c)
		}
		return h.htmlEntry("index", h.page(r, "Vocabularies", "", "", map[string]any{"Count": count}))
	})
}

// vocabularySummary is one entry of the JSON vocabulary register.
type vocabularySummary struct {
	ID     string            `json:"id"`
	URI    string            `json:"uri"`
	Title  string            `json:"title"`
	Source models.SourceKind `json:"source"`
	Href   string            `json:"href"`
}

// Vocabularies renders the register of all vocabularies.
func (h *Vocab) Vocabularies(w http.ResponseWriter, r *http.Request) {
	c, err := negotiate.Resolve(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.serve(w, r, c, func() (cache.Entry, error) {
		if c.View == negotiate.ViewAlternates {
			return h.alternatesEntry(r, c, "/vocabulary/")
		}
		vocabs := h.catalog.Vocabularies()
		if c.MediaType == negotiate.MediaJSON {
			out := make([]vocabularySummary, 0, len(vocabs))
			for _, v := range vocabs {
				out = append(out, vocabularySummary{
					ID: v.ID, URI: v.URI, Title: v.Title, Source: v.Source,
					Href: "/vocabulary/" + v.ID,
				})
			}
			return jsonEntry(out)
		}
		if f, ok := c.Format(); ok {
			g := graph.New()
			for _, v := range vocabs {
				g.Merge(linkeddata.VocabularyGraph(v))
			}
			return graphEntry(g, f)
		}
		p := h.page(r, "Vocabulary register", "vocabularies", "", map[string]any{"Vocabularies": vocabs})
		p.Alternates = alternates(r)
		return h.htmlEntry("vocabularies", p)
	})
}

// Vocabulary renders one vocabulary. The dcat view describes the dataset;
// the skos view is the scheme itself.
func (h *Vocab) Vocabulary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vocab_id")
	c, err := negotiate.Resolve(r, negotiate.ViewDCAT, negotiate.ViewSKOS)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ad, rec, err := h.catalog.Resolve(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.serve(w, r, c, func() (cache.Entry, error) {
		ctx := r.Context()
		switch c.View {
		case negotiate.ViewAlternates:
			return h.alternatesEntry(r, c, rec.URI, negotiate.ViewDCAT, negotiate.ViewSKOS)

		case negotiate.ViewSKOS:
			if f, ok := c.Format(); ok {
				g, err := ad.Graph(ctx, rec)
				if err != nil {
					return cache.Entry{}, err
				}
				return graphEntry(g, f)
			}
			concepts, err := ad.ListConcepts(ctx, rec, h.language(r))
			if err != nil {
				return cache.Entry{}, err
			}
			if c.MediaType == negotiate.MediaJSON {
				return jsonEntry(concepts)
			}
			p := h.page(r, rec.Title+" concepts", "vocabularies", id, map[string]any{"Vocab": rec, "Concepts": concepts})
			p.Alternates = alternates(r, negotiate.ViewDCAT, negotiate.ViewSKOS)
			return h.htmlEntry("concepts", p)
		}

		v, err := h.catalog.Describe(ctx, id)
		if err != nil {
			return cache.Entry{}, err
		}
		if f, ok := c.Format(); ok {
			return graphEntry(linkeddata.VocabularyGraph(v), f)
		}
		if c.MediaType == negotiate.MediaJSON {
			return jsonEntry(v)
		}
		p := h.page(r, v.Title, "vocabularies", id, map[string]any{"Vocab": v})
		p.Alternates = alternates(r, negotiate.ViewDCAT, negotiate.ViewSKOS)
		return h.htmlEntry("vocabulary", p)
	})
}

// Concepts renders the concept register of a vocabulary.
func (h *Vocab) Concepts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vocab_id")
	c, err := negotiate.Resolve(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ad, rec, err := h.catalog.Resolve(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.serve(w, r, c, func() (cache.Entry, error) {
		if c.View == negotiate.ViewAlternates {
			return h.alternatesEntry(r, c, rec.URI)
		}
		concepts, err := ad.ListConcepts(r.Context(), rec, h.language(r))
		if err != nil {
			return cache.Entry{}, err
		}
		if f, ok := c.Format(); ok {
			items := make([]models.Labelled, len(concepts))
			for i, cs := range concepts {
				items[i] = models.Labelled{URI: cs.URI, Label: cs.Label}
			}
			return graphEntry(linkeddata.RegisterGraph(rec, graph.SKOSConcept, items), f)
		}
		if c.MediaType == negotiate.MediaJSON {
			return jsonEntry(concepts)
		}
		p := h.page(r, rec.Title+" concepts", "vocabularies", id, map[string]any{"Vocab": rec, "Concepts": concepts})
		p.Alternates = alternates(r)
		return h.htmlEntry("concepts", p)
	})
}

// Collections renders the collection register of a vocabulary.
func (h *Vocab) Collections(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vocab_id")
	c, err := negotiate.Resolve(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_, rec, err := h.catalog.Resolve(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.serve(w, r, c, func() (cache.Entry, error) {
		if c.View == negotiate.ViewAlternates {
			return h.alternatesEntry(r, c, rec.URI)
		}
		cols, err := h.catalog.Collections(r.Context(), id)
		if err != nil {
			return cache.Entry{}, err
		}
		if f, ok := c.Format(); ok {
			return graphEntry(linkeddata.RegisterGraph(rec, graph.SKOSCollection, cols), f)
		}
		if c.MediaType == negotiate.MediaJSON {
			return jsonEntry(cols)
		}
		p := h.page(r, rec.Title+" collections", "vocabularies", id, map[string]any{"Vocab": rec, "Collections": cols})
		p.Alternates = alternates(r)
		return h.htmlEntry("collections", p)
	})
}

// About renders the about page. It is not cached; the body is fixed at
// startup.
func (h *Vocab) About(w http.ResponseWriter, r *http.Request) {
	h.renderer.Page(w, r, http.StatusOK, "about", h.page(r, "About", "about", "", map[string]any{"HTML": h.opts.About}))
}

// Health reports liveness, the catalog size and, when an archive is
// configured, the most recent collect runs.
func (h *Vocab) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":       "ok",
		"vocabularies": h.catalog.Len(),
	}
	if h.opts.Runs != nil {
		runs, err := h.opts.Runs.RecentRuns(r.Context(), 10)
		if err != nil {
			slog.Warn("list collect runs failed", "error", err)
		} else {
			body["collect_runs"] = healthRuns(runs)
		}
	}
	writeJSON(w, http.StatusOK, body)
}

type runStatus struct {
	Source       string `json:"source"`
	Kind         string `json:"kind"`
	StartedAt    string `json:"started_at"`
	Vocabularies int    `json:"vocabularies"`
	Error        string `json:"error,omitempty"`
	FromArchive  bool   `json:"from_archive,omitempty"`
}

func healthRuns(runs []catalog.CollectRun) []runStatus {
	out := make([]runStatus, 0, len(runs))
	for _, run := range runs {
		out = append(out, runStatus{
			Source:       run.Source,
			Kind:         string(run.Kind),
			StartedAt:    run.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Vocabularies: run.Vocabularies,
			Error:        run.Err,
			FromArchive:  run.FromArchive,
		})
	}
	return out
}
