// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"vocabserve/internal/cache"
	"vocabserve/internal/graph"
	"vocabserve/internal/linkeddata"
	"vocabserve/internal/models"
	"vocabserve/internal/negotiate"
)

// registerItem is one resource of a register spanning all vocabularies.
type registerItem struct {
	VocabID string `json:"vocab_id"`
	URI     string `json:"uri"`
	Label   string `json:"label"`
	Href    string `json:"href"`
}

// registerGroup holds the items contributed by one vocabulary.
type registerGroup struct {
	Vocab *models.Vocabulary
	Items []registerItem
}

// listFunc lists the members of one vocabulary for a register.
type listFunc func(ctx context.Context, v *models.Vocabulary) ([]models.Labelled, error)

// AllConcepts renders the concepts of every vocabulary.
func (h *Vocab) AllConcepts(w http.ResponseWriter, r *http.Request) {
	lang := h.language(r)
	h.register(w, r, "Concepts", "concepts", graph.SKOSConcept, func(ctx context.Context, v *models.Vocabulary) ([]models.Labelled, error) {
		ad, rec, err := h.catalog.Resolve(v.ID)
		if err != nil {
			return nil, err
		}
		concepts, err := ad.ListConcepts(ctx, rec, lang)
		if err != nil {
			return nil, err
		}
		out := make([]models.Labelled, len(concepts))
		for i, cs := range concepts {
			out[i] = models.Labelled{URI: cs.URI, Label: cs.Label}
		}
		return out, nil
	})
}

// AllCollections renders the collections of every vocabulary.
func (h *Vocab) AllCollections(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, "Collections", "collections", graph.SKOSCollection, func(ctx context.Context, v *models.Vocabulary) ([]models.Labelled, error) {
		return h.catalog.Collections(ctx, v.ID)
	})
}

// register gathers list over all vocabularies. A vocabulary whose source
// fails is left out of the register and logged.
func (h *Vocab) register(w http.ResponseWriter, r *http.Request, title, section, class string, list listFunc) {
	c, err := negotiate.Resolve(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.serve(w, r, c, func() (cache.Entry, error) {
		if c.View == negotiate.ViewAlternates {
			return h.alternatesEntry(r, c, r.URL.Path)
		}

		ctx := r.Context()
		var groups []registerGroup
		for _, v := range h.catalog.Vocabularies() {
			items, err := list(ctx, v)
			if err != nil {
				if ctx.Err() != nil {
					return cache.Entry{}, ctx.Err()
				}
				slog.Warn("register: vocabulary skipped", "register", title, "vocab_id", v.ID, "error", err)
				continue
			}
			if len(items) == 0 {
				continue
			}
			g := registerGroup{Vocab: v, Items: make([]registerItem, len(items))}
			for i, it := range items {
				g.Items[i] = registerItem{VocabID: v.ID, URI: it.URI, Label: it.Label, Href: h.catalog.Href(v.ID, it.URI)}
			}
			groups = append(groups, g)
		}

		if f, ok := c.Format(); ok {
			merged := graph.New()
			for _, g := range groups {
				labelled := make([]models.Labelled, len(g.Items))
				for i, it := range g.Items {
					labelled[i] = models.Labelled{URI: it.URI, Label: it.Label}
				}
				merged.Merge(linkeddata.RegisterGraph(g.Vocab, class, labelled))
			}
			return graphEntry(merged, f)
		}
		if c.MediaType == negotiate.MediaJSON {
			items := []registerItem{}
			for _, g := range groups {
				items = append(items, g.Items...)
			}
			return jsonEntry(items)
		}
		p := h.page(r, title, section, "", map[string]any{"Title": title, "Groups": groups})
		p.Alternates = alternates(r)
		return h.htmlEntry("register", p)
	})
}
