// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"net/http"
	"net/url"

	"vocabserve/internal/cache"
	"vocabserve/internal/graph"
	"vocabserve/internal/linkeddata"
	"vocabserve/internal/models"
	"vocabserve/internal/negotiate"
	"vocabserve/internal/source"
)

const voafVocabulary = "http://purl.org/vocommons/voaf#Vocabulary"

// Object presents any resource of a vocabulary by URI. Concepts and
// collections are rendered in place; vocabularies and concept schemes
// redirect to their vocabulary page. Without vocab_id the owning
// vocabulary is looked up from the URI.
func (h *Vocab) Object(w http.ResponseWriter, r *http.Request) {
	oq, err := validateObjectQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id := oq.VocabID
	if id == "" {
		found, ok := h.catalog.FindByConceptURI(oq.URI)
		if !ok {
			h.fail(w, r, fmt.Errorf("%w: no vocabulary owns %s", source.ErrNotFound, oq.URI))
			return
		}
		id = found
	}
	ad, rec, err := h.catalog.Resolve(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if oq.URI == "" || oq.URI == rec.URI || oq.URI == rec.ConceptSchemeURI {
		redirectToVocabulary(w, r, id)
		return
	}

	// A vocabulary redirect keeps its own views, so a negotiation failure
	// only counts once the object turns out to be a concept or collection.
	c, negErr := negotiate.Resolve(r)
	var key string
	if negErr == nil {
		var hit bool
		if key, hit = h.cached(w, r, c); hit {
			return
		}
	}

	class, err := ad.ObjectClass(r.Context(), rec, oq.URI)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	switch class {
	case voafVocabulary, graph.SKOSConceptScheme:
		redirectToVocabulary(w, r, id)
		return
	case "":
		h.fail(w, r, fmt.Errorf("%w: %s in vocabulary %s", source.ErrNotFound, oq.URI, id))
		return
	}
	if negErr != nil {
		h.fail(w, r, negErr)
		return
	}

	if class == graph.SKOSConcept {
		h.store(w, r, key, func() (cache.Entry, error) {
			return h.conceptEntry(r, c, ad, rec, oq.URI)
		})
		return
	}
	h.store(w, r, key, func() (cache.Entry, error) {
		return h.collectionEntry(r, c, ad, rec, oq.URI)
	})
}

func (h *Vocab) conceptEntry(r *http.Request, c negotiate.Choice, ad source.Adapter, rec *models.Vocabulary, uri string) (cache.Entry, error) {
	if c.View == negotiate.ViewAlternates {
		return h.alternatesEntry(r, c, uri)
	}
	lang := h.language(r)
	con, err := ad.GetConcept(r.Context(), rec, uri, lang)
	if err != nil {
		return cache.Entry{}, err
	}
	if f, ok := c.Format(); ok {
		return graphEntry(linkeddata.ConceptGraph(con, lang), f)
	}
	if c.MediaType == negotiate.MediaJSON {
		return jsonEntry(con)
	}
	p := h.page(r, con.PrefLabel, "vocabularies", rec.ID, map[string]any{"Vocab": rec, "Concept": con})
	p.Alternates = alternates(r)
	return h.htmlEntry("concept", p)
}

func (h *Vocab) collectionEntry(r *http.Request, c negotiate.Choice, ad source.Adapter, rec *models.Vocabulary, uri string) (cache.Entry, error) {
	if c.View == negotiate.ViewAlternates {
		return h.alternatesEntry(r, c, uri)
	}
	col, err := ad.GetCollection(r.Context(), rec, uri, h.language(r))
	if err != nil {
		return cache.Entry{}, err
	}
	if f, ok := c.Format(); ok {
		return graphEntry(linkeddata.CollectionGraph(col), f)
	}
	if c.MediaType == negotiate.MediaJSON {
		return jsonEntry(col)
	}
	p := h.page(r, col.PrefLabel, "vocabularies", rec.ID, map[string]any{"Vocab": rec, "Collection": col})
	p.Alternates = alternates(r)
	return h.htmlEntry("collection", p)
}

// redirectToVocabulary sends the client to the vocabulary page, keeping
// the representation parameters.
func redirectToVocabulary(w http.ResponseWriter, r *http.Request, id string) {
	q := url.Values{}
	for _, k := range []string{"_view", "_format", "lang"} {
		if v := r.URL.Query().Get(k); v != "" {
			q.Set(k, v)
		}
	}
	target := "/vocabulary/" + url.PathEscape(id)
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
