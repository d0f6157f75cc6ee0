// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"vocabserve/internal/cache"
	"vocabserve/internal/catalog"
	"vocabserve/internal/graph"
	"vocabserve/internal/linkeddata"
	"vocabserve/internal/negotiate"
	"vocabserve/internal/render"
	"vocabserve/internal/source"
)

const (
	contentHTML = "text/html; charset=utf-8"
	contentJSON = "application/json; charset=utf-8"
)

// produce builds one representation. Returned errors are mapped onto a
// status by fail and are never cached.
type produce func() (cache.Entry, error)

// serve answers from the response cache or builds, caches and writes the
// representation.
func (h *Vocab) serve(w http.ResponseWriter, r *http.Request, c negotiate.Choice, build produce) {
	key, hit := h.cached(w, r, c)
	if hit {
		return
	}
	h.store(w, r, key, build)
}

// cached writes the cached representation for c if there is one. It
// returns the cache key either way.
func (h *Vocab) cached(w http.ResponseWriter, r *http.Request, c negotiate.Choice) (string, bool) {
	w.Header().Set("Vary", "Accept, Accept-Language")
	key := cache.Key(r.URL.Path, r.URL.Query(), c.View+" "+c.MediaType, h.language(r))
	e, ok := h.cache.Get(r.Context(), key)
	if ok {
		writeEntry(w, e)
	}
	return key, ok
}

// store builds a representation, caches it under key and writes it.
func (h *Vocab) store(w http.ResponseWriter, r *http.Request, key string, build produce) {
	e, err := build()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.cache.Set(r.Context(), key, e)
	writeEntry(w, e)
}

func writeEntry(w http.ResponseWriter, e cache.Entry) {
	w.Header().Set("Content-Type", e.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(e.Body)
}

func (h *Vocab) htmlEntry(name string, data *render.PageData) (cache.Entry, error) {
	body, err := h.renderer.Bytes(name, data)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("render %s: %w", name, err)
	}
	return cache.Entry{ContentType: contentHTML, Body: body}, nil
}

func jsonEntry(v any) (cache.Entry, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("encode json: %w", err)
	}
	return cache.Entry{ContentType: contentJSON, Body: body}, nil
}

func graphEntry(g *graph.Graph, f graph.Format) (cache.Entry, error) {
	var buf bytes.Buffer
	if err := linkeddata.Encode(&buf, g, f); err != nil {
		return cache.Entry{}, fmt.Errorf("encode %s: %w", f, err)
	}
	return cache.Entry{ContentType: linkeddata.MediaType(f), Body: buf.Bytes()}, nil
}

// alternatesEntry lists the representations of a resource. It has no RDF
// form.
func (h *Vocab) alternatesEntry(r *http.Request, c negotiate.Choice, resource string, views ...string) (cache.Entry, error) {
	alts := alternates(r, views...)
	if c.MediaType == negotiate.MediaJSON {
		return jsonEntry(map[string]any{"resource": resource, "alternates": alts})
	}
	if c.IsRDF() {
		return cache.Entry{}, notAcceptable(c)
	}
	p := h.page(r, "Alternate representations", "vocabularies", "", map[string]any{"Resource": resource})
	p.Alternates = alts
	return h.htmlEntry("alternates", p)
}

// alternates lists every view and media type of the requested resource,
// keeping its other query parameters.
func alternates(r *http.Request, views ...string) []render.Alternate {
	if len(views) == 0 {
		views = []string{negotiate.ViewDefault}
	}
	var out []render.Alternate
	for _, view := range views {
		for _, mt := range negotiate.Offers {
			q := url.Values{}
			for k, v := range r.URL.Query() {
				if k != "_view" && k != "_format" {
					q[k] = v
				}
			}
			if view != negotiate.ViewDefault {
				q.Set("_view", view)
			}
			q.Set("_format", mt)
			out = append(out, render.Alternate{View: view, MediaType: mt, URL: r.URL.Path + "?" + q.Encode()})
		}
	}
	return out
}

func notAcceptable(c negotiate.Choice) error {
	return fmt.Errorf("%w: %s has no %s representation", negotiate.ErrNotAcceptable, viewName(c.View), c.MediaType)
}

func viewName(v string) string {
	if v == negotiate.ViewDefault {
		return "resource"
	}
	return v + " view"
}

// status maps an error onto an HTTP status and a message safe to show.
func status(err error) (int, string) {
	var pe *paramError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest, pe.msg
	case errors.Is(err, catalog.ErrUnknownVocabulary):
		return http.StatusNotFound, "No vocabulary with that id is known."
	case errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound, "The requested resource was not found."
	case errors.Is(err, negotiate.ErrNotAcceptable):
		return http.StatusNotAcceptable, "No representation matches the requested view or format."
	case errors.Is(err, source.ErrUnavailable):
		return http.StatusServiceUnavailable, "The vocabulary source is unavailable. Please try again later."
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

// fail writes an error response: JSON to clients that asked for JSON,
// otherwise the error page.
func (h *Vocab) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := status(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "query", r.URL.RawQuery, "status", code, "error", err)
	} else {
		slog.Debug("request rejected", "path", r.URL.Path, "status", code, "error", err)
	}

	if wantsJSON(r) {
		writeJSON(w, code, map[string]string{"error": msg})
		return
	}
	h.renderer.Page(w, r, code, "error", &render.PageData{
		Title: http.StatusText(code),
		Data:  map[string]any{"Status": code, "Message": msg},
	})
}

func wantsJSON(r *http.Request) bool {
	c, err := negotiate.Resolve(r, negotiate.ViewDCAT, negotiate.ViewSKOS)
	return err == nil && c.MediaType == negotiate.MediaJSON
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
