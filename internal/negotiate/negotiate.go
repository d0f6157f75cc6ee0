// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package negotiate picks the view, media type and language of a
// response from the _view, _format and lang query parameters and the
// Accept and Accept-Language headers. Query parameters win over headers.
package negotiate

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/munnerz/goautoneg"
	"golang.org/x/text/language"

	"vocabserve/internal/graph"
	"vocabserve/internal/linkeddata"
)

// Media types a resource can be served as.
const (
	MediaHTML = "text/html"
	MediaJSON = "application/json"
)

// Offers lists the media types in order of preference; the first one is
// served to clients that accept anything.
var Offers = []string{
	MediaHTML,
	MediaJSON,
	linkeddata.MediaTurtle,
	linkeddata.MediaNTriples,
	linkeddata.MediaJSONLD,
}

// Views of a vocabulary. Other resources only have the default view.
const (
	ViewDefault    = ""
	ViewDCAT       = "dcat"
	ViewSKOS       = "skos"
	ViewAlternates = "alternates"
)

// ErrNotAcceptable means no offered representation satisfies the request.
var ErrNotAcceptable = errors.New("not acceptable")

var formatAliases = map[string]string{
	"html":          MediaHTML,
	"json":          MediaJSON,
	"ttl":           linkeddata.MediaTurtle,
	"turtle":        linkeddata.MediaTurtle,
	"nt":            linkeddata.MediaNTriples,
	"ntriples":      linkeddata.MediaNTriples,
	"jsonld":        linkeddata.MediaJSONLD,
	"json-ld":       linkeddata.MediaJSONLD,
	"text/n3":       linkeddata.MediaTurtle,
	"text/ntriples": linkeddata.MediaNTriples,
}

// Choice is the negotiated representation.
type Choice struct {
	View      string
	MediaType string
}

// IsRDF reports whether the media type is an RDF serialization.
func (c Choice) IsRDF() bool {
	_, ok := c.Format()
	return ok
}

// Format returns the RDF format of the media type.
func (c Choice) Format() (graph.Format, bool) {
	switch c.MediaType {
	case linkeddata.MediaTurtle:
		return graph.FormatTurtle, true
	case linkeddata.MediaNTriples:
		return graph.FormatNTriples, true
	case linkeddata.MediaJSONLD:
		return graph.FormatJSONLD, true
	}
	return "", false
}

// Resolve negotiates a representation. views lists the views the resource
// supports besides ViewAlternates; the first one is the default.
func Resolve(r *http.Request, views ...string) (Choice, error) {
	q := r.URL.Query()
	c := Choice{View: ViewDefault}
	if len(views) > 0 {
		c.View = views[0]
	}

	if v := q.Get("_view"); v != "" {
		if !contains(views, v) && v != ViewAlternates {
			return Choice{}, fmt.Errorf("%w: view %q", ErrNotAcceptable, v)
		}
		c.View = v
	}

	if f := strings.ToLower(strings.TrimSpace(q.Get("_format"))); f != "" {
		if alias, ok := formatAliases[f]; ok {
			f = alias
		}
		if !contains(Offers, f) {
			return Choice{}, fmt.Errorf("%w: format %q", ErrNotAcceptable, f)
		}
		c.MediaType = f
		return c, nil
	}

	accept := r.Header.Get("Accept")
	if strings.TrimSpace(accept) == "" {
		c.MediaType = MediaHTML
		return c, nil
	}
	c.MediaType = goautoneg.Negotiate(accept, Offers)
	if c.MediaType == "" {
		return Choice{}, fmt.Errorf("%w: accept %q", ErrNotAcceptable, accept)
	}
	return c, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Language returns the base language the client asked for: the lang
// query parameter, else the best Accept-Language match among supported,
// else fallback. With no supported list any well-formed tag is accepted.
func Language(r *http.Request, fallback string, supported []language.Tag) string {
	if l := r.URL.Query().Get("lang"); l != "" {
		if tag, err := language.Parse(l); err == nil {
			return base(tag)
		}
	}

	header := r.Header.Get("Accept-Language")
	if header == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	if len(supported) == 0 {
		return base(tags[0])
	}
	_, i, conf := language.NewMatcher(supported).Match(tags...)
	if conf == language.No {
		return fallback
	}
	return base(supported[i])
}

func base(tag language.Tag) string {
	b, _ := tag.Base()
	return b.String()
}
