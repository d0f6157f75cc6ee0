// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"html/template"
	"net/url"
	"strings"
	"time"
)

// SourceKind identifies the backend a vocabulary is served from. Each kind
// is bound to exactly one adapter implementation in package source.
type SourceKind string

const (
	SourceFile     SourceKind = "FILE"
	SourceSPARQL   SourceKind = "SPARQL"
	SourceRegistry SourceKind = "REGISTRY"
)

// CollectOrder is the fixed order in which source kinds populate the
// catalog at startup. Later kinds overwrite earlier ones on id collision.
var CollectOrder = []SourceKind{SourceFile, SourceSPARQL, SourceRegistry}

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceFile, SourceSPARQL, SourceRegistry:
		return true
	}
	return false
}

// Labelled is a (URI, label) pair used for top concepts, collection
// members, broader/narrower links and register listings.
type Labelled struct {
	URI   string `json:"uri"`
	Label string `json:"label"`
}

// Vocabulary is a SKOS concept scheme as presented by the service.
// Records are created during catalog population and never mutated after
// their lazy fields (TopConcepts, Hierarchy, Collections) are filled.
type Vocabulary struct {
	ID               string     `json:"id"`
	URI              string     `json:"uri"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Creator          string     `json:"creator,omitempty"`
	Created          string     `json:"created,omitempty"`  // YYYY-MM-DD
	Modified         string     `json:"modified,omitempty"` // YYYY-MM-DD
	VersionInfo      string     `json:"version_info,omitempty"`
	ConceptSchemeURI string     `json:"concept_scheme_uri"`
	Source           SourceKind `json:"source"`

	SparqlEndpoint string `json:"sparql_endpoint,omitempty"`
	SparqlUsername string `json:"-"`
	SparqlPassword string `json:"-"`

	AccessURL   string `json:"access_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`

	TopConcepts []Labelled `json:"top_concepts,omitempty"`
	Hierarchy   *Hierarchy `json:"hierarchy,omitempty"`
	Collections []Labelled `json:"collections,omitempty"`
}

// Clone returns a shallow copy whose slices are safe to append to.
func (v *Vocabulary) Clone() *Vocabulary {
	c := *v
	c.TopConcepts = append([]Labelled(nil), v.TopConcepts...)
	c.Collections = append([]Labelled(nil), v.Collections...)
	return &c
}

// HasValidURI reports whether the vocabulary URI is an absolute URI.
func (v *Vocabulary) HasValidURI() bool {
	u, err := url.Parse(v.URI)
	return err == nil && u.IsAbs()
}

// HierarchyEntry is one line of a flattened concept tree.
// BroaderURI is empty for top-level entries.
type HierarchyEntry struct {
	Level      int    `json:"level"`
	URI        string `json:"uri"`
	Label      string `json:"label"`
	BroaderURI string `json:"broader,omitempty"`
}

// Hierarchy is the computed concept tree of a vocabulary: the entries in
// pre-order plus the rendered HTML outline.
type Hierarchy struct {
	Entries []HierarchyEntry `json:"entries"`
	HTML    template.HTML    `json:"-"`
}

// dateLayouts lists the date formats accepted from RDF literals, most
// specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02Z07:00",
	"2006-01-02",
	"2006-01",
	"2006",
	"02/01/2006",
	"January 2, 2006",
	"2 January 2006",
}

// DateOnly parses an ISO-8601-ish date literal and truncates it to
// YYYY-MM-DD. Values that cannot be parsed are cut to their first ten
// runes, matching what a display would show.
func DateOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if r := []rune(s); len(r) > 10 {
		return string(r[:10])
	}
	return s
}
