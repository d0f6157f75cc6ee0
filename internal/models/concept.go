// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "sort"

// MultilingualLabels is the predicate label under which non-primary
// skos:prefLabel values are listed.
const MultilingualLabels = "Multilingual Labels"

// RelatedObject is one object of a predicate on a concept. Label is empty
// for literal objects.
type RelatedObject struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// Relationship groups all objects that share one predicate.
type Relationship struct {
	Predicate string          `json:"predicate"`
	Label     string          `json:"label"`
	Objects   []RelatedObject `json:"objects"`
}

// Concept is a SKOS concept built fresh for each request.
type Concept struct {
	VocabID        string         `json:"vocab_id"`
	URI            string         `json:"uri"`
	PrefLabel      string         `json:"pref_label"`
	Definition     string         `json:"definition,omitempty"`
	AltLabels      []string       `json:"alt_labels,omitempty"`
	HiddenLabels   []string       `json:"hidden_labels,omitempty"`
	Broaders       []Labelled     `json:"broaders,omitempty"`
	Narrowers      []Labelled     `json:"narrowers,omitempty"`
	RelatedObjects []Relationship `json:"related_objects"`
}

// Related returns the relationship for a predicate URI, or nil.
func (c *Concept) Related(predicate string) *Relationship {
	for i := range c.RelatedObjects {
		if c.RelatedObjects[i].Predicate == predicate {
			return &c.RelatedObjects[i]
		}
	}
	return nil
}

// RelationshipSet accumulates predicate/object pairs, merging objects that
// share a predicate. Sorted returns predicates and objects in key order so
// that identical input always yields identical output.
type RelationshipSet struct {
	labels  map[string]string
	objects map[string]map[string]string
}

// NewRelationshipSet returns an empty set.
func NewRelationshipSet() *RelationshipSet {
	return &RelationshipSet{
		labels:  make(map[string]string),
		objects: make(map[string]map[string]string),
	}
}

// Add records object (with optional label) under predicate. The first
// predicate label seen wins; a later non-empty object label replaces an
// empty one.
func (s *RelationshipSet) Add(predicate, predicateLabel, object, objectLabel string) {
	if _, ok := s.labels[predicate]; !ok {
		s.labels[predicate] = predicateLabel
		s.objects[predicate] = make(map[string]string)
	}
	if existing, ok := s.objects[predicate][object]; ok && existing != "" {
		return
	}
	s.objects[predicate][object] = objectLabel
}

// Len returns the number of distinct predicates.
func (s *RelationshipSet) Len() int { return len(s.labels) }

// Sorted returns the relationships ordered by predicate URI, each with its
// objects ordered by value.
func (s *RelationshipSet) Sorted() []Relationship {
	predicates := make([]string, 0, len(s.labels))
	for p := range s.labels {
		predicates = append(predicates, p)
	}
	sort.Strings(predicates)

	out := make([]Relationship, 0, len(predicates))
	for _, p := range predicates {
		values := make([]string, 0, len(s.objects[p]))
		for v := range s.objects[p] {
			values = append(values, v)
		}
		sort.Strings(values)

		rel := Relationship{Predicate: p, Label: s.labels[p]}
		for _, v := range values {
			rel.Objects = append(rel.Objects, RelatedObject{Value: v, Label: s.objects[p][v]})
		}
		out = append(out, rel)
	}
	return out
}

// Collection is a SKOS collection built fresh for each request.
type Collection struct {
	VocabID    string     `json:"vocab_id"`
	URI        string     `json:"uri"`
	PrefLabel  string     `json:"pref_label"`
	Definition string     `json:"definition,omitempty"`
	Members    []Labelled `json:"members"`
	Source     string     `json:"source,omitempty"`
}

// ConceptSummary is one row of a vocabulary's concept register.
type ConceptSummary struct {
	URI        string `json:"uri"`
	Label      string `json:"label"`
	Definition string `json:"definition,omitempty"`
	Created    string `json:"created,omitempty"`
	Modified   string `json:"modified,omitempty"`
}
