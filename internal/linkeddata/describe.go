// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package linkeddata

import (
	"strings"

	"vocabserve/internal/graph"
	"vocabserve/internal/models"
)

// VocabularyGraph describes a vocabulary as a dcat:Dataset with its top
// concepts. Dates are typed xsd:date.
func VocabularyGraph(v *models.Vocabulary) *graph.Graph {
	g := graph.New()
	s := graph.IRI(v.URI)
	add := func(p string, o graph.Term) {
		g.Add(graph.Triple{S: s, P: graph.IRI(p), O: o})
	}

	add(graph.RDFType, graph.IRI(graph.DCATDataset))
	if v.Title != "" {
		add(graph.DCTTitle, graph.Literal(v.Title, ""))
	}
	if v.Description != "" {
		add(graph.DCTDescription, graph.Literal(v.Description, ""))
	}
	if v.Creator != "" {
		add(graph.DCTCreator, resourceOrLiteral(v.Creator))
	}
	if v.Created != "" {
		add(graph.DCTCreated, date(v.Created))
	}
	if v.Modified != "" {
		add(graph.DCTModified, date(v.Modified))
	}
	if v.VersionInfo != "" {
		add(graph.OWLVersionInfo, graph.Literal(v.VersionInfo, ""))
	}
	for _, tc := range v.TopConcepts {
		add(graph.SKOSHasTopConcept, graph.IRI(tc.URI))
		g.Add(graph.Triple{S: graph.IRI(tc.URI), P: graph.IRI(graph.SKOSPrefLabel), O: graph.Literal(tc.Label, "")})
	}
	if v.AccessURL != "" {
		add(graph.DCATAccessURL, graph.IRI(v.AccessURL))
	}
	if v.DownloadURL != "" {
		add(graph.DCATDownloadURL, graph.IRI(v.DownloadURL))
	}
	return g
}

// ConceptGraph describes a concept with the statements it was built from.
// Non-primary labels are restored as language-tagged prefLabels.
func ConceptGraph(c *models.Concept, lang string) *graph.Graph {
	g := graph.New()
	s := graph.IRI(c.URI)
	add := func(p string, o graph.Term) {
		g.Add(graph.Triple{S: s, P: graph.IRI(p), O: o})
	}

	add(graph.RDFType, graph.IRI(graph.SKOSConcept))
	add(graph.SKOSPrefLabel, graph.Literal(c.PrefLabel, lang))
	if c.Definition != "" {
		add(graph.SKOSDefinition, graph.Literal(c.Definition, lang))
	}
	for _, l := range c.AltLabels {
		add(graph.SKOSAltLabel, graph.Literal(l, lang))
	}
	for _, l := range c.HiddenLabels {
		add(graph.SKOSHiddenLabel, graph.Literal(l, lang))
	}
	for _, b := range c.Broaders {
		add(graph.SKOSBroader, graph.IRI(b.URI))
	}
	for _, n := range c.Narrowers {
		add(graph.SKOSNarrower, graph.IRI(n.URI))
	}

	for _, rel := range c.RelatedObjects {
		switch rel.Predicate {
		case graph.SKOSDefinition, graph.SKOSAltLabel, graph.SKOSHiddenLabel:
			continue
		case graph.SKOSPrefLabel:
			for _, o := range rel.Objects {
				if value, tag, ok := splitTagged(o.Value); ok {
					add(graph.SKOSPrefLabel, graph.Literal(value, tag))
				}
			}
			continue
		}
		for _, o := range rel.Objects {
			// URI objects always carry a display label.
			if o.Label != "" {
				add(rel.Predicate, graph.IRI(o.Value))
				g.Add(graph.Triple{S: graph.IRI(o.Value), P: graph.IRI(graph.SKOSPrefLabel), O: graph.Literal(o.Label, "")})
				continue
			}
			add(rel.Predicate, graph.Literal(o.Value, ""))
		}
	}
	return g
}

// CollectionGraph describes a collection and its members.
func CollectionGraph(c *models.Collection) *graph.Graph {
	g := graph.New()
	s := graph.IRI(c.URI)
	g.Add(graph.Triple{S: s, P: graph.IRI(graph.RDFType), O: graph.IRI(graph.SKOSCollection)})
	g.Add(graph.Triple{S: s, P: graph.IRI(graph.SKOSPrefLabel), O: graph.Literal(c.PrefLabel, "")})
	if c.Definition != "" {
		g.Add(graph.Triple{S: s, P: graph.IRI(graph.SKOSDefinition), O: graph.Literal(c.Definition, "")})
	}
	for _, m := range c.Members {
		g.Add(graph.Triple{S: s, P: graph.IRI(graph.SKOSMember), O: graph.IRI(m.URI)})
		g.Add(graph.Triple{S: graph.IRI(m.URI), P: graph.IRI(graph.SKOSPrefLabel), O: graph.Literal(m.Label, "")})
	}
	return g
}

// RegisterGraph lists resources of one class in a vocabulary, each with
// its label and skos:inScheme.
func RegisterGraph(v *models.Vocabulary, class string, items []models.Labelled) *graph.Graph {
	g := graph.New()
	scheme := graph.IRI(v.ConceptSchemeURI)
	for _, it := range items {
		s := graph.IRI(it.URI)
		g.Add(graph.Triple{S: s, P: graph.IRI(graph.RDFType), O: graph.IRI(class)})
		if it.Label != "" {
			g.Add(graph.Triple{S: s, P: graph.IRI(graph.SKOSPrefLabel), O: graph.Literal(it.Label, "")})
		}
		if v.ConceptSchemeURI != "" {
			g.Add(graph.Triple{S: s, P: graph.IRI(graph.SKOSInScheme), O: scheme})
		}
	}
	return g
}

func resourceOrLiteral(s string) graph.Term {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return graph.IRI(s)
	}
	return graph.Literal(s, "")
}

func date(s string) graph.Term {
	t := graph.Literal(s, "")
	t.Datatype = graph.NSXSD + "date"
	return t
}

// splitTagged parses "value (lang)" as produced for multilingual labels.
func splitTagged(s string) (value, lang string, ok bool) {
	if !strings.HasSuffix(s, ")") {
		return "", "", false
	}
	i := strings.LastIndex(s, " (")
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+2 : len(s)-1], true
}
