// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package source

import (
	"fmt"
	"sort"
	"strings"

	"vocabserve/internal/graph"
	"vocabserve/internal/hierarchy"
	"vocabserve/internal/models"
	"vocabserve/internal/sparql"
)

// Variable names shared by remote query results and rows synthesised from
// in-memory graphs.
const (
	varPredicate      = "predicate"
	varObject         = "object"
	varPredicateLabel = "predicateLabel"
	varObjectLabel    = "objectLabel"

	varTopConcept = "top_concept"
	varPrefLabel  = "prefLabel"

	varConcept      = "concept"
	varConceptLabel = "concept_preflabel"
	varBroader      = "broader_concept"

	varDefinition = "d"
	varCreated    = "created"
	varModified   = "modified"

	varCollection = "collection"
	varLabel      = "label"
	varComment    = "comment"
	varMember     = "m"
	varClass      = "class"
)

// langRank orders candidate labels: the active language first, untagged
// second, anything else last.
func langRank(tag, lang string) int {
	switch {
	case strings.EqualFold(tag, lang):
		return 0
	case tag == "":
		return 1
	}
	return 2
}

// bestLiteral picks the literal to display for the active language. Other
// languages are only used when acceptOther is set.
func bestLiteral(terms []sparql.Term, lang string, acceptOther bool) (string, bool) {
	best, rank := "", 3
	for _, t := range terms {
		if !t.IsLiteral() {
			continue
		}
		r := langRank(t.Lang, lang)
		if r == 2 && !acceptOther {
			continue
		}
		if r < rank || (r == rank && t.Value < best) {
			best, rank = t.Value, r
		}
	}
	return best, rank < 3
}

// conceptFromRows assembles a Concept from (predicate, object,
// predicateLabel?, objectLabel?) rows describing every outgoing statement
// of uri. All prefLabel languages are kept: the active (or untagged) one
// becomes the primary label and the others are listed under
// models.MultilingualLabels as "value (lang)".
func conceptFromRows(vocabID, uri, lang string, rows []sparql.Row) (*models.Concept, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("concept %s: %w", uri, ErrNotFound)
	}

	c := &models.Concept{VocabID: vocabID, URI: uri}
	rels := models.NewRelationshipSet()
	var (
		prefLabelRank = 3
		definitions   []sparql.Term
		broaders      = map[string]string{}
		narrowers     = map[string]string{}
	)

	for _, row := range rows {
		if err := row.Require(varPredicate, varObject); err != nil {
			return nil, fmt.Errorf("concept %s: %w: %v", uri, ErrNotFound, err)
		}
		pred := row.Value(varPredicate)
		obj := row[varObject]

		switch pred {
		case graph.SKOSPrefLabel:
			if r := langRank(obj.Lang, lang); r < 2 && r < prefLabelRank {
				c.PrefLabel, prefLabelRank = obj.Value, r
			}
			if obj.Lang == "" || strings.EqualFold(obj.Lang, lang) {
				continue
			}
			rels.Add(pred, models.MultilingualLabels, fmt.Sprintf("%s (%s)", obj.Value, obj.Lang), "")
			continue
		case graph.SKOSDefinition:
			definitions = append(definitions, obj)
		case graph.SKOSAltLabel:
			if langRank(obj.Lang, lang) < 2 {
				c.AltLabels = appendUnique(c.AltLabels, obj.Value)
			}
		case graph.SKOSHiddenLabel:
			if langRank(obj.Lang, lang) < 2 {
				c.HiddenLabels = appendUnique(c.HiddenLabels, obj.Value)
			}
		}

		predLabel := row.Value(varPredicateLabel)
		if predLabel == "" {
			predLabel = MakeTitle(pred)
		}

		switch {
		case obj.IsLiteral():
			rels.Add(pred, predLabel, obj.Value, "")
		case obj.IsURI():
			objLabel := row.Value(varObjectLabel)
			if objLabel == "" {
				objLabel = MakeTitle(obj.Value)
			}
			rels.Add(pred, predLabel, obj.Value, objLabel)
			switch pred {
			case graph.SKOSBroader:
				keepLabel(broaders, obj.Value, row.Value(varObjectLabel))
			case graph.SKOSNarrower:
				keepLabel(narrowers, obj.Value, row.Value(varObjectLabel))
			}
		}
		// Blank nodes carry no displayable identity and are skipped.
	}

	if c.PrefLabel == "" {
		c.PrefLabel = MakeTitle(uri)
	}
	c.Definition, _ = bestLiteral(definitions, lang, true)
	c.Broaders = sortedLabelled(broaders)
	c.Narrowers = sortedLabelled(narrowers)
	c.RelatedObjects = rels.Sorted()
	return c, nil
}

func keepLabel(m map[string]string, uri, label string) {
	if label == "" {
		label = MakeTitle(uri)
	}
	if cur, ok := m[uri]; !ok || cur > label {
		m[uri] = label
	}
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

// sortedLabelled orders by label, then URI.
func sortedLabelled(m map[string]string) []models.Labelled {
	out := make([]models.Labelled, 0, len(m))
	for uri, label := range m {
		out = append(out, models.Labelled{URI: uri, Label: label})
	}
	sortByLabel(out)
	return out
}

func sortByLabel(items []models.Labelled) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Label != items[j].Label {
			return items[i].Label < items[j].Label
		}
		return items[i].URI < items[j].URI
	})
}

// labelsByURI collapses (uriVar, labelVar) rows to one label per URI,
// preferring the active language, and returns the URIs in first-seen order.
func labelsByURI(rows []sparql.Row, uriVar, labelVar, lang string) ([]string, map[string]string) {
	var order []string
	terms := map[string][]sparql.Term{}
	for _, row := range rows {
		if !row.Has(uriVar) || !row[uriVar].IsURI() {
			continue
		}
		u := row.Value(uriVar)
		if _, ok := terms[u]; !ok {
			order = append(order, u)
			terms[u] = nil
		}
		if row.Has(labelVar) {
			terms[u] = append(terms[u], row[labelVar])
		}
	}
	labels := make(map[string]string, len(order))
	for _, u := range order {
		l, ok := bestLiteral(terms[u], lang, true)
		if !ok {
			l = MakeTitle(u)
		}
		labels[u] = l
	}
	return order, labels
}

// topConceptsFromRows turns (top_concept, prefLabel) rows into a list
// sorted by label. Concepts sharing a label are listed once, keeping the
// one seen first in the result rows, which hides owl:sameAs duplicates.
func topConceptsFromRows(rows []sparql.Row, lang string) []models.Labelled {
	order, labels := labelsByURI(rows, varTopConcept, varPrefLabel, lang)
	out := make([]models.Labelled, 0, len(order))
	for _, u := range order {
		out = append(out, models.Labelled{URI: u, Label: labels[u]})
	}
	out = dedupeByLabel(out)
	sortByLabel(out)
	return out
}

// dedupeByLabel keeps the first item for each label, preserving order.
func dedupeByLabel(items []models.Labelled) []models.Labelled {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if seen[it.Label] {
			continue
		}
		seen[it.Label] = true
		out = append(out, it)
	}
	return out
}

// hierarchyRowsFromRows turns (concept, concept_preflabel?, broader_concept?)
// rows into builder input with one label per concept.
func hierarchyRowsFromRows(rows []sparql.Row, lang string) []hierarchy.Row {
	_, labels := labelsByURI(rows, varConcept, varConceptLabel, lang)
	seen := map[[2]string]bool{}
	var out []hierarchy.Row
	for _, row := range rows {
		if !row.Has(varConcept) || !row[varConcept].IsURI() {
			continue
		}
		u := row.Value(varConcept)
		b := ""
		if row.Has(varBroader) && row[varBroader].IsURI() && row.Value(varBroader) != u {
			b = row.Value(varBroader)
		}
		key := [2]string{u, b}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, hierarchy.Row{URI: u, Label: labels[u], BroaderURI: b})
	}

	// A concept listed both with and without a broader is not a root.
	hasBroader := map[string]bool{}
	for _, r := range out {
		if r.BroaderURI != "" {
			hasBroader[r.URI] = true
		}
	}
	filtered := out[:0]
	for _, r := range out {
		if r.BroaderURI == "" && hasBroader[r.URI] {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// conceptSummariesFromRows builds a concept register from
// (concept, prefLabel, d?, created?, modified?) rows, sorted by label.
func conceptSummariesFromRows(rows []sparql.Row, lang string) []models.ConceptSummary {
	order, labels := labelsByURI(rows, varConcept, varPrefLabel, lang)
	defs := map[string][]sparql.Term{}
	created := map[string]string{}
	modified := map[string]string{}
	for _, row := range rows {
		u := row.Value(varConcept)
		if row.Has(varDefinition) {
			defs[u] = append(defs[u], row[varDefinition])
		}
		if v := row.Value(varCreated); v != "" && created[u] == "" {
			created[u] = models.DateOnly(v)
		}
		if v := row.Value(varModified); v != "" && modified[u] == "" {
			modified[u] = models.DateOnly(v)
		}
	}
	out := make([]models.ConceptSummary, 0, len(order))
	for _, u := range order {
		d, _ := bestLiteral(defs[u], lang, false)
		out = append(out, models.ConceptSummary{
			URI:        u,
			Label:      labels[u],
			Definition: d,
			Created:    created[u],
			Modified:   modified[u],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].URI < out[j].URI
	})
	return out
}

// labelledFromRows collapses (uriVar, labelVar) rows to a label-sorted list.
func labelledFromRows(rows []sparql.Row, uriVar, labelVar, lang string) []models.Labelled {
	order, labels := labelsByURI(rows, uriVar, labelVar, lang)
	out := make([]models.Labelled, 0, len(order))
	for _, u := range order {
		out = append(out, models.Labelled{URI: u, Label: labels[u]})
	}
	sortByLabel(out)
	return out
}

// collectionFromRows builds a Collection from metadata rows (label,
// comment?) and member rows (m, prefLabel?).
func collectionFromRows(vocabID, uri, lang string, meta, members []sparql.Row) (*models.Collection, error) {
	var labels, comments []sparql.Term
	for _, row := range meta {
		if row.Has(varLabel) {
			labels = append(labels, row[varLabel])
		}
		if row.Has(varComment) {
			comments = append(comments, row[varComment])
		}
	}
	label, ok := bestLiteral(labels, lang, true)
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", uri, ErrNotFound)
	}
	comment, _ := bestLiteral(comments, lang, true)
	return &models.Collection{
		VocabID:    vocabID,
		URI:        uri,
		PrefLabel:  label,
		Definition: comment,
		Members:    labelledFromRows(members, varMember, varPrefLabel, lang),
	}, nil
}

// vocabTypes are the classes the object view knows how to present, in
// order of preference.
var vocabTypes = []string{
	"http://purl.org/vocommons/voaf#Vocabulary",
	graph.SKOSConceptScheme,
	graph.SKOSCollection,
	graph.NSSKOS + "ConceptCollection",
	graph.SKOSConcept,
}

// pickObjectClass returns the first known class among the given types.
func pickObjectClass(types []string) string {
	for _, known := range vocabTypes {
		for _, t := range types {
			if t == known {
				return known
			}
		}
	}
	return ""
}
