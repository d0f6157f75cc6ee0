// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package hierarchy rebuilds a concept tree from flat broader/narrower
// rows. The input may be inconsistent (cycles, dangling broader links,
// wrong depth counters); the output is always a finite pre-order listing.
package hierarchy

import (
	"sort"

	"vocabserve/internal/models"
)

// Row is one concept with at most one broader concept. A concept with
// several broaders appears once per broader.
type Row struct {
	URI        string
	Label      string
	BroaderURI string // empty for top concepts
}

// ProblemKind classifies an inconsistency found while building.
type ProblemKind string

const (
	ProblemCycle  ProblemKind = "cycle"
	ProblemOrphan ProblemKind = "orphan"
)

// Problem records one inconsistency. The affected concept is still listed.
type Problem struct {
	Kind       ProblemKind
	URI        string
	BroaderURI string
}

// Result is the flattened tree plus any problems met on the way.
type Result struct {
	Entries  []models.HierarchyEntry
	Problems []Problem
}

type builder struct {
	children map[string][]Row // broader URI -> rows, sorted
	emitted  map[string]bool
	onPath   map[string]bool
	seen     map[Problem]bool
	res      Result
}

// Build walks the rows depth-first from the top concepts (rows without a
// broader), visiting children in label order. Levels start at 1.
//
// A concept already on the current path is not descended into again and
// is reported as a cycle. Rows whose broader concept never appears in the
// input are listed at level 1 as orphans, followed by any cycle members
// that no top concept reaches.
func Build(rows []Row) Result {
	b := &builder{
		children: make(map[string][]Row),
		emitted:  make(map[string]bool),
		onPath:   make(map[string]bool),
		seen:     make(map[Problem]bool),
	}

	known := make(map[string]bool, len(rows))
	unique := make(map[Row]bool, len(rows))
	for _, r := range rows {
		if unique[r] {
			continue
		}
		unique[r] = true
		known[r.URI] = true
		b.children[r.BroaderURI] = append(b.children[r.BroaderURI], r)
	}
	for k := range b.children {
		sortRows(b.children[k])
	}

	b.walk("", 1)

	var orphans []Row
	for broader, rs := range b.children {
		if broader != "" && !known[broader] {
			orphans = append(orphans, rs...)
		}
	}
	sortRows(orphans)
	for _, r := range orphans {
		b.problem(ProblemOrphan, r.URI, r.BroaderURI)
		b.root(r)
	}

	// Whatever is still missing hangs off a cycle that no top concept reaches.
	var rest []Row
	for _, r := range rows {
		if !b.emitted[r.URI] {
			rest = append(rest, r)
		}
	}
	sortRows(rest)
	for _, r := range rest {
		if b.emitted[r.URI] {
			continue
		}
		b.problem(ProblemCycle, r.URI, r.BroaderURI)
		b.root(r)
	}

	return b.res
}

// root emits r at level 1 and walks its subtree.
func (b *builder) root(r Row) {
	b.emit(r, 1, "")
	b.onPath[r.URI] = true
	b.walk(r.URI, 2)
	delete(b.onPath, r.URI)
}

func (b *builder) walk(parent string, level int) {
	for _, r := range b.children[parent] {
		if b.onPath[r.URI] {
			b.problem(ProblemCycle, r.URI, r.BroaderURI)
			continue
		}
		b.emit(r, level, r.BroaderURI)
		b.onPath[r.URI] = true
		b.walk(r.URI, level+1)
		delete(b.onPath, r.URI)
	}
}

func (b *builder) emit(r Row, level int, broader string) {
	b.emitted[r.URI] = true
	b.res.Entries = append(b.res.Entries, models.HierarchyEntry{
		Level:      level,
		URI:        r.URI,
		Label:      r.Label,
		BroaderURI: broader,
	})
}

func (b *builder) problem(kind ProblemKind, uri, broader string) {
	p := Problem{Kind: kind, URI: uri, BroaderURI: broader}
	if b.seen[p] {
		return
	}
	b.seen[p] = true
	b.res.Problems = append(b.res.Problems, p)
}

// sortRows orders by label, then URI, byte-wise.
func sortRows(rs []Row) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Label != rs[j].Label {
			return rs[i].Label < rs[j].Label
		}
		return rs[i].URI < rs[j].URI
	})
}
