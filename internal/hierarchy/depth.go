// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package hierarchy

import "vocabserve/internal/models"

// DepthRow is a concept as reported by endpoints that compute the distance
// from the concept scheme themselves. Rows are expected in ascending Depth
// order, but Depth is only used for ordering: reported values are often
// wrong, so levels are recomputed from the parent links.
type DepthRow struct {
	URI       string
	Label     string
	ParentURI string // empty for top concepts
	Depth     int
}

// BuildFromDepths inserts each row directly below its parent. A row is
// placed after the parent's already-inserted subtree, so siblings keep
// their input order. Top concepts are appended at level 1.
//
// Rows whose parent has not been inserted yet are retried once all other
// rows are placed; those that still have no parent are appended at
// level 1 as orphans. A row whose concept is already an ancestor of its
// parent closes a cycle and is reported instead of inserted.
func BuildFromDepths(rows []DepthRow) Result {
	var res Result
	pending := rows
	for {
		var next []DepthRow
		for _, r := range pending {
			switch insertDepthRow(&res.Entries, r) {
			case depthMissingParent:
				next = append(next, r)
			case depthCycle:
				res.Problems = append(res.Problems, Problem{Kind: ProblemCycle, URI: r.URI, BroaderURI: r.ParentURI})
			}
		}
		if len(next) == 0 || len(next) == len(pending) {
			pending = next
			break
		}
		pending = next
	}

	for _, r := range pending {
		res.Problems = append(res.Problems, Problem{Kind: ProblemOrphan, URI: r.URI, BroaderURI: r.ParentURI})
		res.Entries = append(res.Entries, models.HierarchyEntry{Level: 1, URI: r.URI, Label: r.Label})
	}
	return res
}

type depthOutcome int

const (
	depthInserted depthOutcome = iota
	depthMissingParent
	depthCycle
)

// insertDepthRow places r below the first entry for its parent.
func insertDepthRow(entries *[]models.HierarchyEntry, r DepthRow) depthOutcome {
	if r.ParentURI == "" {
		*entries = append(*entries, models.HierarchyEntry{Level: 1, URI: r.URI, Label: r.Label})
		return depthInserted
	}

	es := *entries
	parent := -1
	for i := range es {
		if es[i].URI == r.ParentURI {
			parent = i
			break
		}
	}
	if parent < 0 {
		return depthMissingParent
	}
	if closesCycle(es, parent, r.URI) {
		return depthCycle
	}

	level := es[parent].Level + 1
	at := parent + 1
	for at < len(es) && es[at].Level > es[parent].Level {
		at++
	}

	e := models.HierarchyEntry{Level: level, URI: r.URI, Label: r.Label, BroaderURI: r.ParentURI}
	es = append(es, models.HierarchyEntry{})
	copy(es[at+1:], es[at:])
	es[at] = e
	*entries = es
	return depthInserted
}

// closesCycle reports whether uri is the entry at i or one of its
// ancestors. Ancestors are the nearest preceding entries one level up.
func closesCycle(es []models.HierarchyEntry, i int, uri string) bool {
	level := es[i].Level
	if es[i].URI == uri {
		return true
	}
	for j := i - 1; j >= 0 && level > 1; j-- {
		if es[j].Level != level-1 {
			continue
		}
		if es[j].URI == uri {
			return true
		}
		level--
	}
	return false
}
