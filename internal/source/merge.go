// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package source

import (
	"log/slog"
	"strings"

	"vocabserve/internal/models"
)

// mergeDiscovered folds a newly discovered record into the set keyed by
// id. Discovery queries return one row per combination of optional
// values, so the same scheme can arrive several times:
//
//   - same scheme URI (case-insensitive): string fields that differ are
//     joined with ", ";
//   - different scheme URIs for one id: the shorter URI wins, ties going
//     to the lexicographically smaller one.
func mergeDiscovered(records map[string]*models.Vocabulary, v *models.Vocabulary) {
	cur, ok := records[v.ID]
	if !ok {
		records[v.ID] = v
		return
	}

	if strings.EqualFold(cur.ConceptSchemeURI, v.ConceptSchemeURI) {
		cur.Title = joinDistinct(cur.Title, v.Title)
		cur.Description = joinDistinct(cur.Description, v.Description)
		cur.Creator = joinDistinct(cur.Creator, v.Creator)
		cur.VersionInfo = joinDistinct(cur.VersionInfo, v.VersionInfo)
		if cur.Created == "" {
			cur.Created = v.Created
		}
		if cur.Modified == "" {
			cur.Modified = v.Modified
		}
		return
	}

	if preferURI(v.ConceptSchemeURI, cur.ConceptSchemeURI) {
		slog.Debug("replacing duplicate vocabulary record",
			"id", v.ID, "old", cur.ConceptSchemeURI, "new", v.ConceptSchemeURI)
		records[v.ID] = v
	}
}

// preferURI reports whether a should replace b.
func preferURI(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// joinDistinct appends add to cur unless it is empty or already one of
// the comma-separated values.
func joinDistinct(cur, add string) string {
	switch {
	case add == "":
		return cur
	case cur == "":
		return add
	}
	for _, part := range strings.Split(cur, ", ") {
		if part == add {
			return cur
		}
	}
	return cur + ", " + add
}
