// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package source

import (
	"path"
	"regexp"
	"strings"
	"unicode"
)

var dashesAndDots = regexp.MustCompile(`[-.]+`)

// MakeTitle turns the last segment of a URI into a display title:
// "http://ex.org/def/iron_ore-grade.2" becomes "Iron Ore Grade 2".
func MakeTitle(uri string) string {
	s := uri
	if i := strings.LastIndex(s, "#"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = titleCase(strings.ReplaceAll(s, "_", " "))
	s = dashesAndDots.ReplaceAllString(s, " ")
	return strings.TrimSpace(titleCase(s))
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

var (
	schemePrefix    = regexp.MustCompile(`^https?://`)
	conceptSchemeRE = regexp.MustCompile(`/conceptScheme$`)
	versionSegment  = regexp.MustCompile(`^[\d.]+$`)
)

// VocabIDFromURI derives a catalog id from a concept scheme URI: the last
// path segment, skipping empty and purely numeric or version-like segments.
// "http://ex.org/def/lithology/2.1/conceptScheme" gives "lithology".
// It returns "" when no usable segment exists.
func VocabIDFromURI(uri string) string {
	p := schemePrefix.ReplaceAllString(uri, "")
	p = conceptSchemeRE.ReplaceAllString(p, "")
	p = strings.TrimSuffix(p, "#")
	for p != "" && p != "." && p != "/" {
		id := path.Base(p)
		if id != "" && id != "." && id != "/" && !versionSegment.MatchString(id) {
			return id
		}
		next := path.Dir(p)
		if next == p {
			break
		}
		p = next
	}
	return ""
}

// VocabURIFromSchemeURI strips a trailing "/conceptScheme" segment, which
// some publishers append to the vocabulary URI.
func VocabURIFromSchemeURI(uri string) string {
	return strings.Replace(uri, "/conceptScheme", "", 1)
}
