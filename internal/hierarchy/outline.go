// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package hierarchy

import (
	"html/template"
	"strings"

	"vocabserve/internal/markdown"
	"vocabserve/internal/models"
)

// Linker maps a concept URI to the href used in the outline.
type Linker func(uri string) string

// Outline renders entries as a tab-indented Markdown list. An entry may be
// at most one step deeper than the line above it; deeper entries are
// re-indented one step below their tracked broader concept, or to the top
// when the broader was never listed.
func Outline(entries []models.HierarchyEntry, link Linker) string {
	if link == nil {
		link = func(uri string) string { return uri }
	}

	var sb strings.Builder
	indents := make(map[string]int, len(entries))
	prev := 0
	for _, e := range entries {
		indent := e.Level - 1
		if indent < 0 {
			indent = 0
		}
		if indent > prev+1 {
			if p, ok := indents[e.BroaderURI]; ok {
				indent = p + 1
			} else {
				indent = 0
			}
			if indent > prev+1 {
				indent = prev + 1
			}
		} else if e.BroaderURI != "" {
			if _, ok := indents[e.BroaderURI]; !ok {
				indent = 0
			}
		}

		sb.WriteString(strings.Repeat("\t", indent))
		sb.WriteString("* [")
		sb.WriteString(escapeLabel(e.Label))
		sb.WriteString("](")
		sb.WriteString(escapeDestination(link(e.URI)))
		sb.WriteString(")\n")

		prev = indent
		if _, ok := indents[e.URI]; !ok {
			indents[e.URI] = indent
		}
	}
	return sb.String()
}

// HTML renders entries as nested HTML lists.
func HTML(entries []models.HierarchyEntry, link Linker) (template.HTML, error) {
	out, err := markdown.OutlineToHTML(Outline(entries, link))
	if err != nil {
		return "", err
	}
	return template.HTML(out), nil
}

var labelEscaper = strings.NewReplacer(
	`\`, `\\`, `[`, `\[`, `]`, `\]`, `*`, `\*`, `_`, `\_`, "`", "\\`", `<`, `\<`,
	"\n", " ", "\r", " ",
)

func escapeLabel(s string) string {
	if s == "" {
		return `\-`
	}
	return labelEscaper.Replace(s)
}

var destinationEscaper = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "<", "%3C", ">", "%3E")

func escapeDestination(s string) string {
	return destinationEscaper.Replace(s)
}
