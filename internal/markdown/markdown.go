// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown converts Markdown source text into HTML using goldmark.
// Page content (the About page) is operator-authored and may embed raw
// HTML. Outlines are generated from remote vocabulary labels and are
// rendered with raw HTML disabled.
package markdown

import (
	"bytes"

	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// CollapsibleClass is set on every list nested inside another list item.
const CollapsibleClass = "collapsible"

// md renders operator-authored pages.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,         // tables, strikethrough, autolinks
		extension.Typographer, // smart quotes and dashes
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
			highlighting.WithFormatOptions(),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

// outline renders generated nested lists. Raw HTML in labels is escaped.
var outline = goldmark.New(
	goldmark.WithParserOptions(
		parser.WithASTTransformers(util.Prioritized(collapsibleLists{}, 100)),
	),
)

// ToHTML converts Markdown source into HTML. Raw HTML embedded in the
// Markdown is passed through unchanged.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// OutlineToHTML converts a generated Markdown list into HTML, tagging
// nested lists with CollapsibleClass.
func OutlineToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := outline.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// collapsibleLists marks lists whose parent is a list item.
type collapsibleLists struct{}

func (collapsibleLists) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindList {
			return ast.WalkContinue, nil
		}
		if p := n.Parent(); p != nil && p.Kind() == ast.KindListItem {
			n.SetAttributeString("class", []byte(CollapsibleClass))
		}
		return ast.WalkContinue, nil
	})
}
