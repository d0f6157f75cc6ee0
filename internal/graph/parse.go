// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package graph

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/jsonld"
	"github.com/cayleygraph/quad/nquads"
	"github.com/knakk/rdf"
)

// Format is an RDF serialization the loader understands.
type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatRDFXML   Format = "rdfxml"
	FormatNTriples Format = "ntriples"
	FormatNQuads   Format = "nquads"
	FormatJSONLD   Format = "jsonld"
)

// ErrUnknownFormat is returned for files or media types with no parser.
var ErrUnknownFormat = errors.New("unknown rdf format")

// FormatForPath picks a format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttl", ".turtle":
		return FormatTurtle, nil
	case ".rdf", ".xml", ".owl":
		return FormatRDFXML, nil
	case ".nt":
		return FormatNTriples, nil
	case ".nq":
		return FormatNQuads, nil
	case ".jsonld":
		return FormatJSONLD, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// FormatForMediaType picks a format from a Content-Type header value.
func FormatForMediaType(contentType string) (Format, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, contentType)
	}
	switch mt {
	case "text/turtle", "application/turtle", "application/x-turtle":
		return FormatTurtle, nil
	case "application/rdf+xml":
		return FormatRDFXML, nil
	case "application/n-triples", "text/plain":
		return FormatNTriples, nil
	case "application/n-quads":
		return FormatNQuads, nil
	case "application/ld+json":
		return FormatJSONLD, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, contentType)
}

// Parse reads a whole document into a new graph. Named graph labels in
// quad formats are dropped.
func Parse(r io.Reader, f Format) (*Graph, error) {
	g := New()
	var err error
	switch f {
	case FormatTurtle:
		err = decodeKnakk(g, r, rdf.Turtle)
	case FormatRDFXML:
		err = decodeKnakk(g, r, rdf.RDFXML)
	case FormatNTriples, FormatNQuads:
		err = readQuads(g, nquads.NewReader(r, true))
	case FormatJSONLD:
		err = readQuads(g, jsonld.NewReader(r))
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f, err)
	}
	return g, nil
}

func decodeKnakk(g *Graph, r io.Reader, f rdf.Format) error {
	dec := rdf.NewTripleDecoder(r, f)
	for {
		t, err := dec.Decode()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		g.Add(Triple{S: fromKnakk(t.Subj), P: fromKnakk(t.Pred), O: fromKnakk(t.Obj)})
	}
}

func fromKnakk(t rdf.Term) Term {
	switch v := t.(type) {
	case rdf.IRI:
		return IRI(v.String())
	case rdf.Blank:
		return Blank(strings.TrimPrefix(v.String(), "_:"))
	case rdf.Literal:
		lit := Literal(v.String(), v.Lang())
		if v.Lang() == "" {
			lit.Datatype = plainDatatype(v.DataType.String())
		}
		return lit
	}
	return Literal(t.String(), "")
}

type quadReader interface {
	ReadQuad() (quad.Quad, error)
}

func readQuads(g *Graph, qr quadReader) error {
	if c, ok := qr.(io.Closer); ok {
		defer c.Close()
	}
	for {
		q, err := qr.ReadQuad()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if q.Subject == nil || q.Predicate == nil || q.Object == nil {
			continue
		}
		g.Add(Triple{S: fromQuad(q.Subject), P: fromQuad(q.Predicate), O: fromQuad(q.Object)})
	}
}

func fromQuad(v quad.Value) Term {
	switch v := v.(type) {
	case quad.IRI:
		return IRI(string(v))
	case quad.BNode:
		return Blank(string(v))
	case quad.String:
		return Literal(string(v), "")
	case quad.LangString:
		return Literal(string(v.Value), v.Lang)
	case quad.TypedString:
		return Term{Kind: KindLiteral, Value: string(v.Value), Datatype: plainDatatype(string(v.Type))}
	}
	return Literal(quad.StringOf(v), "")
}

// plainDatatype drops xsd:string, which is the default for untagged
// literals and only adds noise.
func plainDatatype(dt string) string {
	if dt == NSXSD+"string" {
		return ""
	}
	return dt
}
