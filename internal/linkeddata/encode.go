// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package linkeddata serializes vocabulary graphs and builds the RDF
// descriptions of vocabularies, concepts and collections.
package linkeddata

import (
	"fmt"
	"io"
	"sort"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/jsonld"
	"github.com/cayleygraph/quad/nquads"
	"github.com/knakk/rdf"

	"vocabserve/internal/graph"
)

// Media types of the serializations Encode produces.
const (
	MediaTurtle   = "text/turtle"
	MediaNTriples = "application/n-triples"
	MediaJSONLD   = "application/ld+json"
)

// MediaType returns the Content-Type for an output format.
func MediaType(f graph.Format) string {
	switch f {
	case graph.FormatTurtle:
		return MediaTurtle + "; charset=utf-8"
	case graph.FormatNTriples:
		return MediaNTriples + "; charset=utf-8"
	case graph.FormatJSONLD:
		return MediaJSONLD
	}
	return "application/octet-stream"
}

// Encode writes g in format f. Triples are written in subject, predicate,
// object order so identical graphs give identical documents.
func Encode(w io.Writer, g *graph.Graph, f graph.Format) error {
	triples := sorted(g)
	switch f {
	case graph.FormatTurtle:
		return encodeTurtle(w, triples)
	case graph.FormatNTriples:
		return encodeQuads(nquads.NewWriter(w), triples)
	case graph.FormatJSONLD:
		return encodeQuads(jsonld.NewWriter(w), triples)
	}
	return fmt.Errorf("encode: %w: %s", graph.ErrUnknownFormat, f)
}

func sorted(g *graph.Graph) []graph.Triple {
	ts := append([]graph.Triple(nil), g.Triples()...)
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if a.S.Value != b.S.Value {
			return a.S.Value < b.S.Value
		}
		if a.P.Value != b.P.Value {
			return a.P.Value < b.P.Value
		}
		if a.O.Value != b.O.Value {
			return a.O.Value < b.O.Value
		}
		return a.O.Lang < b.O.Lang
	})
	return ts
}

func encodeTurtle(w io.Writer, triples []graph.Triple) error {
	enc := rdf.NewTripleEncoder(w, rdf.Turtle)
	enc.Namespaces = make(map[string]string, len(graph.Prefixes))
	for ns, prefix := range graph.Prefixes {
		enc.Namespaces[ns] = prefix
	}
	for _, t := range triples {
		kt, err := toKnakk(t)
		if err != nil {
			return fmt.Errorf("encode turtle: %w", err)
		}
		if err := enc.Encode(kt); err != nil {
			return fmt.Errorf("encode turtle: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode turtle: %w", err)
	}
	return nil
}

func toKnakk(t graph.Triple) (rdf.Triple, error) {
	s, err := knakkTerm(t.S)
	if err != nil {
		return rdf.Triple{}, err
	}
	p, err := rdf.NewIRI(t.P.Value)
	if err != nil {
		return rdf.Triple{}, err
	}
	o, err := knakkTerm(t.O)
	if err != nil {
		return rdf.Triple{}, err
	}
	subj, ok := s.(rdf.Subject)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("literal subject %q", t.S.Value)
	}
	return rdf.Triple{Subj: subj, Pred: p, Obj: o.(rdf.Object)}, nil
}

func knakkTerm(t graph.Term) (rdf.Term, error) {
	switch t.Kind {
	case graph.KindIRI:
		return rdf.NewIRI(t.Value)
	case graph.KindBlank:
		return rdf.NewBlank(t.Value)
	}
	if t.Lang != "" {
		return rdf.NewLangLiteral(t.Value, t.Lang)
	}
	if t.Datatype != "" {
		dt, err := rdf.NewIRI(t.Datatype)
		if err != nil {
			return nil, err
		}
		return rdf.NewTypedLiteral(t.Value, dt), nil
	}
	return rdf.NewLiteral(t.Value)
}

type quadWriter interface {
	WriteQuad(quad.Quad) error
	Close() error
}

func encodeQuads(qw quadWriter, triples []graph.Triple) error {
	for _, t := range triples {
		q := quad.Quad{Subject: quadValue(t.S), Predicate: quad.IRI(t.P.Value), Object: quadValue(t.O)}
		if err := qw.WriteQuad(q); err != nil {
			return fmt.Errorf("encode quads: %w", err)
		}
	}
	if err := qw.Close(); err != nil {
		return fmt.Errorf("encode quads: %w", err)
	}
	return nil
}

func quadValue(t graph.Term) quad.Value {
	switch t.Kind {
	case graph.KindIRI:
		return quad.IRI(t.Value)
	case graph.KindBlank:
		return quad.BNode(t.Value)
	}
	switch {
	case t.Lang != "":
		return quad.LangString{Value: quad.String(t.Value), Lang: t.Lang}
	case t.Datatype != "":
		return quad.TypedString{Value: quad.String(t.Value), Type: quad.IRI(t.Datatype)}
	}
	return quad.String(t.Value)
}
