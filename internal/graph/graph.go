// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package graph holds an RDF graph in memory and answers simple triple
// patterns against it. It backs file-based vocabularies and cached
// downloads of remote concept schemes.
package graph

import (
	"sort"

	"vocabserve/internal/sparql"
)

// Term kinds share their names with SPARQL JSON result types.
const (
	KindIRI     = sparql.TypeURI
	KindLiteral = sparql.TypeLiteral
	KindBlank   = sparql.TypeBNode
)

// Term is an RDF node.
type Term struct {
	Kind     string `msgpack:"k"`
	Value    string `msgpack:"v"`
	Lang     string `msgpack:"l,omitempty"`
	Datatype string `msgpack:"d,omitempty"`
}

// IRI returns an IRI term.
func IRI(v string) Term { return Term{Kind: KindIRI, Value: v} }

// Blank returns a blank node term.
func Blank(id string) Term { return Term{Kind: KindBlank, Value: id} }

// Literal returns a literal term, optionally language-tagged.
func Literal(v, lang string) Term { return Term{Kind: KindLiteral, Value: v, Lang: lang} }

// IsIRI reports whether t is an IRI.
func (t Term) IsIRI() bool { return t.Kind == KindIRI }

// IsLiteral reports whether t is a literal.
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// Binding converts t to a SPARQL result term, so graph lookups can feed
// the same row handling as remote queries.
func (t Term) Binding() sparql.Term {
	return sparql.Term{Type: t.Kind, Value: t.Value, Lang: t.Lang, Datatype: t.Datatype}
}

// key identifies a node for indexing. Literals never collide with IRIs.
func (t Term) key() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value
	case KindBlank:
		return "_" + t.Value
	}
	return "\"" + t.Value + "@" + t.Lang + "^" + t.Datatype
}

// Triple is one subject/predicate/object statement.
type Triple struct {
	S Term `msgpack:"s"`
	P Term `msgpack:"p"`
	O Term `msgpack:"o"`
}

// Graph is an indexed set of triples. It is built once and then only read,
// so concurrent readers need no locking.
type Graph struct {
	triples []Triple
	seen    map[Triple]struct{}
	bySubj  map[string][]int
	byPred  map[string][]int
	byObj   map[string][]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		seen:   make(map[Triple]struct{}),
		bySubj: make(map[string][]int),
		byPred: make(map[string][]int),
		byObj:  make(map[string][]int),
	}
}

// Add inserts a triple. Duplicates are ignored.
func (g *Graph) Add(t Triple) {
	if _, ok := g.seen[t]; ok {
		return
	}
	g.seen[t] = struct{}{}
	i := len(g.triples)
	g.triples = append(g.triples, t)
	g.bySubj[t.S.key()] = append(g.bySubj[t.S.key()], i)
	g.byPred[t.P.Value] = append(g.byPred[t.P.Value], i)
	g.byObj[t.O.key()] = append(g.byObj[t.O.key()], i)
}

// Len returns the number of triples.
func (g *Graph) Len() int { return len(g.triples) }

// Triples returns all triples in insertion order.
func (g *Graph) Triples() []Triple { return g.triples }

// Match returns the triples matching a pattern. A nil argument matches
// anything.
func (g *Graph) Match(s *Term, p string, o *Term) []Triple {
	var candidates []int
	narrowed := false
	narrow := func(idx []int) {
		if !narrowed || len(idx) < len(candidates) {
			candidates = idx
			narrowed = true
		}
	}
	if s != nil {
		narrow(g.bySubj[s.key()])
	}
	if p != "" {
		narrow(g.byPred[p])
	}
	if o != nil {
		narrow(g.byObj[o.key()])
	}

	var out []Triple
	check := func(t Triple) {
		if s != nil && t.S != *s {
			return
		}
		if p != "" && t.P.Value != p {
			return
		}
		if o != nil && t.O != *o {
			return
		}
		out = append(out, t)
	}
	if !narrowed {
		for _, t := range g.triples {
			check(t)
		}
		return out
	}
	for _, i := range candidates {
		check(g.triples[i])
	}
	return out
}

// Objects returns the objects of (subject, predicate).
func (g *Graph) Objects(subject Term, predicate string) []Term {
	ts := g.Match(&subject, predicate, nil)
	out := make([]Term, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.O)
	}
	return out
}

// Subjects returns the subjects of (predicate, object).
func (g *Graph) Subjects(predicate string, object Term) []Term {
	ts := g.Match(nil, predicate, &object)
	out := make([]Term, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.S)
	}
	return out
}

// Outgoing returns every triple with the given subject.
func (g *Graph) Outgoing(subject Term) []Triple {
	return g.Match(&subject, "", nil)
}

// Has reports whether the exact triple is present.
func (g *Graph) Has(s Term, p string, o Term) bool {
	_, ok := g.seen[Triple{S: s, P: IRI(p), O: o}]
	return ok
}

// InstancesOf returns the IRIs typed with class, sorted.
func (g *Graph) InstancesOf(class string) []string {
	var out []string
	for _, s := range g.Subjects(RDFType, IRI(class)) {
		if s.IsIRI() {
			out = append(out, s.Value)
		}
	}
	sort.Strings(out)
	return out
}

// Types returns the rdf:type IRIs of a subject.
func (g *Graph) Types(subject string) []string {
	var out []string
	for _, o := range g.Objects(IRI(subject), RDFType) {
		if o.IsIRI() {
			out = append(out, o.Value)
		}
	}
	return out
}

// Merge adds every triple of other to g.
func (g *Graph) Merge(other *Graph) {
	for _, t := range other.triples {
		g.Add(t)
	}
}
