// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package sparql

import (
	"encoding/json"
	"fmt"
)

// Term types as they appear in SPARQL 1.1 JSON results.
const (
	TypeURI          = "uri"
	TypeLiteral      = "literal"
	TypeTypedLiteral = "typed-literal" // pre-1.1 endpoints
	TypeBNode        = "bnode"
)

// Term is a single bound value: an IRI, a blank node or a literal with an
// optional language tag or datatype.
type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// IsURI reports whether the term is an IRI.
func (t Term) IsURI() bool { return t.Type == TypeURI }

// IsLiteral reports whether the term is a (possibly typed) literal.
func (t Term) IsLiteral() bool { return t.Type == TypeLiteral || t.Type == TypeTypedLiteral }

// URI returns an IRI term.
func URI(v string) Term { return Term{Type: TypeURI, Value: v} }

// Literal returns a plain literal term.
func Literal(v string) Term { return Term{Type: TypeLiteral, Value: v} }

// LangLiteral returns a language-tagged literal term.
func LangLiteral(v, lang string) Term { return Term{Type: TypeLiteral, Value: v, Lang: lang} }

// Row is one solution: variable name to bound term. Unbound variables are
// absent from the map.
type Row map[string]Term

// Has reports whether the variable is bound.
func (r Row) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Value returns the lexical value of a variable, or "" when unbound.
func (r Row) Value(name string) string {
	return r[name].Value
}

// Require returns a MalformedResultError naming the first variable that is
// not bound in the row.
func (r Row) Require(names ...string) error {
	for _, n := range names {
		if !r.Has(n) {
			return &MalformedResultError{Variable: n, Reason: "variable not bound"}
		}
	}
	return nil
}

// resultsDocument mirrors the application/sparql-results+json envelope.
type resultsDocument struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results *struct {
		Bindings []Row `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean"`
}

// decodeResults parses a SPARQL JSON results body into rows, preserving the
// order the endpoint returned them in.
func decodeResults(body []byte) ([]Row, error) {
	var doc resultsDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &MalformedResultError{Reason: fmt.Sprintf("decode results: %v", err)}
	}
	if doc.Results == nil {
		if doc.Boolean != nil {
			return nil, &MalformedResultError{Reason: "ASK result where bindings were expected"}
		}
		return nil, &MalformedResultError{Reason: "missing results object"}
	}
	if doc.Results.Bindings == nil {
		return []Row{}, nil
	}
	return doc.Results.Bindings, nil
}
