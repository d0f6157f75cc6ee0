// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package source

import (
	"fmt"
	"regexp"
	"strings"
)

const prefixes = `PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX skos: <http://www.w3.org/2004/02/skos/core#>
PREFIX dct: <http://purl.org/dc/terms/>
PREFIX owl: <http://www.w3.org/2002/07/owl#>
PREFIX ldv: <http://purl.org/linked-data/version#>
`

// dialect captures the differences between the endpoints we talk to.
// NamedGraphs matches patterns both inside named graphs and in the default
// graph. ChaseSameAs also accepts concepts of schemes reachable from the
// target scheme through ldv:currentVersion or owl:sameAs links.
type dialect struct {
	NamedGraphs bool
	ChaseSameAs bool
}

// where wraps a group graph pattern.
func (d dialect) where(body string) string {
	if !d.NamedGraphs {
		return "WHERE {\n" + body + "\n}"
	}
	return "WHERE {\n  { GRAPH ?g {\n" + body + "\n  } }\n  UNION\n  {\n" + body + "\n  }\n}"
}

// inScheme matches ?v as a member of scheme. suffix keeps helper variables
// distinct when the pattern is used twice in one query.
func (d dialect) inScheme(v, scheme, suffix string) string {
	if !d.ChaseSameAs {
		return fmt.Sprintf("%s skos:inScheme <%s> .", v, scheme)
	}
	eq := "?eqScheme" + suffix
	return fmt.Sprintf("{ %s skos:inScheme <%s> . } UNION { <%s> (ldv:currentVersion|owl:sameAs)+ %s . %s skos:inScheme %s . }",
		v, scheme, scheme, eq, v, eq)
}

// schemeRef matches ?s as the scheme itself or, when chasing, one of its
// equivalents.
func (d dialect) schemeRef(v, scheme string) string {
	if !d.ChaseSameAs {
		return fmt.Sprintf("BIND(<%s> AS %s)", scheme, v)
	}
	return fmt.Sprintf("{ BIND(<%s> AS %s) } UNION { <%s> (ldv:currentVersion|owl:sameAs)+ %s . }", scheme, v, scheme, v)
}

func langFilter(v, lang string) string {
	return fmt.Sprintf(`FILTER(lang(%s) = "%s" || lang(%s) = "")`, v, lang, v)
}

// iriUnsafe matches characters that may not appear inside <...>.
var iriUnsafe = regexp.MustCompile("[\\x00-\\x20<>\"{}|^`\\\\]")

// checkIRI rejects strings that cannot be embedded as an IRI reference.
func checkIRI(s string) error {
	if s == "" || iriUnsafe.MatchString(s) || !strings.Contains(s, ":") {
		return fmt.Errorf("invalid IRI %q", s)
	}
	return nil
}

var langTag = regexp.MustCompile(`^[A-Za-z]{1,8}(-[A-Za-z0-9]{1,8})*$`)

// cleanLang returns lang if it is a well-formed tag, else fallback.
func cleanLang(lang, fallback string) string {
	if langTag.MatchString(lang) {
		return lang
	}
	return fallback
}

// Every query starts with a "# vocabserve:<name>" line so it can be told
// apart in endpoint logs.
func header(name string) string {
	return "# vocabserve:" + name + "\n" + prefixes
}

func (d dialect) discoveryQuery(lang string, withCollections bool) string {
	types := "VALUES ?type { skos:ConceptScheme }"
	if withCollections {
		types = "VALUES ?type { skos:ConceptScheme skos:Collection }"
	}
	body := fmt.Sprintf(`    %s
    ?conceptScheme a ?type .
    OPTIONAL { ?conceptScheme skos:prefLabel ?prefLabel . %s }
    OPTIONAL { ?conceptScheme dct:title ?title . %s }
    OPTIONAL { ?conceptScheme rdfs:label ?label . %s }
    OPTIONAL { ?conceptScheme dct:creator ?creator }
    OPTIONAL { ?conceptScheme dct:created ?created }
    OPTIONAL { ?conceptScheme dct:modified ?modified }
    OPTIONAL { ?conceptScheme owl:versionInfo ?version }
    OPTIONAL { ?conceptScheme skos:definition ?definition . %s }
    OPTIONAL { ?conceptScheme dct:description ?description . %s }
    FILTER NOT EXISTS { ?alternateConceptScheme owl:sameAs ?conceptScheme }`,
		types,
		langFilter("?prefLabel", lang), langFilter("?title", lang), langFilter("?label", lang),
		langFilter("?definition", lang), langFilter("?description", lang))
	return header("discovery") + "SELECT DISTINCT * " + d.where(body) + "\nORDER BY ?conceptScheme"
}

func (d dialect) schemeQuery(scheme, lang string) string {
	body := fmt.Sprintf(`    <%[1]s> a skos:ConceptScheme .
    OPTIONAL { <%[1]s> skos:prefLabel ?prefLabel . %[2]s }
    OPTIONAL { <%[1]s> dct:title ?title . %[3]s }
    OPTIONAL { <%[1]s> rdfs:label ?label . %[4]s }
    OPTIONAL { <%[1]s> dct:creator ?creator }
    OPTIONAL { <%[1]s> dct:created ?created }
    OPTIONAL { <%[1]s> dct:modified ?modified }
    OPTIONAL { <%[1]s> owl:versionInfo ?version }
    OPTIONAL { <%[1]s> skos:definition ?definition . %[5]s }
    OPTIONAL { <%[1]s> dct:description ?description . %[6]s }`,
		scheme,
		langFilter("?prefLabel", lang), langFilter("?title", lang), langFilter("?label", lang),
		langFilter("?definition", lang), langFilter("?description", lang))
	return header("scheme") + "SELECT DISTINCT * " + d.where(body)
}

func (d dialect) topConceptsQuery(scheme, lang string) string {
	body := fmt.Sprintf(`    %s
    { ?s skos:hasTopConcept ?top_concept . } UNION { ?top_concept skos:topConceptOf ?s . }
    OPTIONAL { ?top_concept skos:prefLabel ?prefLabel . %s }`,
		d.schemeRef("?s", scheme), langFilter("?prefLabel", lang))
	return header("topconcepts") + "SELECT DISTINCT ?top_concept ?prefLabel " + d.where(body) + "\nORDER BY ?prefLabel"
}

func (d dialect) parentlessQuery(scheme, lang string) string {
	body := fmt.Sprintf(`    %s
    FILTER NOT EXISTS { ?top_concept skos:broader ?b . }
    FILTER NOT EXISTS { ?n skos:narrower ?top_concept . }
    OPTIONAL { ?top_concept skos:prefLabel ?prefLabel . %s }`,
		d.inScheme("?top_concept", scheme, "1"), langFilter("?prefLabel", lang))
	return header("parentless") + "SELECT DISTINCT ?top_concept ?prefLabel " + d.where(body) + "\nORDER BY ?prefLabel"
}

func (d dialect) hierarchyQuery(scheme, lang string) string {
	body := fmt.Sprintf(`    {
      %s
    } UNION {
      %s
      ?s (skos:hasTopConcept|^skos:topConceptOf)/(skos:narrower|^skos:broader)* ?concept .
    }
    OPTIONAL { ?concept skos:prefLabel ?concept_preflabel . %s }
    OPTIONAL { { ?concept skos:broader ?broader_concept . } UNION { ?broader_concept skos:narrower ?concept . } }`,
		d.inScheme("?concept", scheme, "1"), d.schemeRef("?s", scheme), langFilter("?concept_preflabel", lang))
	return header("hierarchy") + "SELECT DISTINCT ?concept ?concept_preflabel ?broader_concept " + d.where(body) + "\nORDER BY ?concept_preflabel"
}

// depthHierarchyQuery asks the endpoint for each concept's distance from
// the scheme alongside its parent.
func (d dialect) depthHierarchyQuery(scheme, lang string) string {
	body := fmt.Sprintf(`    ?c a skos:Concept .
    <%[1]s> (skos:hasTopConcept|skos:narrower)* ?mid .
    ?mid (skos:hasTopConcept|skos:narrower)+ ?c .
    ?c skos:prefLabel ?pl . %[2]s
    ?c (skos:topConceptOf|skos:broader) ?parent .`, scheme, langFilter("?pl", lang))
	return header("depthhierarchy") + "SELECT DISTINCT (COUNT(?mid) AS ?length) ?c ?pl ?parent " + d.where(body) +
		"\nGROUP BY ?c ?pl ?parent\nORDER BY ?length ?parent ?pl"
}

func (d dialect) conceptsQuery(scheme, lang string) string {
	body := fmt.Sprintf(`    %s
    ?concept skos:prefLabel ?prefLabel . %s
    OPTIONAL { ?concept skos:definition ?d . %s }
    OPTIONAL { ?concept dct:created ?created . }
    OPTIONAL { ?concept dct:modified ?modified . }`,
		d.inScheme("?concept", scheme, "1"), langFilter("?prefLabel", lang), langFilter("?d", lang))
	return header("concepts") + "SELECT DISTINCT ?concept ?prefLabel ?d ?created ?modified " + d.where(body) + "\nORDER BY ?prefLabel"
}

func (d dialect) collectionsQuery(scheme, lang string) string {
	body := fmt.Sprintf(`    ?collection a skos:Collection .
    ?collection (rdfs:label|skos:prefLabel) ?label . %s
    FILTER EXISTS { { ?collection skos:member ?member . %s } UNION { %s } }`,
		langFilter("?label", lang), d.inScheme("?member", scheme, "1"), d.inScheme("?collection", scheme, "2"))
	return header("collections") + "SELECT DISTINCT ?collection ?label " + d.where(body) + "\nORDER BY ?label"
}

func (d dialect) conceptQuery(uri, lang string) string {
	body := fmt.Sprintf(`    <%[1]s> ?predicate ?object .
    OPTIONAL { ?predicate rdfs:label ?predicateLabel . %[2]s }
    OPTIONAL { ?object (skos:prefLabel|rdfs:label) ?objectLabel .
      FILTER(?predicate = skos:prefLabel || lang(?objectLabel) = "%[3]s" || lang(?objectLabel) = "") }`,
		uri, langFilter("?predicateLabel", lang), lang)
	return header("concept") + "SELECT DISTINCT ?predicate ?object ?predicateLabel ?objectLabel " + d.where(body)
}

func (d dialect) collectionQuery(uri, lang string) string {
	body := fmt.Sprintf(`    <%[1]s> (rdfs:label|skos:prefLabel) ?label .
    OPTIONAL { <%[1]s> (rdfs:comment|skos:definition) ?comment . }`, uri)
	return header("collection") + "SELECT DISTINCT ?label ?comment " + d.where(body)
}

func (d dialect) membersQuery(uri, lang string) string {
	body := fmt.Sprintf(`    <%s> skos:member ?m .
    OPTIONAL { ?m (skos:prefLabel|rdfs:label) ?prefLabel . %s }`, uri, langFilter("?prefLabel", lang))
	return header("members") + "SELECT DISTINCT ?m ?prefLabel " + d.where(body)
}

func (d dialect) classQuery(uri string) string {
	return header("class") + "SELECT DISTINCT ?class " + d.where(fmt.Sprintf("    <%s> a ?class .", uri))
}

// constructQuery returns the scheme, its members, and every statement
// that mentions a member.
func (d dialect) constructQuery(scheme string) string {
	body := fmt.Sprintf(`    {
      ?subject ?predicate ?object .
      FILTER(?subject = <%[1]s>)
    } UNION {
      %[2]s
      ?subject ?predicate ?object .
    } UNION {
      %[3]s
      ?subject ?predicate ?object .
    }`, scheme, d.inScheme("?subject", scheme, "1"), d.inScheme("?object", scheme, "2"))
	return header("construct") + "CONSTRUCT { ?subject ?predicate ?object } " + d.where(body)
}
