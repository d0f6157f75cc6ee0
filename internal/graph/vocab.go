// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package graph

// Namespace IRIs and the terms used across the service.
const (
	NSRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSRDFS = "http://www.w3.org/2000/01/rdf-schema#"
	NSSKOS = "http://www.w3.org/2004/02/skos/core#"
	NSDCT  = "http://purl.org/dc/terms/"
	NSOWL  = "http://www.w3.org/2002/07/owl#"
	NSDCAT = "http://www.w3.org/ns/dcat#"
	NSXSD  = "http://www.w3.org/2001/XMLSchema#"
	NSLDV  = "http://purl.org/linked-data/version#"

	RDFType = NSRDF + "type"

	RDFSLabel   = NSRDFS + "label"
	RDFSComment = NSRDFS + "comment"

	SKOSConceptScheme = NSSKOS + "ConceptScheme"
	SKOSConcept       = NSSKOS + "Concept"
	SKOSCollection    = NSSKOS + "Collection"
	SKOSPrefLabel     = NSSKOS + "prefLabel"
	SKOSAltLabel      = NSSKOS + "altLabel"
	SKOSHiddenLabel   = NSSKOS + "hiddenLabel"
	SKOSDefinition    = NSSKOS + "definition"
	SKOSBroader       = NSSKOS + "broader"
	SKOSNarrower      = NSSKOS + "narrower"
	SKOSInScheme      = NSSKOS + "inScheme"
	SKOSHasTopConcept = NSSKOS + "hasTopConcept"
	SKOSTopConceptOf  = NSSKOS + "topConceptOf"
	SKOSMember        = NSSKOS + "member"

	DCTTitle       = NSDCT + "title"
	DCTDescription = NSDCT + "description"
	DCTCreator     = NSDCT + "creator"
	DCTCreated     = NSDCT + "created"
	DCTModified    = NSDCT + "modified"
	DCTSource      = NSDCT + "source"

	OWLVersionInfo = NSOWL + "versionInfo"
	OWLSameAs      = NSOWL + "sameAs"

	LDVCurrentVersion = NSLDV + "currentVersion"

	DCATDataset         = NSDCAT + "Dataset"
	DCATDistribution    = NSDCAT + "Distribution"
	DCATHasDistribution = NSDCAT + "distribution"
	DCATAccessURL       = NSDCAT + "accessURL"
	DCATDownloadURL     = NSDCAT + "downloadURL"
)

// Prefixes maps namespace IRIs to the prefixes used when serializing.
var Prefixes = map[string]string{
	NSRDF:  "rdf",
	NSRDFS: "rdfs",
	NSSKOS: "skos",
	NSDCT:  "dct",
	NSOWL:  "owl",
	NSDCAT: "dcat",
	NSXSD:  "xsd",
}
