// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"vocabserve/internal/graph"
	"vocabserve/internal/hierarchy"
	"vocabserve/internal/models"
	"vocabserve/internal/sparql"
)

// FileAdapter serves vocabularies parsed from RDF files. Every file is one
// vocabulary whose id is the file name without extension. Graphs are kept
// in memory after the first load.
type FileAdapter struct {
	settings Settings
	opts     Options

	mu     sync.RWMutex
	paths  map[string]string // vocab id -> file
	graphs map[string]*graph.Graph
}

// NewFile creates a file adapter.
func NewFile(s Settings, opts Options) *FileAdapter {
	return &FileAdapter{
		settings: s,
		opts:     opts.withDefaults(),
		paths:    make(map[string]string),
		graphs:   make(map[string]*graph.Graph),
	}
}

func (a *FileAdapter) Kind() models.SourceKind { return models.SourceFile }
func (a *FileAdapter) Name() string            { return a.settings.Name }

func (a *FileAdapter) lang(lang string) string {
	return cleanLang(lang, a.opts.Language)
}

// scan finds the RDF files of the source: everything parseable under Dir
// plus files named by configured vocabularies.
func (a *FileAdapter) scan() (map[string]string, error) {
	found := make(map[string]string)
	if a.settings.Dir != "" {
		err := filepath.WalkDir(a.settings.Dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ferr := graph.FormatForPath(path); ferr != nil {
				return nil
			}
			id := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
			found[id] = path
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("scan %s: %w", a.settings.Dir, err)
		}
	}
	for _, v := range a.settings.Vocabs {
		p := v.DownloadURL
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) && a.settings.Dir != "" {
			p = filepath.Join(a.settings.Dir, p)
		}
		found[v.ID] = p
	}
	return found, nil
}

// Collect parses every file, writing snapshots next to them, and reads
// the concept scheme metadata. A file that fails to parse is skipped.
func (a *FileAdapter) Collect(ctx context.Context) ([]*models.Vocabulary, error) {
	files, err := a.scan()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	graphs := make(map[string]*graph.Graph, len(files))
	var out []*models.Vocabulary
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, err := graph.LoadFile(files[id])
		if err != nil {
			slog.Warn("skipping vocabulary file", "path", files[id], "error", err)
			continue
		}
		v, ok := a.record(id, g)
		if !ok {
			slog.Warn("vocabulary file has no concept scheme", "path", files[id])
			continue
		}
		graphs[id] = g
		out = append(out, v)
	}

	a.mu.Lock()
	a.paths = files
	a.graphs = graphs
	a.mu.Unlock()

	slog.Info("file source collected", "source", a.settings.Name, "vocabularies", len(out))
	return out, nil
}

// record reads the scheme of a file graph. With several schemes in one
// file the last one in IRI order is used.
func (a *FileAdapter) record(id string, g *graph.Graph) (*models.Vocabulary, bool) {
	schemes := g.InstancesOf(graph.SKOSConceptScheme)
	if len(schemes) == 0 {
		return nil, false
	}
	scheme := schemes[len(schemes)-1]
	v := schemeRecord(id, scheme, schemeRows(g, scheme), a.opts.Language)
	v.Source = models.SourceFile
	for _, c := range a.settings.Vocabs {
		if c.ID == id && c.Title != "" {
			v.Title = c.Title
		}
	}
	return v, true
}

// schemeRows flattens the scheme's metadata into discovery-shaped
// bindings, one row per value.
func schemeRows(g *graph.Graph, scheme string) []sparql.Row {
	s := graph.IRI(scheme)
	rows := []sparql.Row{{"conceptScheme": s.Binding()}}
	for name, pred := range schemeProperties {
		for _, o := range g.Objects(s, pred) {
			rows = append(rows, sparql.Row{"conceptScheme": s.Binding(), name: o.Binding()})
		}
	}
	return rows
}

var schemeProperties = map[string]string{
	"prefLabel":   graph.SKOSPrefLabel,
	"title":       graph.DCTTitle,
	"label":       graph.RDFSLabel,
	"creator":     graph.DCTCreator,
	"created":     graph.DCTCreated,
	"modified":    graph.DCTModified,
	"version":     graph.OWLVersionInfo,
	"definition":  graph.SKOSDefinition,
	"description": graph.DCTDescription,
}

// rowsValue returns the best literal bound to name across rows.
func rowsValue(rows []sparql.Row, name, lang string) string {
	var terms []sparql.Term
	for _, r := range rows {
		if r.Has(name) {
			terms = append(terms, r[name])
		}
	}
	v, _ := bestLiteral(terms, lang, true)
	return v
}

// graphFor returns the graph of a vocabulary, loading it on first use.
func (a *FileAdapter) graphFor(id string) (*graph.Graph, error) {
	a.mu.RLock()
	g, ok := a.graphs[id]
	path, known := a.paths[id]
	a.mu.RUnlock()
	if ok {
		return g, nil
	}
	if !known {
		return nil, fmt.Errorf("vocabulary file %s: %w", id, ErrNotFound)
	}
	g, err := graph.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("vocabulary file %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	a.mu.Lock()
	a.graphs[id] = g
	a.mu.Unlock()
	return g, nil
}

func (a *FileAdapter) ListVocabularies(ctx context.Context) (map[string]Summary, error) {
	files, err := a.scan()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Summary, len(files))
	for id, path := range files {
		g, err := graph.LoadFile(path)
		if err != nil {
			continue
		}
		schemes := g.InstancesOf(graph.SKOSConceptScheme)
		if len(schemes) == 0 {
			continue
		}
		scheme := schemes[len(schemes)-1]
		title := MakeTitle(scheme)
		rows := schemeRows(g, scheme)
		if t := rowsValue(rows, "title", a.opts.Language); t != "" {
			title = t
		} else if l := rowsValue(rows, "label", a.opts.Language); l != "" {
			title = l
		}
		out[id] = Summary{Title: title, URI: VocabURIFromSchemeURI(scheme), Source: models.SourceFile}
	}
	return out, nil
}

func (a *FileAdapter) GetVocabulary(ctx context.Context, id string) (*models.Vocabulary, error) {
	g, err := a.graphFor(id)
	if err != nil {
		return nil, err
	}
	v, ok := a.record(id, g)
	if !ok {
		return nil, fmt.Errorf("vocabulary %s: %w", id, ErrNotFound)
	}
	return v, nil
}

// literalRows turns each (subject, predicate) object into a row binding
// subjVar and valueVar.
func literalRows(g *graph.Graph, subjects []string, subjVar, valueVar, pred string) []sparql.Row {
	var rows []sparql.Row
	for _, s := range subjects {
		objs := g.Objects(graph.IRI(s), pred)
		if len(objs) == 0 {
			rows = append(rows, sparql.Row{subjVar: sparql.URI(s)})
			continue
		}
		for _, o := range objs {
			rows = append(rows, sparql.Row{subjVar: sparql.URI(s), valueVar: o.Binding()})
		}
	}
	return rows
}

// members returns the concepts of a scheme: those declared in it, its top
// concepts, and everything reachable from them through narrower/broader.
func members(g *graph.Graph, scheme string) []string {
	seen := map[string]bool{}
	var queue []string
	add := func(t graph.Term) {
		if t.IsIRI() && !seen[t.Value] && t.Value != scheme {
			seen[t.Value] = true
			queue = append(queue, t.Value)
		}
	}
	s := graph.IRI(scheme)
	for _, t := range g.Subjects(graph.SKOSInScheme, s) {
		add(t)
	}
	for _, t := range topConceptTerms(g, scheme) {
		add(t)
	}
	for i := 0; i < len(queue); i++ {
		c := graph.IRI(queue[i])
		for _, t := range g.Objects(c, graph.SKOSNarrower) {
			add(t)
		}
		for _, t := range g.Subjects(graph.SKOSBroader, c) {
			add(t)
		}
	}
	sort.Strings(queue)
	return queue
}

func topConceptTerms(g *graph.Graph, scheme string) []graph.Term {
	s := graph.IRI(scheme)
	out := g.Objects(s, graph.SKOSHasTopConcept)
	return append(out, g.Subjects(graph.SKOSTopConceptOf, s)...)
}

func (a *FileAdapter) ListConcepts(ctx context.Context, v *models.Vocabulary, lang string) ([]models.ConceptSummary, error) {
	lang = a.lang(lang)
	g, err := a.graphFor(v.ID)
	if err != nil {
		return nil, listing(err)
	}
	var rows []sparql.Row
	for _, uri := range members(g, v.ConceptSchemeURI) {
		c := graph.IRI(uri)
		labels := g.Objects(c, graph.SKOSPrefLabel)
		if len(labels) == 0 {
			continue
		}
		base := sparql.Row{varConcept: c.Binding()}
		if o := g.Objects(c, graph.DCTCreated); len(o) > 0 {
			base[varCreated] = o[0].Binding()
		}
		if o := g.Objects(c, graph.DCTModified); len(o) > 0 {
			base[varModified] = o[0].Binding()
		}
		for _, l := range labels {
			row := cloneRow(base)
			row[varPrefLabel] = l.Binding()
			rows = append(rows, row)
		}
		for _, d := range g.Objects(c, graph.SKOSDefinition) {
			row := cloneRow(base)
			row[varDefinition] = d.Binding()
			rows = append(rows, row)
		}
	}
	return conceptSummariesFromRows(rows, lang), nil
}

func cloneRow(r sparql.Row) sparql.Row {
	out := make(sparql.Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ListCollections lists every collection in the file.
func (a *FileAdapter) ListCollections(ctx context.Context, v *models.Vocabulary, lang string) ([]models.Labelled, error) {
	lang = a.lang(lang)
	g, err := a.graphFor(v.ID)
	if err != nil {
		return nil, listing(err)
	}
	cols := g.InstancesOf(graph.SKOSCollection)
	rows := literalRows(g, cols, varCollection, varLabel, graph.SKOSPrefLabel)
	rows = append(rows, literalRows(g, cols, varCollection, varLabel, graph.RDFSLabel)...)
	return labelledFromRows(rows, varCollection, varLabel, lang), nil
}

// GetConcept builds predicate/object rows from the graph, labelling
// predicates and URI objects the way the remote query does.
func (a *FileAdapter) GetConcept(ctx context.Context, v *models.Vocabulary, uri, lang string) (*models.Concept, error) {
	lang = a.lang(lang)
	g, err := a.graphFor(v.ID)
	if err != nil {
		return nil, err
	}
	var rows []sparql.Row
	for _, t := range g.Outgoing(graph.IRI(uri)) {
		row := sparql.Row{varPredicate: t.P.Binding(), varObject: t.O.Binding()}
		if l, ok := labelOf(g, t.P.Value, lang, graph.RDFSLabel); ok {
			row[varPredicateLabel] = sparql.Literal(l)
		}
		if t.O.IsIRI() && t.P.Value != graph.SKOSPrefLabel {
			if l, ok := labelOf(g, t.O.Value, lang, graph.SKOSPrefLabel, graph.RDFSLabel); ok {
				row[varObjectLabel] = sparql.Literal(l)
			}
		}
		rows = append(rows, row)
	}
	return conceptFromRows(v.ID, uri, lang, rows)
}

// labelOf returns the label of uri in the active language or untagged,
// trying the predicates in order.
func labelOf(g *graph.Graph, uri, lang string, preds ...string) (string, bool) {
	var terms []sparql.Term
	for _, p := range preds {
		for _, o := range g.Objects(graph.IRI(uri), p) {
			terms = append(terms, o.Binding())
		}
	}
	return bestLiteral(terms, lang, false)
}

func (a *FileAdapter) GetCollection(ctx context.Context, v *models.Vocabulary, uri, lang string) (*models.Collection, error) {
	lang = a.lang(lang)
	g, err := a.graphFor(v.ID)
	if err != nil {
		return nil, err
	}
	subj := []string{uri}
	meta := literalRows(g, subj, "c", varLabel, graph.RDFSLabel)
	meta = append(meta, literalRows(g, subj, "c", varLabel, graph.SKOSPrefLabel)...)
	meta = append(meta, literalRows(g, subj, "c", varComment, graph.RDFSComment)...)
	meta = append(meta, literalRows(g, subj, "c", varComment, graph.SKOSDefinition)...)

	var memberURIs []string
	for _, m := range g.Objects(graph.IRI(uri), graph.SKOSMember) {
		if m.IsIRI() {
			memberURIs = append(memberURIs, m.Value)
		}
	}
	members := literalRows(g, memberURIs, varMember, varPrefLabel, graph.SKOSPrefLabel)
	return collectionFromRows(v.ID, uri, lang, meta, members)
}

// TopConcepts returns the declared top concepts or, when none are
// declared, the scheme's concepts that have no broader concept.
func (a *FileAdapter) TopConcepts(ctx context.Context, v *models.Vocabulary, lang string) ([]models.Labelled, error) {
	lang = a.lang(lang)
	g, err := a.graphFor(v.ID)
	if err != nil {
		return nil, listing(err)
	}
	var uris []string
	for _, t := range topConceptTerms(g, v.ConceptSchemeURI) {
		if t.IsIRI() {
			uris = append(uris, t.Value)
		}
	}
	if tops := topConceptsFromRows(literalRows(g, uris, varTopConcept, varPrefLabel, graph.SKOSPrefLabel), lang); len(tops) > 0 {
		return tops, nil
	}

	var roots []string
	for _, c := range members(g, v.ConceptSchemeURI) {
		t := graph.IRI(c)
		if len(g.Objects(t, graph.SKOSBroader)) > 0 || len(g.Subjects(graph.SKOSNarrower, t)) > 0 {
			continue
		}
		roots = append(roots, c)
	}
	return topConceptsFromRows(literalRows(g, roots, varTopConcept, varPrefLabel, graph.SKOSPrefLabel), lang), nil
}

// Hierarchy derives (concept, label, broader) rows from skos:broader and
// inverted skos:narrower links among the scheme's concepts.
func (a *FileAdapter) Hierarchy(ctx context.Context, v *models.Vocabulary, lang string) (hierarchy.Result, error) {
	lang = a.lang(lang)
	g, err := a.graphFor(v.ID)
	if err != nil {
		return hierarchy.Result{}, listing(err)
	}

	var rows []sparql.Row
	for _, c := range members(g, v.ConceptSchemeURI) {
		ct := graph.IRI(c)
		labels := g.Objects(ct, graph.SKOSPrefLabel)
		var broaders []graph.Term
		broaders = append(broaders, g.Objects(ct, graph.SKOSBroader)...)
		broaders = append(broaders, g.Subjects(graph.SKOSNarrower, ct)...)

		base := []sparql.Row{{varConcept: ct.Binding()}}
		if len(broaders) > 0 {
			base = base[:0]
			for _, b := range broaders {
				base = append(base, sparql.Row{varConcept: ct.Binding(), varBroader: b.Binding()})
			}
		}
		for _, r := range base {
			if len(labels) == 0 {
				rows = append(rows, r)
			}
			for _, l := range labels {
				row := cloneRow(r)
				row[varConceptLabel] = l.Binding()
				rows = append(rows, row)
			}
		}
	}
	return hierarchy.Build(hierarchyRowsFromRows(rows, lang)), nil
}

func (a *FileAdapter) ObjectClass(ctx context.Context, v *models.Vocabulary, uri string) (string, error) {
	g, err := a.graphFor(v.ID)
	if err != nil {
		return "", err
	}
	return pickObjectClass(g.Types(uri)), nil
}

func (a *FileAdapter) Graph(ctx context.Context, v *models.Vocabulary) (*graph.Graph, error) {
	return a.graphFor(v.ID)
}
