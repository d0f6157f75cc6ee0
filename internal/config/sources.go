// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"vocabserve/internal/models"
	"vocabserve/internal/source"
	"vocabserve/internal/sparql"
)

// SourcesFile is the YAML document naming where vocabularies come from.
//
//	endpoints:
//	  https://example.org/sparql: {username: u, password: p}
//	vocabs:
//	  rocks:
//	    source: SPARQL
//	    vocab_uri: http://example.org/def/rocks
//	    sparql_endpoint: https://example.org/sparql
//	sources:
//	  - name: gsq
//	    kind: SPARQL
//	    endpoint: https://example.org/sparql
//	    uri_filter_regex: ^http://example\.org/
type SourcesFile struct {
	Endpoints map[string]EndpointAuth `yaml:"endpoints"`
	Vocabs    map[string]VocabEntry   `yaml:"vocabs"`
	Sources   []SourceEntry           `yaml:"sources"`
}

// EndpointAuth holds credentials for one SPARQL endpoint URL.
type EndpointAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// VocabEntry is a vocabulary declared individually.
type VocabEntry struct {
	Source           models.SourceKind `yaml:"source"`
	Title            string            `yaml:"title"`
	URI              string            `yaml:"vocab_uri"`
	ConceptSchemeURI string            `yaml:"concept_scheme_uri"`
	SparqlEndpoint   string            `yaml:"sparql_endpoint"`
	AccessURL        string            `yaml:"access_url"`
	Download         string            `yaml:"download"`
}

// SourceEntry is a discovery source: a SPARQL endpoint listing its
// concept schemes, a directory of RDF files, or a registry API.
type SourceEntry struct {
	Name        string            `yaml:"name"`
	Kind        models.SourceKind `yaml:"kind"`
	Endpoint    string            `yaml:"endpoint"`
	URIFilter   string            `yaml:"uri_filter_regex"`
	NamedGraphs bool              `yaml:"named_graphs"`
	ChaseSameAs bool              `yaml:"chase_same_as"`
	Dir         string            `yaml:"dir"`
	RegistryURL string            `yaml:"registry_url"`
	IDs         []string          `yaml:"ids"`
}

// LoadSources reads and validates a sources file.
func LoadSources(path string) (*SourcesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	sf, err := ParseSources(data)
	if err != nil {
		return nil, fmt.Errorf("sources file %s: %w", path, err)
	}
	return sf, nil
}

// ParseSources decodes a sources document. Unknown keys are rejected.
func ParseSources(data []byte) (*SourcesFile, error) {
	var sf SourcesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := sf.validate(); err != nil {
		return nil, err
	}
	return &sf, nil
}

func (sf *SourcesFile) validate() error {
	for id, v := range sf.Vocabs {
		switch v.Source {
		case models.SourceFile:
			if v.Download == "" {
				return fmt.Errorf("vocab %q: FILE vocabularies need download", id)
			}
		case models.SourceSPARQL:
			if v.SparqlEndpoint == "" {
				return fmt.Errorf("vocab %q: SPARQL vocabularies need sparql_endpoint", id)
			}
			if v.URI == "" && v.ConceptSchemeURI == "" {
				return fmt.Errorf("vocab %q: vocab_uri or concept_scheme_uri is required", id)
			}
		case models.SourceRegistry:
			return fmt.Errorf("vocab %q: registry vocabularies are listed under sources", id)
		default:
			return fmt.Errorf("vocab %q: unknown source %q", id, v.Source)
		}
	}
	names := map[string]bool{}
	for i, s := range sf.Sources {
		if s.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if names[s.Name] {
			return fmt.Errorf("source %q: duplicate name", s.Name)
		}
		names[s.Name] = true
		switch s.Kind {
		case models.SourceSPARQL:
			if s.Endpoint == "" {
				return fmt.Errorf("source %q: endpoint is required", s.Name)
			}
		case models.SourceRegistry:
			if s.RegistryURL == "" {
				return fmt.Errorf("source %q: registry_url is required", s.Name)
			}
		case models.SourceFile:
			if s.Dir == "" {
				return fmt.Errorf("source %q: dir is required", s.Name)
			}
		default:
			return fmt.Errorf("source %q: unknown kind %q", s.Name, s.Kind)
		}
	}
	return nil
}

// credentials returns the configured login for endpoint, if any. A
// trailing slash is not significant.
func (sf *SourcesFile) credentials(endpoint string) sparql.Credentials {
	if a, ok := sf.Endpoints[endpoint]; ok {
		return sparql.Credentials{Username: a.Username, Password: a.Password}
	}
	want := strings.TrimRight(endpoint, "/")
	for url, a := range sf.Endpoints {
		if strings.TrimRight(url, "/") == want {
			return sparql.Credentials{Username: a.Username, Password: a.Password}
		}
	}
	return sparql.Credentials{}
}

// Settings converts the sources file into adapter settings. The default
// file directory always yields a FILE source; individually declared
// vocabularies are attached to one FILE and one SPARQL source.
func (sf *SourcesFile) Settings(filesDir string) []source.Settings {
	files := source.Settings{Name: "files", Kind: models.SourceFile, Dir: filesDir}
	static := source.Settings{Name: "vocabs", Kind: models.SourceSPARQL}

	ids := make([]string, 0, len(sf.Vocabs))
	for id := range sf.Vocabs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		e := sf.Vocabs[id]
		v := models.Vocabulary{
			ID:               id,
			URI:              e.URI,
			Title:            e.Title,
			ConceptSchemeURI: e.ConceptSchemeURI,
			Source:           e.Source,
			SparqlEndpoint:   e.SparqlEndpoint,
			AccessURL:        e.AccessURL,
			DownloadURL:      e.Download,
		}
		if v.ConceptSchemeURI == "" {
			v.ConceptSchemeURI = v.URI
		}
		if v.URI == "" {
			v.URI = source.VocabURIFromSchemeURI(v.ConceptSchemeURI)
		}
		if e.SparqlEndpoint != "" {
			c := sf.credentials(e.SparqlEndpoint)
			v.SparqlUsername, v.SparqlPassword = c.Username, c.Password
		}
		switch e.Source {
		case models.SourceFile:
			files.Vocabs = append(files.Vocabs, v)
		case models.SourceSPARQL:
			static.Vocabs = append(static.Vocabs, v)
		}
	}

	out := []source.Settings{files}
	if len(static.Vocabs) > 0 {
		out = append(out, static)
	}
	for _, s := range sf.Sources {
		st := source.Settings{
			Name:        s.Name,
			Kind:        s.Kind,
			Endpoint:    s.Endpoint,
			URIFilter:   s.URIFilter,
			NamedGraphs: s.NamedGraphs,
			ChaseSameAs: s.ChaseSameAs,
			Dir:         s.Dir,
			RegistryURL: s.RegistryURL,
			RegistryIDs: s.IDs,
		}
		if s.Endpoint != "" {
			st.Credentials = sf.credentials(s.Endpoint)
		}
		out = append(out, st)
	}
	return out
}
