// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package graph

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotVersion is bumped whenever Term or Triple change shape. Older
// snapshots are treated as missing.
const snapshotVersion = 1

// SnapshotExt is the file extension of graph snapshots.
const SnapshotExt = ".graph"

type snapshot struct {
	Version int      `msgpack:"version"`
	Triples []Triple `msgpack:"triples"`
}

// Encode writes g in the snapshot encoding.
func (g *Graph) Encode(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(snapshot{Version: snapshotVersion, Triples: g.triples})
}

// Decode reads a graph written by Encode.
func Decode(r io.Reader) (*Graph, error) {
	var s snapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("decode snapshot: version %d, want %d", s.Version, snapshotVersion)
	}
	g := New()
	for _, t := range s.Triples {
		g.Add(t)
	}
	return g, nil
}

// WriteSnapshot stores g at path, replacing any previous file atomically.
func WriteSnapshot(path string, g *Graph) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := g.Encode(bw); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// ReadSnapshot loads a snapshot file.
func ReadSnapshot(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

// ReadFreshSnapshot loads a snapshot only if it is younger than maxAge.
// A zero maxAge disables the age check.
func ReadFreshSnapshot(path string, maxAge time.Duration) (*Graph, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if maxAge > 0 && time.Since(info.ModTime()) > maxAge {
		return nil, false
	}
	g, err := ReadSnapshot(path)
	if err != nil {
		slog.Warn("ignoring unreadable graph snapshot", "path", path, "error", err)
		return nil, false
	}
	return g, true
}

// SnapshotPath returns the snapshot file that sits next to an RDF file.
func SnapshotPath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + SnapshotExt
}

// LoadFile parses an RDF file, going through its snapshot when the
// snapshot is at least as new as the file. A fresh snapshot is written
// after every parse; failing to write it is only logged.
func LoadFile(path string) (*Graph, error) {
	src, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat vocabulary file: %w", err)
	}
	snap := SnapshotPath(path)
	if info, err := os.Stat(snap); err == nil && !info.ModTime().Before(src.ModTime()) {
		g, err := ReadSnapshot(snap)
		if err == nil {
			return g, nil
		}
		slog.Warn("re-parsing vocabulary file, snapshot unreadable", "path", snap, "error", err)
	}

	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary file: %w", err)
	}
	defer f.Close()

	g, err := Parse(bufio.NewReader(f), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := WriteSnapshot(snap, g); err != nil {
		slog.Warn("failed to write graph snapshot", "path", snap, "error", err)
	}
	return g, nil
}
