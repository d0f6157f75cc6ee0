// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides the PostgreSQL-backed catalog archive: the last
// good vocabulary records of every source and a log of collect runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"vocabserve/internal/catalog"
	"vocabserve/internal/models"
)

// ArchiveStore implements catalog.Archive.
type ArchiveStore struct {
	db *sql.DB
}

// NewArchiveStore creates a new ArchiveStore.
func NewArchiveStore(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

var _ catalog.Archive = (*ArchiveStore)(nil)

// SaveVocabularies replaces the archived records of a source. Credentials
// are not part of the stored JSON.
func (s *ArchiveStore) SaveVocabularies(ctx context.Context, sourceName string, vocabs []*models.Vocabulary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM vocabulary_snapshots WHERE source_name = $1`, sourceName); err != nil {
		return fmt.Errorf("clear snapshots of %s: %w", sourceName, err)
	}

	for _, v := range vocabs {
		record, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode vocabulary %s: %w", v.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO vocabulary_snapshots (source_name, vocab_id, source_kind, record, saved_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (source_name, vocab_id)
			DO UPDATE SET source_kind = EXCLUDED.source_kind, record = EXCLUDED.record, saved_at = now()
		`, sourceName, v.ID, string(v.Source), record)
		if err != nil {
			return fmt.Errorf("save vocabulary %s: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	slog.Debug("vocabularies archived", "source", sourceName, "count", len(vocabs))
	return nil
}

// LoadVocabularies returns the archived records of a source ordered by id.
func (s *ArchiveStore) LoadVocabularies(ctx context.Context, sourceName string) ([]*models.Vocabulary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vocab_id, record
		FROM vocabulary_snapshots
		WHERE source_name = $1
		ORDER BY vocab_id
	`, sourceName)
	if err != nil {
		return nil, fmt.Errorf("query snapshots of %s: %w", sourceName, err)
	}
	defer rows.Close()

	var out []*models.Vocabulary
	for rows.Next() {
		var (
			id     string
			record []byte
		)
		if err := rows.Scan(&id, &record); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var v models.Vocabulary
		if err := json.Unmarshal(record, &v); err != nil {
			slog.Warn("skipping unreadable snapshot", "source", sourceName, "vocab_id", id, "error", err)
			continue
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// LogRun records the outcome of collecting one source.
func (s *ArchiveStore) LogRun(ctx context.Context, run catalog.CollectRun) error {
	var errText sql.NullString
	if run.Err != "" {
		errText = sql.NullString{String: run.Err, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collect_runs (id, source_name, source_kind, started_at, finished_at, vocabularies, error, from_archive)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, run.ID, run.Source, string(run.Kind), run.StartedAt, run.FinishedAt, run.Vocabularies, errText, run.FromArchive)
	if err != nil {
		return fmt.Errorf("log collect run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent collect runs, newest first.
func (s *ArchiveStore) RecentRuns(ctx context.Context, limit int) ([]catalog.CollectRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_name, source_kind, started_at, finished_at, vocabularies, error, from_archive
		FROM collect_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query collect runs: %w", err)
	}
	defer rows.Close()

	var runs []catalog.CollectRun
	for rows.Next() {
		var (
			r       catalog.CollectRun
			kind    string
			errText sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Source, &kind, &r.StartedAt, &r.FinishedAt, &r.Vocabularies, &errText, &r.FromArchive); err != nil {
			return nil, fmt.Errorf("scan collect run: %w", err)
		}
		r.Kind, r.Err = models.SourceKind(kind), errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
