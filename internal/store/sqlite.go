package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MikeSquared-Agency/Tally/internal/scoring"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLiteStore is the single-file store used for local runs and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// the schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps pragmas in force and serialises writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) ListRespondents(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT respondent_id FROM assessment_submissions
		ORDER BY respondent_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) GetSubmission(ctx context.Context, respondentID string) (*scoring.Submission, error) {
	sub := &scoring.Submission{RespondentID: respondentID}
	var responsesJSON, demographicsJSON sql.NullString
	var completedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT attempt, responses, demographics, completed_at
		FROM assessment_submissions WHERE respondent_id = ?
		ORDER BY attempt DESC LIMIT 1`, respondentID,
	).Scan(&sub.Attempt, &responsesJSON, &demographicsJSON, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if sub.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, fmt.Errorf("%w: completed_at of %s: %v", ErrMalformedRecord, respondentID, err)
	}
	if sub.Responses, err = decodeResponses(respondentID, nullBytes(responsesJSON)); err != nil {
		return nil, err
	}
	if sub.Demographics, err = decodeDemographics(respondentID, nullBytes(demographicsJSON)); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SQLiteStore) SaveSubmission(ctx context.Context, sub *scoring.Submission) error {
	responsesJSON, err := encodeOptional(sub.Responses)
	if err != nil {
		return fmt.Errorf("encode responses: %w", err)
	}
	demographicsJSON, err := encodeOptional(sub.Demographics)
	if err != nil {
		return fmt.Errorf("encode demographics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessment_submissions (respondent_id, attempt, responses, demographics, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (respondent_id, attempt) DO UPDATE SET
			responses = excluded.responses,
			demographics = excluded.demographics,
			completed_at = excluded.completed_at`,
		sub.RespondentID, sub.Attempt, nullString(responsesJSON), nullString(demographicsJSON), formatTime(sub.CompletedAt),
	)
	return err
}

func (s *SQLiteStore) GetResult(ctx context.Context, respondentID string) (*scoring.AssessmentResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM assessment_results WHERE respondent_id = ?
		ORDER BY attempt DESC LIMIT 1`, respondentID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeResult(respondentID, []byte(payload))
}

func (s *SQLiteStore) ReplaceResult(ctx context.Context, result *scoring.AssessmentResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM assessment_results WHERE respondent_id = ? AND attempt = ?`,
		result.RespondentID, result.Attempt,
	); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO assessment_results (respondent_id, attempt, result_id, overall, complete,
			catalog_version, payload, scored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RespondentID, result.Attempt, result.ID.String(), result.Overall, result.Complete,
		result.CatalogVersion, string(payload), formatTime(result.ScoredAt),
	); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCoupleLink(ctx context.Context, pairingID string) (*scoring.CoupleLink, error) {
	l := &scoring.CoupleLink{}
	err := s.db.QueryRowContext(ctx, `
		SELECT pairing_id, respondent_a, respondent_b, complete_a, complete_b
		FROM couple_links WHERE pairing_id = ?`, pairingID,
	).Scan(&l.PairingID, &l.RespondentA, &l.RespondentB, &l.CompleteA, &l.CompleteB)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *SQLiteStore) SaveCoupleLink(ctx context.Context, link *scoring.CoupleLink) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO couple_links (pairing_id, respondent_a, respondent_b, complete_a, complete_b)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (pairing_id) DO UPDATE SET
			respondent_a = excluded.respondent_a,
			respondent_b = excluded.respondent_b,
			complete_a = excluded.complete_a,
			complete_b = excluded.complete_b`,
		link.PairingID, link.RespondentA, link.RespondentB, link.CompleteA, link.CompleteB,
	)
	return err
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

func nullString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}
