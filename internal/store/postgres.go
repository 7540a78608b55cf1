package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Tally/internal/scoring"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the assessment tables when they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ListRespondents(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
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

func (s *PostgresStore) GetSubmission(ctx context.Context, respondentID string) (*scoring.Submission, error) {
	sub := &scoring.Submission{RespondentID: respondentID}
	var responsesJSON, demographicsJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT attempt, responses, demographics, completed_at
		FROM assessment_submissions WHERE respondent_id = $1
		ORDER BY attempt DESC LIMIT 1`, respondentID,
	).Scan(&sub.Attempt, &responsesJSON, &demographicsJSON, &sub.CompletedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if sub.Responses, err = decodeResponses(respondentID, responsesJSON); err != nil {
		return nil, err
	}
	if sub.Demographics, err = decodeDemographics(respondentID, demographicsJSON); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *PostgresStore) SaveSubmission(ctx context.Context, sub *scoring.Submission) error {
	responsesJSON, err := encodeOptional(sub.Responses)
	if err != nil {
		return fmt.Errorf("encode responses: %w", err)
	}
	demographicsJSON, err := encodeOptional(sub.Demographics)
	if err != nil {
		return fmt.Errorf("encode demographics: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO assessment_submissions (respondent_id, attempt, responses, demographics, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (respondent_id, attempt) DO UPDATE SET
			responses = EXCLUDED.responses,
			demographics = EXCLUDED.demographics,
			completed_at = EXCLUDED.completed_at`,
		sub.RespondentID, sub.Attempt, responsesJSON, demographicsJSON, sub.CompletedAt,
	)
	return err
}

func (s *PostgresStore) GetResult(ctx context.Context, respondentID string) (*scoring.AssessmentResult, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM assessment_results WHERE respondent_id = $1
		ORDER BY attempt DESC LIMIT 1`, respondentID,
	).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeResult(respondentID, payload)
}

func (s *PostgresStore) ReplaceResult(ctx context.Context, result *scoring.AssessmentResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the source submission so a concurrent resubmission waits for us.
	var locked int
	err = tx.QueryRow(ctx, `
		SELECT 1 FROM assessment_submissions
		WHERE respondent_id = $1 AND attempt = $2 FOR UPDATE`,
		result.RespondentID, result.Attempt,
	).Scan(&locked)
	if err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("lock submission: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM assessment_results WHERE respondent_id = $1 AND attempt = $2`,
		result.RespondentID, result.Attempt,
	); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO assessment_results (respondent_id, attempt, result_id, overall, complete,
			catalog_version, payload, scored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.RespondentID, result.Attempt, result.ID, result.Overall, result.Complete,
		result.CatalogVersion, payload, result.ScoredAt,
	); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCoupleLink(ctx context.Context, pairingID string) (*scoring.CoupleLink, error) {
	l := &scoring.CoupleLink{}
	err := s.pool.QueryRow(ctx, `
		SELECT pairing_id, respondent_a, respondent_b, complete_a, complete_b
		FROM couple_links WHERE pairing_id = $1`, pairingID,
	).Scan(&l.PairingID, &l.RespondentA, &l.RespondentB, &l.CompleteA, &l.CompleteB)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *PostgresStore) SaveCoupleLink(ctx context.Context, link *scoring.CoupleLink) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO couple_links (pairing_id, respondent_a, respondent_b, complete_a, complete_b)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pairing_id) DO UPDATE SET
			respondent_a = EXCLUDED.respondent_a,
			respondent_b = EXCLUDED.respondent_b,
			complete_a = EXCLUDED.complete_a,
			complete_b = EXCLUDED.complete_b`,
		link.PairingID, link.RespondentA, link.RespondentB, link.CompleteA, link.CompleteB,
	)
	return err
}
