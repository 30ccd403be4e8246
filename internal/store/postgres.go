package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

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

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ListReferenceMaterials(ctx context.Context, filter ReferenceFilter) ([]*ReferenceMaterial, error) {
	query := `SELECT formula, density, bulk_modulus, shear_modulus, is_stable
		FROM reference_materials
		WHERE density IS NOT NULL AND bulk_modulus IS NOT NULL`
	args := []interface{}{}
	n := 0

	if filter.MaxDensity > 0 {
		n++
		query += fmt.Sprintf(" AND density < $%d", n)
		args = append(args, filter.MaxDensity)
	}
	if filter.MaxBulkModulus > 0 {
		n++
		query += fmt.Sprintf(" AND bulk_modulus < $%d", n)
		args = append(args, filter.MaxBulkModulus)
	}
	if filter.StableOnly {
		query += " AND is_stable"
	}
	query += " ORDER BY density ASC, seq ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ReferenceMaterial
	for rows.Next() {
		m := &ReferenceMaterial{}
		if err := rows.Scan(&m.Formula, &m.Density, &m.BulkModulus, &m.ShearModulus, &m.IsStable); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertReferenceMaterials bulk-loads reference rows with COPY.
func (s *PostgresStore) InsertReferenceMaterials(ctx context.Context, materials []*ReferenceMaterial) (int64, error) {
	rows := make([][]interface{}, len(materials))
	for i, m := range materials {
		rows[i] = []interface{}{m.Formula, m.Density, m.BulkModulus, m.ShearModulus, m.IsStable}
	}
	return s.pool.CopyFrom(ctx,
		pgx.Identifier{"reference_materials"},
		[]string{"formula", "density", "bulk_modulus", "shear_modulus", "is_stable"},
		pgx.CopyFromRows(rows),
	)
}

const runColumns = `run_id, status, m_elements, a_elements, x_elements,
	stability_threshold, top_k, predictor,
	candidate_count, scored_count, stable_count, rejected_count, frontier_size,
	COALESCE(top_formula, ''), COALESCE(error, ''), created_at, completed_at`

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO screening_runs (status, m_elements, a_elements, x_elements,
			stability_threshold, top_k, predictor)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING run_id, created_at`,
		run.Status, nonNil(run.M), nonNil(run.A), nonNil(run.X),
		run.StabilityThreshold, run.TopK, run.PredictorName,
	).Scan(&run.ID, &run.CreatedAt)
}

// nonNil keeps a nil role list from being sent as NULL into a NOT NULL array column.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *Run) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE screening_runs SET
			status = $2,
			candidate_count = $3, scored_count = $4, stable_count = $5,
			rejected_count = $6, frontier_size = $7,
			top_formula = NULLIF($8, ''), error = NULLIF($9, ''), completed_at = $10
		WHERE run_id = $1`,
		run.ID, run.Status,
		run.CandidateCount, run.ScoredCount, run.StableCount,
		run.RejectedCount, run.FrontierSize,
		run.TopFormula, run.Error, run.CompletedAt,
	)
	return err
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM screening_runs WHERE run_id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `SELECT `+runColumns+`
		FROM screening_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(row pgx.Row) (*Run, error) {
	r := &Run{}
	err := row.Scan(
		&r.ID, &r.Status, &r.M, &r.A, &r.X,
		&r.StabilityThreshold, &r.TopK, &r.PredictorName,
		&r.CandidateCount, &r.ScoredCount, &r.StableCount, &r.RejectedCount, &r.FrontierSize,
		&r.TopFormula, &r.Error, &r.CreatedAt, &r.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) SaveCandidates(ctx context.Context, runID uuid.UUID, records []*CandidateRecord) error {
	rows := make([][]interface{}, len(records))
	for i, c := range records {
		var rejection *string
		if c.Rejection != "" {
			rejection = &c.Rejection
		}
		rows[i] = []interface{}{
			runID, c.Index, c.Formula, c.PredBulkModulus, c.PredDensity,
			c.Stability, c.SpecificStiffness, c.Optimality, c.Stable, c.Rank, rejection,
		}
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"screening_candidates"},
		[]string{"run_id", "idx", "formula", "pred_bulk_modulus", "pred_density",
			"stability", "specific_stiffness", "optimality", "stable", "rank", "rejection"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("save candidates: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRunCandidates(ctx context.Context, runID uuid.UUID) ([]*CandidateRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT idx, formula, pred_bulk_modulus, pred_density,
			stability, specific_stiffness, optimality, stable, rank, COALESCE(rejection, '')
		FROM screening_candidates WHERE run_id = $1 ORDER BY idx ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CandidateRecord
	for rows.Next() {
		c := &CandidateRecord{}
		if err := rows.Scan(
			&c.Index, &c.Formula, &c.PredBulkModulus, &c.PredDensity,
			&c.Stability, &c.SpecificStiffness, &c.Optimality, &c.Stable, &c.Rank, &c.Rejection,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
