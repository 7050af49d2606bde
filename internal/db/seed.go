package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// SeedDemo creates a demo school with a default grade scale, results
// settings and assessment types when the database is empty. Dev use
// only; a populated database is left untouched.
func SeedDemo(ctx context.Context, database *sql.DB) error {
	var n int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM schools`).Scan(&n); err != nil {
		return fmt.Errorf("seed: count schools: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	schoolID := uuid.New()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schools (id, name) VALUES ($1, $2)`, schoolID, "Demo Secondary School"); err != nil {
		return fmt.Errorf("seed: school: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO school_results_settings (school_id, ranking_method, ranking_n, default_cat_weight, default_exam_weight)
VALUES ($1, 'ALL_TAKEN', 8, 40, 60)`, schoolID); err != nil {
		return fmt.Errorf("seed: settings: %w", err)
	}

	scaleID := uuid.New()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO grade_scales (id, school_id, name, is_default) VALUES ($1, $2, $3, TRUE)`,
		scaleID, schoolID, "Default"); err != nil {
		return fmt.Errorf("seed: grade scale: %w", err)
	}
	// sort_order runs ascending with min_score
	bands := []struct {
		min, max, points float64
		letter           string
	}{
		{0, 39, 2, "F"},
		{40, 49, 4, "E"},
		{50, 59, 6, "D"},
		{60, 69, 8, "C"},
		{70, 79, 10, "B"},
		{80, 100, 12, "A"},
	}
	for i, b := range bands {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO grade_bands (id, scale_id, min_score, max_score, letter_grade, points, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), scaleID, b.min, b.max, b.letter, b.points, i+1); err != nil {
			return fmt.Errorf("seed: grade band %s: %w", b.letter, err)
		}
	}

	types := []struct {
		name, category string
	}{
		{"CAT 1", "CAT_LIKE"},
		{"CAT 2", "CAT_LIKE"},
		{"End of Term Exam", "EXAM_LIKE"},
	}
	for _, t := range types {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO assessment_types (id, school_id, name, category, weight, max_score)
VALUES ($1, $2, $3, $4, 1, 100)`, uuid.New(), schoolID, t.name, t.category); err != nil {
			return fmt.Errorf("seed: assessment type %s: %w", t.name, err)
		}
	}

	return tx.Commit()
}
