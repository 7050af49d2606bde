package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/edupoint/reportcard/internal/ctxutil"
	"github.com/edupoint/reportcard/internal/models"
	"github.com/edupoint/reportcard/internal/report"
	"github.com/google/uuid"
)

// DefaultGradeScale loads the school's default scale with its bands.
// A school without one cannot grade anything, which the resolver
// reports as a configuration error rather than a missing row.
func (s *Store) DefaultGradeScale(ctx context.Context, schoolID uuid.UUID) (*models.GradeScale, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var scale models.GradeScale
	err := s.DB.QueryRowContext(ctx, `
SELECT id, school_id, name FROM grade_scales WHERE school_id = $1 AND is_default`, schoolID).Scan(
		&scale.ID, &scale.SchoolID, &scale.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &report.ConfigurationError{SchoolID: schoolID, Stage: "grade_scale", Reason: "no default grade scale configured"}
	}
	if err != nil {
		return nil, persistErr("default_grade_scale", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
SELECT id, scale_id, min_score, max_score, letter_grade, points, sort_order
FROM grade_bands WHERE scale_id = $1 ORDER BY sort_order`, scale.ID)
	if err != nil {
		return nil, persistErr("grade_bands", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b models.GradeBand
		if err := rows.Scan(&b.ID, &b.ScaleID, &b.MinScore, &b.MaxScore, &b.LetterGrade, &b.Points, &b.SortOrder); err != nil {
			return nil, persistErr("grade_bands", err)
		}
		scale.Bands = append(scale.Bands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("grade_bands", err)
	}
	return &scale, nil
}
