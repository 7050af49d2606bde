package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/edupoint/reportcard/internal/ctxutil"
	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
)

// Summary reads the attendance collaborator's materialized totals for a
// student+term. A student with no attendance rows yet snapshots as
// zeros rather than blocking generation.
func (s *Store) Summary(ctx context.Context, studentID, termID uuid.UUID) (models.AttendanceSummary, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var a models.AttendanceSummary
	err := s.DB.QueryRowContext(ctx, `
SELECT days_present, days_absent, attendance_pct
FROM attendance_summary WHERE student_id = $1 AND term_id = $2`, studentID, termID).Scan(
		&a.DaysPresent, &a.DaysAbsent, &a.Percentage)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AttendanceSummary{}, nil
	}
	if err != nil {
		return models.AttendanceSummary{}, persistErr("attendance_summary", err)
	}
	return a, nil
}
