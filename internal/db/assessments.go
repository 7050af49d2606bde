package db

import (
	"context"

	"github.com/edupoint/reportcard/internal/ctxutil"
	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
)

func (s *Store) ActiveAssessmentTypes(ctx context.Context, schoolID uuid.UUID) ([]models.AssessmentType, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
SELECT id, school_id, name, category, weight, max_score, is_active
FROM assessment_types WHERE school_id = $1 AND is_active ORDER BY name`, schoolID)
	if err != nil {
		return nil, persistErr("assessment_types", err)
	}
	defer rows.Close()

	var out []models.AssessmentType
	for rows.Next() {
		var t models.AssessmentType
		if err := rows.Scan(&t.ID, &t.SchoolID, &t.Name, &t.Category, &t.Weight, &t.MaxScore, &t.IsActive); err != nil {
			return nil, persistErr("assessment_types", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("assessment_types", err)
	}
	return out, nil
}

func (s *Store) AssessmentByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var a models.Assessment
	err := s.DB.QueryRowContext(ctx, `
SELECT id, class_id, subject_id, teacher_id, assessment_type_id, academic_term_id, max_score, created_at
FROM assessments WHERE id = $1`, id).Scan(
		&a.ID, &a.ClassID, &a.SubjectID, &a.TeacherID, &a.AssessmentTypeID, &a.AcademicTermID, &a.MaxScore, &a.CreatedAt)
	if err != nil {
		return nil, persistErr("assessment_by_id", err)
	}
	return &a, nil
}

// UpsertMarks writes a batch of marks in one transaction, replacing a
// previous score for the same (student, assessment) pair. All rows
// commit or none do; a mark sheet is never half-applied.
func (s *Store) UpsertMarks(ctx context.Context, marks []models.StudentMark) error {
	if len(marks) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("upsert_marks_begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range marks {
		_, err := tx.ExecContext(ctx, `
INSERT INTO student_marks (student_id, assessment_id, score, recorded_by, recorded_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (student_id, assessment_id) DO UPDATE SET
    score = EXCLUDED.score,
    recorded_by = EXCLUDED.recorded_by,
    recorded_at = EXCLUDED.recorded_at`,
			m.StudentID, m.AssessmentID, m.Score, m.RecordedBy)
		if err != nil {
			return persistErr("upsert_marks", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return persistErr("upsert_marks_commit", err)
	}
	return nil
}
