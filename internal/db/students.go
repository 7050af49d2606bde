package db

import (
	"context"

	"github.com/edupoint/reportcard/internal/ctxutil"
	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
)

func (s *Store) StudentByID(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var st models.Student
	err := s.DB.QueryRowContext(ctx, `
SELECT id, school_id, class_id, admission_no, first_name, last_name, stream, is_active
FROM students WHERE id = $1`, id).Scan(
		&st.ID, &st.SchoolID, &st.ClassID, &st.AdmissionNo, &st.FirstName, &st.LastName, &st.Stream, &st.IsActive)
	if err != nil {
		return nil, persistErr("student_by_id", err)
	}
	return &st, nil
}

// StudentByAdmissionNo resolves a mark-sheet row to a student within
// one school.
func (s *Store) StudentByAdmissionNo(ctx context.Context, schoolID uuid.UUID, admissionNo string) (*models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var st models.Student
	err := s.DB.QueryRowContext(ctx, `
SELECT id, school_id, class_id, admission_no, first_name, last_name, stream, is_active
FROM students WHERE school_id = $1 AND admission_no = $2`, schoolID, admissionNo).Scan(
		&st.ID, &st.SchoolID, &st.ClassID, &st.AdmissionNo, &st.FirstName, &st.LastName, &st.Stream, &st.IsActive)
	if err != nil {
		return nil, persistErr("student_by_admission_no", err)
	}
	return &st, nil
}

// ActorByID resolves the acting user for the identity boundary.
func (s *Store) ActorByID(ctx context.Context, id uuid.UUID) (*models.Actor, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var a models.Actor
	err := s.DB.QueryRowContext(ctx, `
SELECT id, school_id, name, role, is_active FROM users WHERE id = $1`, id).Scan(
		&a.ID, &a.SchoolID, &a.Name, &a.Role, &a.IsActive)
	if err != nil {
		return nil, persistErr("actor_by_id", err)
	}
	return &a, nil
}
