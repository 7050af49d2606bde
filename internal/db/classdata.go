package db

import (
	"context"
	"database/sql"

	"github.com/edupoint/reportcard/internal/models"
	"github.com/edupoint/reportcard/internal/report"
	"github.com/google/uuid"
)

// ClassData reads everything one ranking run needs inside a single
// repeatable-read transaction, so the whole class is scored off one
// point-in-time view of the marks.
func (s *Store) ClassData(ctx context.Context, classID, termID uuid.UUID) (*report.ClassData, error) {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, persistErr("class_data_begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	data := &report.ClassData{
		Subjects: make(map[uuid.UUID]models.Subject),
		Marks:    make(map[uuid.UUID]map[uuid.UUID]float64),
	}

	err = tx.QueryRowContext(ctx, `
SELECT id, school_id, name, level FROM classes WHERE id = $1`, classID).Scan(
		&data.Class.ID, &data.Class.SchoolID, &data.Class.Name, &data.Class.Level)
	if err != nil {
		return nil, persistErr("class_data_class", err)
	}

	rows, err := tx.QueryContext(ctx, `
SELECT id, school_id, class_id, admission_no, first_name, last_name, stream, is_active
FROM students WHERE class_id = $1 AND is_active ORDER BY admission_no`, classID)
	if err != nil {
		return nil, persistErr("class_data_students", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st models.Student
		if err := rows.Scan(&st.ID, &st.SchoolID, &st.ClassID, &st.AdmissionNo, &st.FirstName, &st.LastName, &st.Stream, &st.IsActive); err != nil {
			return nil, persistErr("class_data_students", err)
		}
		data.Students = append(data.Students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("class_data_students", err)
	}

	subjRows, err := tx.QueryContext(ctx, `
SELECT s.id, s.school_id, s.code, s.name, s.curriculum_area, s.is_active
FROM subjects s
JOIN class_subjects cs ON cs.subject_id = s.id
WHERE cs.class_id = $1 AND s.is_active`, classID)
	if err != nil {
		return nil, persistErr("class_data_subjects", err)
	}
	defer subjRows.Close()
	for subjRows.Next() {
		var sub models.Subject
		if err := subjRows.Scan(&sub.ID, &sub.SchoolID, &sub.Code, &sub.Name, &sub.CurriculumArea, &sub.IsActive); err != nil {
			return nil, persistErr("class_data_subjects", err)
		}
		data.Subjects[sub.ID] = sub
	}
	if err := subjRows.Err(); err != nil {
		return nil, persistErr("class_data_subjects", err)
	}

	aRows, err := tx.QueryContext(ctx, `
SELECT id, class_id, subject_id, teacher_id, assessment_type_id, academic_term_id, max_score, created_at
FROM assessments WHERE class_id = $1 AND academic_term_id = $2`, classID, termID)
	if err != nil {
		return nil, persistErr("class_data_assessments", err)
	}
	defer aRows.Close()
	for aRows.Next() {
		var a models.Assessment
		if err := aRows.Scan(&a.ID, &a.ClassID, &a.SubjectID, &a.TeacherID, &a.AssessmentTypeID, &a.AcademicTermID, &a.MaxScore, &a.CreatedAt); err != nil {
			return nil, persistErr("class_data_assessments", err)
		}
		data.Assessments = append(data.Assessments, a)
	}
	if err := aRows.Err(); err != nil {
		return nil, persistErr("class_data_assessments", err)
	}

	mRows, err := tx.QueryContext(ctx, `
SELECT m.student_id, m.assessment_id, m.score
FROM student_marks m
JOIN assessments a ON a.id = m.assessment_id
WHERE a.class_id = $1 AND a.academic_term_id = $2`, classID, termID)
	if err != nil {
		return nil, persistErr("class_data_marks", err)
	}
	defer mRows.Close()
	for mRows.Next() {
		var studentID, assessmentID uuid.UUID
		var score float64
		if err := mRows.Scan(&studentID, &assessmentID, &score); err != nil {
			return nil, persistErr("class_data_marks", err)
		}
		if data.Marks[studentID] == nil {
			data.Marks[studentID] = make(map[uuid.UUID]float64)
		}
		data.Marks[studentID][assessmentID] = score
	}
	if err := mRows.Err(); err != nil {
		return nil, persistErr("class_data_marks", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr("class_data_commit", err)
	}
	return data, nil
}
