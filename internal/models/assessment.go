package models

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentCategory is the closed tag an assessment type belongs to.
// It is assigned when the type is configured, never re-derived from the
// type name at computation time.
type AssessmentCategory string

const (
	CategoryCAT  AssessmentCategory = "CAT_LIKE"
	CategoryExam AssessmentCategory = "EXAM_LIKE"
)

// AssessmentType is a school-level category of assessment (e.g. "CAT 1",
// "Mid-term", "End of Term Exam"). Weight is a relative contribution
// unit within its category, not a percentage.
type AssessmentType struct {
	ID       uuid.UUID          `db:"id"`
	SchoolID uuid.UUID          `db:"school_id"`
	Name     string             `db:"name"`
	Category AssessmentCategory `db:"category"`
	Weight   float64            `db:"weight"`
	MaxScore float64            `db:"max_score"`
	IsActive bool               `db:"is_active"`
}

// Assessment is one sitting of an assessment type for a class, subject
// and term.
type Assessment struct {
	ID               uuid.UUID `db:"id"`
	ClassID          uuid.UUID `db:"class_id"`
	SubjectID        uuid.UUID `db:"subject_id"`
	TeacherID        uuid.UUID `db:"teacher_id"`
	AssessmentTypeID uuid.UUID `db:"assessment_type_id"`
	AcademicTermID   uuid.UUID `db:"academic_term_id"`
	MaxScore         float64   `db:"max_score"`
	CreatedAt        time.Time `db:"created_at"`
}

// StudentMark is one student's raw score for one assessment, unique per
// (student, assessment). Absence of a row means the student did not sit
// the assessment; it is never treated as a zero.
type StudentMark struct {
	StudentID    uuid.UUID `db:"student_id"`
	AssessmentID uuid.UUID `db:"assessment_id"`
	Score        float64   `db:"score"`
	RecordedBy   uuid.UUID `db:"recorded_by"`
	RecordedAt   time.Time `db:"recorded_at"`
}
