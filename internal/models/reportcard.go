package models

import (
	"time"

	"github.com/google/uuid"
)

type VersionStatus string

const (
	StatusDraft    VersionStatus = "DRAFT"
	StatusReleased VersionStatus = "RELEASED"
)

// AttendanceSummary is the attendance collaborator's per student+term
// output, captured into the snapshot at generation time.
type AttendanceSummary struct {
	DaysPresent int     `db:"days_present" json:"days_present"`
	DaysAbsent  int     `db:"days_absent" json:"days_absent"`
	Percentage  float64 `db:"attendance_pct" json:"attendance_percentage"`
}

// ReportCardVersion is one immutable snapshot of a student's computed
// results for a term. Content never changes after insert; only the
// publication fields move, once, from DRAFT to RELEASED.
type ReportCardVersion struct {
	ID            uuid.UUID     `db:"id"`
	StudentID     uuid.UUID     `db:"student_id"`
	TermID        uuid.UUID     `db:"term_id"`
	ClassID       uuid.UUID     `db:"class_id"`
	SchoolID      uuid.UUID     `db:"school_id"`
	VersionNumber int           `db:"version_number"`
	Status        VersionStatus `db:"status"`

	TotalPoints    float64 `db:"total_points"`
	MeanPoints     float64 `db:"mean_points"`
	ClassPosition  int     `db:"class_position"`
	ClassSize      int     `db:"class_size"`
	StreamPosition *int    `db:"stream_position"`
	StreamSize     *int    `db:"stream_size"`
	Incomplete     bool    `db:"incomplete"`

	Attendance AttendanceSummary

	// MarksSnapshot is the full generation-time payload (subjects,
	// policy echo, warnings) kept as JSONB for byte-stable redisplay.
	MarksSnapshot []byte `db:"marks_snapshot"`

	GeneratedBy uuid.UUID  `db:"generated_by"`
	GeneratedAt time.Time  `db:"generated_at"`
	ReleasedBy  *uuid.UUID `db:"released_by"`
	ReleasedAt  *time.Time `db:"released_at"`
}

// ReportCardVersionSubject is one per-subject line item of a version.
// A subject with no marks at all is still present, with null grade.
type ReportCardVersionSubject struct {
	ID            uuid.UUID `db:"id"`
	VersionID     uuid.UUID `db:"version_id"`
	SubjectID     uuid.UUID `db:"subject_id"`
	SubjectCode   string    `db:"subject_code"`
	SubjectName   string    `db:"subject_name"`
	Percentage    *float64  `db:"percentage"`
	LetterGrade   *string   `db:"letter_grade"`
	Points        *float64  `db:"points"`
	SubjectRank   *int      `db:"subject_rank"`
	UsedInRanking bool      `db:"used_in_ranking"`
	NotAssessed   bool      `db:"not_assessed"`
}
