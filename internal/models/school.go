package models

import (
	"time"

	"github.com/google/uuid"
)

type School struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type Class struct {
	ID       uuid.UUID `db:"id"`
	SchoolID uuid.UUID `db:"school_id"`
	Name     string    `db:"name"`
	Level    string    `db:"level"`
}

// Student carries the fields the engine needs: the admission number is
// the final ranking tie-break, the stream scopes stream-level ranking.
type Student struct {
	ID          uuid.UUID `db:"id"`
	SchoolID    uuid.UUID `db:"school_id"`
	ClassID     uuid.UUID `db:"class_id"`
	AdmissionNo string    `db:"admission_no"`
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	Stream      *string   `db:"stream"`
	IsActive    bool      `db:"is_active"`
}

type CurriculumArea string

const (
	AreaSciences   CurriculumArea = "SCIENCES"
	AreaHumanities CurriculumArea = "HUMANITIES"
	AreaLanguages  CurriculumArea = "LANGUAGES"
	AreaOther      CurriculumArea = "OTHER"
)

type Subject struct {
	ID             uuid.UUID      `db:"id"`
	SchoolID       uuid.UUID      `db:"school_id"`
	Code           string         `db:"code"`
	Name           string         `db:"name"`
	CurriculumArea CurriculumArea `db:"curriculum_area"`
	IsActive       bool           `db:"is_active"`
}

type AcademicTerm struct {
	ID        uuid.UUID `db:"id"`
	SchoolID  uuid.UUID `db:"school_id"`
	Name      string    `db:"name"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	IsActive  bool      `db:"is_active"`
}
