package models

import "github.com/google/uuid"

type Role string

const (
	RoleSchoolAdmin Role = "SCHOOL_ADMIN"
	RoleHeadTeacher Role = "HEAD_TEACHER"
	RoleTeacher     Role = "TEACHER"
	RoleParent      Role = "PARENT"
)

// Actor is the resolved acting user supplied by the identity collaborator.
type Actor struct {
	ID       uuid.UUID `db:"id"`
	Name     string    `db:"name"`
	Role     Role      `db:"role"`
	SchoolID uuid.UUID `db:"school_id"`
	IsActive bool      `db:"is_active"`
}

// CanManageReports reports whether the actor may generate or publish
// report cards and edit results settings.
func (a Actor) CanManageReports() bool {
	return a.Role == RoleSchoolAdmin || a.Role == RoleHeadTeacher
}

// CanEnterMarks covers mark-sheet ingestion, which teachers may also do.
func (a Actor) CanEnterMarks() bool {
	return a.CanManageReports() || a.Role == RoleTeacher
}
