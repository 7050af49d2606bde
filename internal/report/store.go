package report

import (
	"context"
	"time"

	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
)

// ClassData is one consistent read of everything a ranking run needs
// for a class+term. The store produces it inside a single read
// transaction so a late-arriving mark cannot shift positions
// mid-computation.
type ClassData struct {
	Class    models.Class
	Students []models.Student

	// Subjects offered by the class; line items exist for all of them.
	Subjects map[uuid.UUID]models.Subject

	// Assessments of the class in the term, and every student's marks
	// for them: student id -> assessment id -> raw score.
	Assessments []models.Assessment
	Marks       map[uuid.UUID]map[uuid.UUID]float64
}

// Store is the transactional persistence boundary of the engine.
type Store interface {
	StudentByID(ctx context.Context, id uuid.UUID) (*models.Student, error)
	ClassData(ctx context.Context, classID, termID uuid.UUID) (*ClassData, error)

	ResultsSettings(ctx context.Context, schoolID uuid.UUID) (*models.SchoolResultsSettings, error)
	DefaultGradeScale(ctx context.Context, schoolID uuid.UUID) (*models.GradeScale, error)
	ActiveAssessmentTypes(ctx context.Context, schoolID uuid.UUID) ([]models.AssessmentType, error)
	SubjectProfiles(ctx context.Context, schoolID uuid.UUID) (map[uuid.UUID]models.SubjectResultsProfile, error)

	// InsertVersion allocates the next version number for the
	// student+term and writes the version with its line items in one
	// transaction. A lost allocation race surfaces as
	// ErrVersionConflict.
	InsertVersion(ctx context.Context, v *models.ReportCardVersion, lines []models.ReportCardVersionSubject) error

	VersionByID(ctx context.Context, id uuid.UUID) (*models.ReportCardVersion, error)
	DraftVersions(ctx context.Context, classID, termID uuid.UUID) ([]models.ReportCardVersion, error)
	ReleaseVersion(ctx context.Context, versionID, releasedBy uuid.UUID, at time.Time) (*models.ReportCardVersion, error)
}

// AttendanceSource is the attendance collaborator, consumed only at
// this boundary: per student+term presence totals derived externally
// from lesson records.
type AttendanceSource interface {
	Summary(ctx context.Context, studentID, termID uuid.UUID) (models.AttendanceSummary, error)
}

// AuditRecord is one emitted audit entry.
type AuditRecord struct {
	SchoolID   uuid.UUID
	ActorID    uuid.UUID
	Action     string
	ResourceID string
	Summary    string
}

// AuditSink receives one record per meaningful action. Sink failures
// are logged, never fatal to the action itself.
type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord) error
}
