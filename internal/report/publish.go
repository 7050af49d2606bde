package report

import (
	"context"
	"fmt"
	"time"

	"github.com/edupoint/reportcard/internal/metrics"
	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher owns the DRAFT->RELEASED transition. RELEASED is terminal:
// the version becomes permanent historical record and later
// regeneration only ever appends a new version.
type Publisher struct {
	store Store
	audit AuditSink
	log   *zap.Logger
}

func NewPublisher(store Store, audit AuditSink, log *zap.Logger) *Publisher {
	return &Publisher{store: store, audit: audit, log: log}
}

// PublishOutcome is the per-version result of a bulk release.
type PublishOutcome struct {
	VersionID uuid.UUID `json:"version_id"`
	StudentID uuid.UUID `json:"student_id"`
	Err       string    `json:"error,omitempty"`
}

// Release transitions one DRAFT version to RELEASED.
func (p *Publisher) Release(ctx context.Context, actor models.Actor, versionID uuid.UUID) (*models.ReportCardVersion, error) {
	if !actor.CanManageReports() {
		return nil, ErrForbidden
	}
	cur, err := p.store.VersionByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if cur.SchoolID != actor.SchoolID {
		return nil, ErrForbidden
	}

	v, err := p.store.ReleaseVersion(ctx, versionID, actor.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	metrics.Publications.Inc()

	if err := p.audit.Record(ctx, AuditRecord{
		SchoolID:   v.SchoolID,
		ActorID:    actor.ID,
		Action:     "report_card:publish",
		ResourceID: v.ID.String(),
		Summary:    fmt.Sprintf("released version %d for student %s, term %s", v.VersionNumber, v.StudentID, v.TermID),
	}); err != nil {
		p.log.Warn("audit record failed", zap.Error(err))
	}
	return v, nil
}

// ReleaseBulk releases every DRAFT version matching the class+term
// filter, transitioning each record individually so one failure does
// not block the rest. Each transition is audited on its own.
func (p *Publisher) ReleaseBulk(ctx context.Context, actor models.Actor, classID, termID uuid.UUID) ([]PublishOutcome, error) {
	if !actor.CanManageReports() {
		return nil, ErrForbidden
	}
	drafts, err := p.store.DraftVersions(ctx, classID, termID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]PublishOutcome, 0, len(drafts))
	for _, d := range drafts {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		o := PublishOutcome{VersionID: d.ID, StudentID: d.StudentID}
		if _, err := p.Release(ctx, actor, d.ID); err != nil {
			o.Err = err.Error()
			p.log.Warn("bulk publish: version failed",
				zap.String("version_id", d.ID.String()), zap.Error(err))
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}
