package db

import (
	"context"

	"github.com/edupoint/reportcard/internal/ctxutil"
	"github.com/edupoint/reportcard/internal/report"
)

func (s *Store) Record(ctx context.Context, rec report.AuditRecord) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := s.DB.ExecContext(ctx, `
INSERT INTO audit_log (school_id, actor_id, action, resource_id, summary)
VALUES ($1, $2, $3, $4, $5)`,
		rec.SchoolID, rec.ActorID, rec.Action, rec.ResourceID, rec.Summary)
	return persistErr("audit_record", err)
}
