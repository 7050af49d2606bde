package jobs

import (
	"context"
	"time"

	"github.com/edupoint/reportcard/internal/ctxutil"
	"github.com/edupoint/reportcard/internal/models"
	"go.uber.org/zap"
)

// DraftLister is the slice of the store the sweep needs.
type DraftLister interface {
	StaleDrafts(ctx context.Context, cutoff time.Time) ([]models.ReportCardVersion, error)
}

// StaleDraftSweep reports DRAFT versions that have sat unreleased for
// longer than age. Drafts are never auto-released or auto-deleted;
// the sweep only surfaces them for head teachers to act on.
func StaleDraftSweep(store DraftLister, age time.Duration, log *zap.Logger) Job {
	return func(ctx context.Context) error {
		ctx, cancel := ctxutil.WithDBTimeout(ctx)
		defer cancel()

		drafts, err := store.StaleDrafts(ctx, time.Now().Add(-age))
		if err != nil {
			log.Error("stale draft sweep failed", zap.Error(err))
			return err
		}
		staleDrafts.Set(float64(len(drafts)))
		if len(drafts) == 0 {
			return nil
		}
		byClass := make(map[string]int)
		for _, d := range drafts {
			byClass[d.ClassID.String()]++
		}
		log.Warn("stale draft report cards",
			zap.Int("total", len(drafts)),
			zap.Any("by_class", byClass))
		return nil
	}
}
