package performance

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// Backfiller fills in historical monthly snapshots for every active
// sales consultant, month by month, from a fixed epoch (or the month
// after the consultant's last snapshot) through the current month.
type Backfiller struct {
	populator *Populator
	snapshots SnapshotRepo
	admins    AdminsRepo

	epoch       time.Time
	algoVersion string
	now         func() time.Time
}

// NewBackfiller creates a Backfiller starting at epoch.
func NewBackfiller(populator *Populator, snapshots SnapshotRepo, admins AdminsRepo, epoch time.Time, algoVersion string) *Backfiller {
	return &Backfiller{
		populator:   populator,
		snapshots:   snapshots,
		admins:      admins,
		epoch:       epoch,
		algoVersion: algoVersion,
		now:         time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (b *Backfiller) WithClock(now func() time.Time) *Backfiller {
	b.now = now
	return b
}

// Call runs the backfill. Consultants are processed independently and
// strictly sequentially: when one consultant's computation fails, the
// failure is logged, that consultant's rows from this run are deleted so
// no half-computed state persists, and the batch continues. The last
// error is returned after the full roster has been attempted.
func (b *Backfiller) Call(ctx context.Context) error {
	consultants, err := b.admins.ActiveSalesConsultants(ctx)
	if err != nil {
		return eris.Wrap(err, "performance: load consultants")
	}

	currentMonth := model.BeginningOfMonth(b.now())
	var lastErr error
	for _, consultant := range consultants {
		if err := b.backfillOne(ctx, consultant.ID, currentMonth); err != nil {
			zap.L().Error("performance: backfill failed",
				zap.Int64("consultant_id", consultant.ID),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	return lastErr
}

func (b *Backfiller) backfillOne(ctx context.Context, consultantID int64, currentMonth time.Time) error {
	start := model.BeginningOfMonth(b.epoch)
	last, err := b.snapshots.LastSnapshotDate(ctx, consultantID, b.algoVersion)
	if err != nil {
		return eris.Wrap(err, "performance: load last snapshot date")
	}
	if last != nil {
		if resume := model.BeginningOfMonth(*last).AddDate(0, 1, 0); resume.After(start) {
			start = resume
		}
	}

	for month := start; !month.After(currentMonth); month = month.AddDate(0, 1, 0) {
		if _, err := b.populator.Call(ctx, month, []int64{consultantID}, nil); err != nil {
			// Roll back this run's rows so no partial state survives.
			if delErr := b.snapshots.DeleteSnapshotsSince(ctx, consultantID, start, b.algoVersion); delErr != nil {
				zap.L().Error("performance: backfill rollback failed",
					zap.Int64("consultant_id", consultantID),
					zap.Error(delErr),
				)
			}
			return eris.Wrapf(err, "performance: populate %s", month.Format("2006-01"))
		}
	}
	return nil
}
