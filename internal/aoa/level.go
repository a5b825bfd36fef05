package aoa

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clark-group/brokerage-cli/internal/performance"
)

// LevelUpdater writes a manual performance-level override onto a
// consultant's latest monthly snapshot.
type LevelUpdater struct {
	snapshots   performance.SnapshotRepo
	algoVersion string
}

// NewLevelUpdater creates a LevelUpdater.
func NewLevelUpdater(snapshots performance.SnapshotRepo, algoVersion string) *LevelUpdater {
	return &LevelUpdater{snapshots: snapshots, algoVersion: algoVersion}
}

// Call sets the consultant's performance level for one category on the
// latest snapshot and persists it under the same row ID.
func (u *LevelUpdater) Call(ctx context.Context, consultantID int64, categoryIdent, level string) error {
	last, err := u.snapshots.LastSnapshotDate(ctx, consultantID, u.algoVersion)
	if err != nil {
		return eris.Wrap(err, "aoa: load last snapshot date")
	}
	if last == nil {
		return eris.Errorf("aoa: consultant %d has no performance snapshot", consultantID)
	}

	snap, err := u.snapshots.SnapshotFor(ctx, consultantID, *last, u.algoVersion)
	if err != nil {
		return eris.Wrap(err, "aoa: load snapshot")
	}
	if snap == nil {
		return eris.Errorf("aoa: consultant %d has no performance snapshot", consultantID)
	}

	if snap.PerformanceLevel == nil {
		snap.PerformanceLevel = map[string]string{}
	}
	snap.PerformanceLevel[categoryIdent] = level

	if err := u.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return eris.Wrap(err, "aoa: save snapshot")
	}

	zap.L().Info("aoa: performance level updated",
		zap.Int64("consultant_id", consultantID),
		zap.String("category", categoryIdent),
		zap.String("level", level),
	)
	return nil
}
