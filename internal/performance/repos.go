package performance

import (
	"context"
	"time"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// ClosedOpportunitiesRepo delivers the closed opportunities of a month,
// grouped by consultant. Consultants with no closed opportunities may be
// missing from the map.
type ClosedOpportunitiesRepo interface {
	ClosedOpportunitiesFor(ctx context.Context, month time.Time, consultantIDs, categoryIDs []int64) (map[int64][]model.ClosedOpportunityRecord, error)
}

// OpenOpportunitiesRepo counts a consultant's currently open pipeline.
type OpenOpportunitiesRepo interface {
	OpenOpportunitiesFor(ctx context.Context, consultantIDs, categoryIDs []int64) (map[int64]model.OpenOpportunities, error)
}

// PriorAverage is the latest persisted rolling average of one consultant:
// the matrix plus the number of months already averaged into it.
type PriorAverage struct {
	Matrix model.PerformanceMatrix
	Count  int
}

// SnapshotRepo persists MonthlyAdminPerformance rows. SaveSnapshot
// inserts when the snapshot's ID is zero and updates in place otherwise;
// the storage layer keeps (consultant, calculation_date, algo_version)
// unique.
type SnapshotRepo interface {
	LatestPerformanceMatrixFor(ctx context.Context, algoVersion string, consultantIDs []int64) (map[int64]PriorAverage, error)
	SaveSnapshot(ctx context.Context, snap *model.MonthlyAdminPerformance) error
	SnapshotFor(ctx context.Context, consultantID int64, month time.Time, algoVersion string) (*model.MonthlyAdminPerformance, error)
	LastSnapshotDate(ctx context.Context, consultantID int64, algoVersion string) (*time.Time, error)
	DeleteSnapshotsSince(ctx context.Context, consultantID int64, since time.Time, algoVersion string) error
}

// AdminsRepo exposes the consultant roster and access flags.
type AdminsRepo interface {
	SalesConsultationPermitted(ctx context.Context, adminID int64) (bool, error)
	ActiveSalesConsultants(ctx context.Context) ([]model.Admin, error)
}

// ClassificationsRepo resolves per-consultant performance levels, keyed
// by category ident.
type ClassificationsRepo interface {
	PerformanceClassifications(ctx context.Context, consultantIDs []int64) (map[int64]map[string]string, error)
}

// AoaCategoriesRepo lists the category IDs participating in automated
// opportunity allocation.
type AoaCategoriesRepo interface {
	CategoriesUsedInAoa(ctx context.Context) ([]int64, error)
}
