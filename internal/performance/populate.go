package performance

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// Populator computes and persists the monthly performance snapshot of
// each consultant: revenue, open pipeline, classification levels and
// the rolled conversion matrix.
type Populator struct {
	rolling     *RollingCalculator
	monthly     *MonthlyCalculator
	revenue     *RevenueCalculator
	openLeads   *OpenLeadsCalculator
	snapshots   SnapshotRepo
	classes     ClassificationsRepo
	admins      AdminsRepo
	aoaCats     AoaCategoriesRepo
	algoVersion string
	window      int
}

// NewPopulator wires the snapshot pipeline. window is the remember
// window in months.
func NewPopulator(
	rolling *RollingCalculator,
	monthly *MonthlyCalculator,
	revenue *RevenueCalculator,
	openLeads *OpenLeadsCalculator,
	snapshots SnapshotRepo,
	classes ClassificationsRepo,
	admins AdminsRepo,
	aoaCats AoaCategoriesRepo,
	algoVersion string,
	window int,
) *Populator {
	return &Populator{
		rolling:     rolling,
		monthly:     monthly,
		revenue:     revenue,
		openLeads:   openLeads,
		snapshots:   snapshots,
		classes:     classes,
		admins:      admins,
		aoaCats:     aoaCats,
		algoVersion: algoVersion,
		window:      window,
	}
}

// Call computes and upserts the snapshots for date's month. An empty
// consultantIDs means every active sales consultant; an empty
// categoryIDs means the categories used in automated allocation.
//
// The upsert is keyed by (consultant, month): a fresh row is written
// when date is the first of the month or no row exists yet, otherwise
// the existing row is updated in place under its prior ID.
func (p *Populator) Call(ctx context.Context, date time.Time, consultantIDs, categoryIDs []int64) ([]*model.MonthlyAdminPerformance, error) {
	month := model.BeginningOfMonth(date)

	if len(consultantIDs) == 0 {
		admins, err := p.admins.ActiveSalesConsultants(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "performance: load consultants")
		}
		for _, a := range admins {
			consultantIDs = append(consultantIDs, a.ID)
		}
	}
	if len(categoryIDs) == 0 {
		var err error
		categoryIDs, err = p.aoaCats.CategoriesUsedInAoa(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "performance: load aoa categories")
		}
	}

	// The three batch inputs are independent reads.
	var (
		priors    map[int64]PriorAverage
		forgotten map[int64]model.PerformanceMatrix
		levels    map[int64]map[string]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		priors, err = p.snapshots.LatestPerformanceMatrixFor(gctx, p.algoVersion, consultantIDs)
		return eris.Wrap(err, "performance: load prior averages")
	})
	g.Go(func() error {
		var err error
		forgotten, err = p.monthly.Call(gctx, month.AddDate(0, -p.window, 0), consultantIDs, categoryIDs)
		return eris.Wrap(err, "performance: calculate forgotten month")
	})
	g.Go(func() error {
		var err error
		levels, err = p.classes.PerformanceClassifications(gctx, consultantIDs)
		return eris.Wrap(err, "performance: load classifications")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matrices, err := p.rolling.Call(ctx, month, consultantIDs, categoryIDs, priors, forgotten)
	if err != nil {
		return nil, err
	}

	sorted := append([]int64(nil), consultantIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make([]*model.MonthlyAdminPerformance, 0, len(sorted))
	for _, id := range sorted {
		snap, err := p.populateOne(ctx, id, date, month, categoryIDs, matrices[id].Matrix, levels[id])
		if err != nil {
			return out, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func (p *Populator) populateOne(ctx context.Context, consultantID int64, date, month time.Time, categoryIDs []int64, matrix model.PerformanceMatrix, levels map[string]string) (*model.MonthlyAdminPerformance, error) {
	revenue, err := p.revenue.Call(ctx, consultantID, month, categoryIDs)
	if err != nil {
		return nil, err
	}
	open, err := p.openLeads.Call(ctx, consultantID, categoryIDs)
	if err != nil {
		return nil, err
	}

	if levels == nil {
		levels = map[string]string{}
	}
	snap := &model.MonthlyAdminPerformance{
		ConsultantID:                    consultantID,
		CalculationDate:                 month,
		Revenue:                         revenue,
		OpenOpportunities:               open.Count,
		OpenOpportunitiesCategoryCounts: open.CategoryCounts,
		PerformanceLevel:                levels,
		PerformanceMatrix:               matrix,
		AlgoVersion:                     p.algoVersion,
	}

	// Mid-month runs update the month's existing row under its ID.
	if !date.Equal(month) {
		existing, err := p.snapshots.SnapshotFor(ctx, consultantID, month, p.algoVersion)
		if err != nil {
			return nil, eris.Wrap(err, "performance: load existing snapshot")
		}
		if existing != nil {
			snap.ID = existing.ID
		}
	}

	if err := p.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return nil, eris.Wrapf(err, "performance: save snapshot for consultant %d", consultantID)
	}

	zap.L().Debug("performance: snapshot saved",
		zap.Int64("consultant_id", consultantID),
		zap.Time("month", month),
		zap.Float64("revenue", revenue),
	)
	return snap, nil
}
