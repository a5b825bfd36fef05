package performance

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// MonthlyCalculator aggregates one month of closed opportunities into a
// per-consultant conversion matrix.
type MonthlyCalculator struct {
	closed  ClosedOpportunitiesRepo
	buckets Buckets
}

// NewMonthlyCalculator creates a MonthlyCalculator over the given
// bucket boundaries.
func NewMonthlyCalculator(closed ClosedOpportunitiesRepo, buckets Buckets) *MonthlyCalculator {
	return &MonthlyCalculator{closed: closed, buckets: buckets}
}

// Call computes the month's matrix for each requested consultant. A
// consultant with zero closed opportunities yields an all-nil matrix of
// the same shape. One repository call covers the whole consultant set.
func (c *MonthlyCalculator) Call(ctx context.Context, beginningOfMonth time.Time, consultantIDs, categoryIDs []int64) (map[int64]model.PerformanceMatrix, error) {
	records, err := c.closed.ClosedOpportunitiesFor(ctx, beginningOfMonth, consultantIDs, categoryIDs)
	if err != nil {
		return nil, eris.Wrap(err, "performance: load closed opportunities")
	}

	ids := consultantIDs
	if len(ids) == 0 {
		for id := range records {
			ids = append(ids, id)
		}
	}

	out := make(map[int64]model.PerformanceMatrix, len(ids))
	for _, id := range ids {
		out[id] = c.matrixOf(records[id])
	}
	return out, nil
}

func (c *MonthlyCalculator) matrixOf(records []model.ClosedOpportunityRecord) model.PerformanceMatrix {
	matrix := model.NewPerformanceMatrix(c.buckets.OpenLeads, c.buckets.Revenue)

	type cell struct{ openLeads, revenue int }
	totals := make(map[cell]int)
	successes := make(map[cell]int)

	for _, rec := range records {
		k := cell{
			openLeads: BucketFor(rec.AvgOpenOpportunities, c.buckets.OpenLeads),
			revenue:   BucketFor(rec.GeneratedRevenueSoFar, c.buckets.Revenue),
		}
		totals[k]++
		if rec.ClosedSuccessfully {
			successes[k]++
		}
	}

	for k, total := range totals {
		matrix.Set(k.openLeads, k.revenue, float64(successes[k])/float64(total))
	}
	return matrix
}
