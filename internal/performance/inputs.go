package performance

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// RevenueCalculator sums the revenue a consultant generated from closed
// opportunities in one month.
type RevenueCalculator struct {
	admins AdminsRepo
	closed ClosedOpportunitiesRepo
}

// NewRevenueCalculator creates a RevenueCalculator.
func NewRevenueCalculator(admins AdminsRepo, closed ClosedOpportunitiesRepo) *RevenueCalculator {
	return &RevenueCalculator{admins: admins, closed: closed}
}

// Call returns the month's generated revenue. Consultants without the
// sales_consultation flag short-circuit to zero before any opportunity
// data is fetched.
func (c *RevenueCalculator) Call(ctx context.Context, consultantID int64, beginningOfMonth time.Time, categoryIDs []int64) (float64, error) {
	permitted, err := c.admins.SalesConsultationPermitted(ctx, consultantID)
	if err != nil {
		return 0, eris.Wrap(err, "performance: check sales consultation")
	}
	if !permitted {
		return 0, nil
	}

	records, err := c.closed.ClosedOpportunitiesFor(ctx, beginningOfMonth, []int64{consultantID}, categoryIDs)
	if err != nil {
		return 0, eris.Wrap(err, "performance: load closed opportunities")
	}

	var revenue float64
	for _, rec := range records[consultantID] {
		if rec.ClosedSuccessfully {
			revenue += rec.GeneratedRevenueSoFar
		}
	}
	return revenue, nil
}

// OpenLeadsCalculator counts a consultant's currently open opportunities.
type OpenLeadsCalculator struct {
	admins AdminsRepo
	open   OpenOpportunitiesRepo
}

// NewOpenLeadsCalculator creates an OpenLeadsCalculator.
func NewOpenLeadsCalculator(admins AdminsRepo, open OpenOpportunitiesRepo) *OpenLeadsCalculator {
	return &OpenLeadsCalculator{admins: admins, open: open}
}

// Call returns the open pipeline snapshot. Same permission
// short-circuit as RevenueCalculator: no I/O for unpermitted admins.
func (c *OpenLeadsCalculator) Call(ctx context.Context, consultantID int64, categoryIDs []int64) (model.OpenOpportunities, error) {
	permitted, err := c.admins.SalesConsultationPermitted(ctx, consultantID)
	if err != nil {
		return model.OpenOpportunities{}, eris.Wrap(err, "performance: check sales consultation")
	}
	if !permitted {
		return model.OpenOpportunities{CategoryCounts: map[string]int{}}, nil
	}

	counts, err := c.open.OpenOpportunitiesFor(ctx, []int64{consultantID}, categoryIDs)
	if err != nil {
		return model.OpenOpportunities{}, eris.Wrap(err, "performance: load open opportunities")
	}

	open, ok := counts[consultantID]
	if !ok {
		return model.OpenOpportunities{CategoryCounts: map[string]int{}}, nil
	}
	if open.CategoryCounts == nil {
		open.CategoryCounts = map[string]int{}
	}
	return open, nil
}
