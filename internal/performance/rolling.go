package performance

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// RollCell applies the incremental-mean update to a single matrix cell.
// count is the number of months already averaged into old.
//
// Nil handling is explicit: a present value always overrides an absent
// one, two absent values stay absent. When the forgotten sample (the
// month sliding out of the remember window) is present, it is swapped
// out for the new one; otherwise the plain incremental mean applies.
func RollCell(old, sample, forgotten *float64, count int) *float64 {
	switch {
	case old == nil && sample == nil:
		return nil
	case old == nil:
		v := *sample
		return &v
	case sample == nil:
		v := *old
		return &v
	}

	if count < 1 {
		count = 1
	}
	var v float64
	if forgotten != nil {
		v = *old + (*sample-*forgotten)/float64(count)
	} else {
		v = *old + (*sample-*old)/float64(count)
	}
	return &v
}

// RollMatrix rolls every cell of the configured bucket grid. old must
// not be nil; sample and forgotten may be (treated as all-absent).
func RollMatrix(old, sample, forgotten model.PerformanceMatrix, count int, buckets Buckets) model.PerformanceMatrix {
	out := model.NewPerformanceMatrix(buckets.OpenLeads, buckets.Revenue)
	for _, ol := range buckets.OpenLeads {
		for _, rev := range buckets.Revenue {
			var f *float64
			if forgotten != nil {
				f = forgotten.At(ol, rev)
			}
			var s *float64
			if sample != nil {
				s = sample.At(ol, rev)
			}
			if v := RollCell(old.At(ol, rev), s, f, count); v != nil {
				out.Set(ol, rev, *v)
			}
		}
	}
	return out
}

// RollingAverage is the rolled matrix of one consultant together with
// its updated month count.
type RollingAverage struct {
	Matrix model.PerformanceMatrix
	Count  int
}

// RollingCalculator combines the current month's matrix with the
// persisted prior average, forgetting the month that slides out of the
// remember window.
type RollingCalculator struct {
	monthly *MonthlyCalculator
	buckets Buckets
	window  int
}

// NewRollingCalculator creates a RollingCalculator. window is the
// remember window in months and bounds the incremental-mean count.
func NewRollingCalculator(monthly *MonthlyCalculator, buckets Buckets, window int) *RollingCalculator {
	return &RollingCalculator{monthly: monthly, buckets: buckets, window: window}
}

// Call computes the rolled matrices for the given month. priors maps
// consultant to its last persisted average (absent entry means no
// history: this month's matrix IS the result). forgotten carries the
// matrices of the month falling out of the window, and may be nil.
func (c *RollingCalculator) Call(ctx context.Context, beginningOfMonth time.Time, consultantIDs, categoryIDs []int64, priors map[int64]PriorAverage, forgotten map[int64]model.PerformanceMatrix) (map[int64]RollingAverage, error) {
	current, err := c.monthly.Call(ctx, beginningOfMonth, consultantIDs, categoryIDs)
	if err != nil {
		return nil, eris.Wrap(err, "performance: calculate current month")
	}

	out := make(map[int64]RollingAverage, len(current))
	for id, sample := range current {
		prior, ok := priors[id]
		if !ok || prior.Matrix == nil {
			out[id] = RollingAverage{Matrix: sample, Count: 1}
			continue
		}

		count := prior.Count
		if count > c.window {
			count = c.window
		}
		rolled := RollMatrix(prior.Matrix, sample, forgotten[id], count, c.buckets)

		next := prior.Count + 1
		if next > c.window {
			next = c.window
		}
		out[id] = RollingAverage{Matrix: rolled, Count: next}
	}
	return out, nil
}
