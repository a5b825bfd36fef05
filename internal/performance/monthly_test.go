package performance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clark-group/brokerage-cli/internal/model"
)

func TestMonthlyCalculator_AggregatesConversionPerCell(t *testing.T) {
	closed := &fakeClosedRepo{records: map[int64][]model.ClosedOpportunityRecord{
		1: {
			{ClosedSuccessfully: true, AvgOpenOpportunities: 12, GeneratedRevenueSoFar: 4000},
			{ClosedSuccessfully: false, AvgOpenOpportunities: 15, GeneratedRevenueSoFar: 8000},
			{ClosedSuccessfully: true, AvgOpenOpportunities: 55, GeneratedRevenueSoFar: 20000},
		},
	}}
	calc := NewMonthlyCalculator(closed, DefaultBuckets())

	matrices, err := calc.Call(context.Background(), month(2026, time.July), []int64{1}, nil)
	require.NoError(t, err)
	matrix := matrices[1]

	// 12 and 15 both round up into (20, 9000): one success of two.
	require.NotNil(t, matrix.At(20, 9000))
	assert.InDelta(t, 0.5, *matrix.At(20, 9000), 1e-12)

	// 55 → 60, 20000 → 21000: one of one.
	require.NotNil(t, matrix.At(60, 21000))
	assert.InDelta(t, 1.0, *matrix.At(60, 21000), 1e-12)

	assert.Equal(t, 2, matrix.FilledCells())
	assert.Equal(t, 1, closed.calls, "one repository call per consultant set")
}

func TestMonthlyCalculator_ClampsAboveMaxBucket(t *testing.T) {
	closed := &fakeClosedRepo{records: map[int64][]model.ClosedOpportunityRecord{
		1: {{ClosedSuccessfully: true, AvgOpenOpportunities: 1000, GeneratedRevenueSoFar: 500000}},
	}}
	calc := NewMonthlyCalculator(closed, DefaultBuckets())

	matrices, err := calc.Call(context.Background(), month(2026, time.July), []int64{1}, nil)
	require.NoError(t, err)

	require.NotNil(t, matrices[1].At(140, 70000))
	assert.InDelta(t, 1.0, *matrices[1].At(140, 70000), 1e-12)
}

func TestMonthlyCalculator_NoOpportunitiesYieldsEmptyMatrix(t *testing.T) {
	closed := &fakeClosedRepo{records: map[int64][]model.ClosedOpportunityRecord{}}
	buckets := DefaultBuckets()
	calc := NewMonthlyCalculator(closed, buckets)

	matrices, err := calc.Call(context.Background(), month(2026, time.July), []int64{7}, nil)
	require.NoError(t, err)

	matrix := matrices[7]
	require.NotNil(t, matrix)
	assert.Equal(t, 0, matrix.FilledCells())
	assert.Len(t, matrix, len(buckets.OpenLeads), "full shape, no data")
}
