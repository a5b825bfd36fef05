package performance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clark-group/brokerage-cli/internal/model"
)

func newTestPopulator(closed *fakeClosedRepo, open *fakeOpenRepo, snaps *fakeSnapshotRepo, admins *fakeAdminsRepo, classes *fakeClassesRepo) *Populator {
	buckets := DefaultBuckets()
	monthly := NewMonthlyCalculator(closed, buckets)
	rolling := NewRollingCalculator(monthly, buckets, 12)
	return NewPopulator(
		rolling,
		monthly,
		NewRevenueCalculator(admins, closed),
		NewOpenLeadsCalculator(admins, open),
		snaps,
		classes,
		admins,
		&fakeAoaCatsRepo{ids: []int64{100}},
		"v2",
		12,
	)
}

func TestPopulator_FreshMonthInsertsRow(t *testing.T) {
	july := month(2026, time.July)
	closed := &fakeClosedRepo{byMonth: map[time.Time]map[int64][]model.ClosedOpportunityRecord{
		july: {1: {
			{ClosedSuccessfully: true, AvgOpenOpportunities: 12, GeneratedRevenueSoFar: 4000},
		}},
	}}
	open := &fakeOpenRepo{counts: map[int64]model.OpenOpportunities{
		1: {Count: 5, CategoryCounts: map[string]int{"berufsunfaehigkeit": 5}},
	}}
	snaps := newFakeSnapshotRepo()
	admins := &fakeAdminsRepo{permitted: map[int64]bool{1: true}}
	classes := &fakeClassesRepo{levels: map[int64]map[string]string{1: {"berufsunfaehigkeit": "high"}}}

	rows, err := newTestPopulator(closed, open, snaps, admins, classes).Call(context.Background(), july, []int64{1}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	snap := rows[0]
	assert.NotZero(t, snap.ID)
	assert.Equal(t, july, snap.CalculationDate)
	assert.InDelta(t, 4000, snap.Revenue, 1e-9)
	assert.Equal(t, 5, snap.OpenOpportunities)
	assert.Equal(t, "high", snap.PerformanceLevel["berufsunfaehigkeit"])
	assert.Equal(t, "v2", snap.AlgoVersion)
	require.NotNil(t, snap.PerformanceMatrix.At(20, 9000))
	assert.InDelta(t, 1.0, *snap.PerformanceMatrix.At(20, 9000), 1e-12)
}

func TestPopulator_MidMonthUpdatesExistingRow(t *testing.T) {
	july := month(2026, time.July)
	closed := &fakeClosedRepo{byMonth: map[time.Time]map[int64][]model.ClosedOpportunityRecord{
		july: {1: {
			{ClosedSuccessfully: true, AvgOpenOpportunities: 12, GeneratedRevenueSoFar: 4000},
			{ClosedSuccessfully: true, AvgOpenOpportunities: 12, GeneratedRevenueSoFar: 2500},
		}},
	}}
	open := &fakeOpenRepo{counts: map[int64]model.OpenOpportunities{1: {Count: 3}}}
	snaps := newFakeSnapshotRepo()
	snaps.rows = append(snaps.rows, &model.MonthlyAdminPerformance{
		ID: 41, ConsultantID: 1, CalculationDate: july, Revenue: 4000, AlgoVersion: "v2",
	})
	snaps.nextID = 42
	admins := &fakeAdminsRepo{permitted: map[int64]bool{1: true}}
	classes := &fakeClassesRepo{}

	midJuly := july.AddDate(0, 0, 14)
	rows, err := newTestPopulator(closed, open, snaps, admins, classes).Call(context.Background(), midJuly, []int64{1}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, int64(41), rows[0].ID, "mid-month run keeps the month's row")
	assert.InDelta(t, 6500, rows[0].Revenue, 1e-9)
	assert.Len(t, snaps.rowsFor(1), 1, "no duplicate row for the month")
}

func TestPopulator_MidMonthWithoutRowInserts(t *testing.T) {
	july := month(2026, time.July)
	closed := &fakeClosedRepo{}
	open := &fakeOpenRepo{}
	snaps := newFakeSnapshotRepo()
	admins := &fakeAdminsRepo{permitted: map[int64]bool{1: true}}

	midJuly := july.AddDate(0, 0, 9)
	rows, err := newTestPopulator(closed, open, snaps, admins, &fakeClassesRepo{}).Call(context.Background(), midJuly, []int64{1}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.NotZero(t, rows[0].ID)
	assert.Equal(t, july, rows[0].CalculationDate)
	assert.Len(t, snaps.rowsFor(1), 1)
}

func TestPopulator_RollsAgainstPersistedAverage(t *testing.T) {
	july := month(2026, time.July)
	buckets := DefaultBuckets()

	closed := &fakeClosedRepo{byMonth: map[time.Time]map[int64][]model.ClosedOpportunityRecord{
		july: {1: {
			{ClosedSuccessfully: false, AvgOpenOpportunities: 12, GeneratedRevenueSoFar: 4000},
			{ClosedSuccessfully: true, AvgOpenOpportunities: 12, GeneratedRevenueSoFar: 4000},
		}},
	}}
	snaps := newFakeSnapshotRepo()
	prior := model.NewPerformanceMatrix(buckets.OpenLeads, buckets.Revenue)
	prior.Set(20, 9000, 0.4)
	snaps.latest[1] = PriorAverage{Matrix: prior, Count: 3}

	admins := &fakeAdminsRepo{permitted: map[int64]bool{1: true}}
	rows, err := newTestPopulator(closed, &fakeOpenRepo{}, snaps, admins, &fakeClassesRepo{}).Call(context.Background(), july, []int64{1}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	cell := rows[0].PerformanceMatrix.At(20, 9000)
	require.NotNil(t, cell)
	assert.InDelta(t, 0.4+(0.5-0.4)/3, *cell, 1e-12)
}
