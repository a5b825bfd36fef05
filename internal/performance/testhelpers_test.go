package performance

import (
	"context"
	"time"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// fakeClosedRepo serves canned closed-opportunity records, optionally
// keyed by month, and counts calls.
type fakeClosedRepo struct {
	records map[int64][]model.ClosedOpportunityRecord
	byMonth map[time.Time]map[int64][]model.ClosedOpportunityRecord
	fail    func(month time.Time, consultantIDs []int64) error
	calls   int
}

func (f *fakeClosedRepo) ClosedOpportunitiesFor(_ context.Context, month time.Time, consultantIDs, _ []int64) (map[int64][]model.ClosedOpportunityRecord, error) {
	f.calls++
	if f.fail != nil {
		if err := f.fail(month, consultantIDs); err != nil {
			return nil, err
		}
	}
	if f.byMonth != nil {
		return f.byMonth[month], nil
	}
	return f.records, nil
}

type fakeOpenRepo struct {
	counts map[int64]model.OpenOpportunities
	calls  int
}

func (f *fakeOpenRepo) OpenOpportunitiesFor(_ context.Context, _, _ []int64) (map[int64]model.OpenOpportunities, error) {
	f.calls++
	return f.counts, nil
}

// fakeSnapshotRepo stores snapshots in memory with insert/update
// semantics on the ID field.
type fakeSnapshotRepo struct {
	rows   []*model.MonthlyAdminPerformance
	latest map[int64]PriorAverage
	nextID int64
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{latest: make(map[int64]PriorAverage), nextID: 1}
}

func (f *fakeSnapshotRepo) LatestPerformanceMatrixFor(_ context.Context, _ string, _ []int64) (map[int64]PriorAverage, error) {
	return f.latest, nil
}

func (f *fakeSnapshotRepo) SaveSnapshot(_ context.Context, snap *model.MonthlyAdminPerformance) error {
	if snap.ID == 0 {
		snap.ID = f.nextID
		f.nextID++
		cp := *snap
		f.rows = append(f.rows, &cp)
		return nil
	}
	for i, row := range f.rows {
		if row.ID == snap.ID {
			cp := *snap
			f.rows[i] = &cp
			return nil
		}
	}
	cp := *snap
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeSnapshotRepo) SnapshotFor(_ context.Context, consultantID int64, month time.Time, algoVersion string) (*model.MonthlyAdminPerformance, error) {
	for _, row := range f.rows {
		if row.ConsultantID == consultantID && row.CalculationDate.Equal(month) && row.AlgoVersion == algoVersion {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakeSnapshotRepo) LastSnapshotDate(_ context.Context, consultantID int64, algoVersion string) (*time.Time, error) {
	var last *time.Time
	for _, row := range f.rows {
		if row.ConsultantID != consultantID || row.AlgoVersion != algoVersion {
			continue
		}
		if last == nil || row.CalculationDate.After(*last) {
			d := row.CalculationDate
			last = &d
		}
	}
	return last, nil
}

func (f *fakeSnapshotRepo) DeleteSnapshotsSince(_ context.Context, consultantID int64, since time.Time, algoVersion string) error {
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.ConsultantID == consultantID && row.AlgoVersion == algoVersion && !row.CalculationDate.Before(since) {
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return nil
}

func (f *fakeSnapshotRepo) rowsFor(consultantID int64) []*model.MonthlyAdminPerformance {
	var out []*model.MonthlyAdminPerformance
	for _, row := range f.rows {
		if row.ConsultantID == consultantID {
			out = append(out, row)
		}
	}
	return out
}

type fakeAdminsRepo struct {
	admins    []model.Admin
	permitted map[int64]bool
	permCalls int
}

func (f *fakeAdminsRepo) SalesConsultationPermitted(_ context.Context, adminID int64) (bool, error) {
	f.permCalls++
	return f.permitted[adminID], nil
}

func (f *fakeAdminsRepo) ActiveSalesConsultants(context.Context) ([]model.Admin, error) {
	return f.admins, nil
}

type fakeClassesRepo struct {
	levels map[int64]map[string]string
}

func (f *fakeClassesRepo) PerformanceClassifications(_ context.Context, _ []int64) (map[int64]map[string]string, error) {
	return f.levels, nil
}

type fakeAoaCatsRepo struct {
	ids []int64
}

func (f *fakeAoaCatsRepo) CategoriesUsedInAoa(context.Context) ([]int64, error) {
	return f.ids, nil
}

func ptr(v float64) *float64 { return &v }

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
