package aoa

import (
	"context"
	"time"

	"github.com/clark-group/brokerage-cli/internal/model"
	"github.com/clark-group/brokerage-cli/internal/performance"
	"github.com/clark-group/brokerage-cli/pkg/aoaranks"
)

type fakeRanksClient struct {
	result  *aoaranks.RankResult
	err     error
	calls   int
	lastReq *aoaranks.RankRequest
}

func (f *fakeRanksClient) RequestRanks(_ context.Context, req *aoaranks.RankRequest, hooks ...aoaranks.Hook) (*aoaranks.RankResult, error) {
	f.calls++
	f.lastReq = req
	result := f.result
	if result == nil {
		result = &aoaranks.RankResult{}
	}
	for _, hook := range hooks {
		hook(result)
	}
	return result, f.err
}

type fakeAdminsRepo struct {
	admins    []model.Admin
	permitted map[int64]bool
}

func (f *fakeAdminsRepo) SalesConsultationPermitted(_ context.Context, adminID int64) (bool, error) {
	return f.permitted[adminID], nil
}

func (f *fakeAdminsRepo) ActiveSalesConsultants(context.Context) ([]model.Admin, error) {
	return f.admins, nil
}

type fakeSnapshotRepo struct {
	latest map[int64]performance.PriorAverage
	rows   map[int64]*model.MonthlyAdminPerformance
	saved  []*model.MonthlyAdminPerformance
}

func (f *fakeSnapshotRepo) LatestPerformanceMatrixFor(_ context.Context, _ string, _ []int64) (map[int64]performance.PriorAverage, error) {
	return f.latest, nil
}

func (f *fakeSnapshotRepo) SaveSnapshot(_ context.Context, snap *model.MonthlyAdminPerformance) error {
	cp := *snap
	f.saved = append(f.saved, &cp)
	return nil
}

func (f *fakeSnapshotRepo) SnapshotFor(_ context.Context, consultantID int64, _ time.Time, _ string) (*model.MonthlyAdminPerformance, error) {
	return f.rows[consultantID], nil
}

func (f *fakeSnapshotRepo) LastSnapshotDate(_ context.Context, consultantID int64, _ string) (*time.Time, error) {
	row, ok := f.rows[consultantID]
	if !ok {
		return nil, nil
	}
	d := row.CalculationDate
	return &d, nil
}

func (f *fakeSnapshotRepo) DeleteSnapshotsSince(context.Context, int64, time.Time, string) error {
	return nil
}

func testRoster() []model.Admin {
	return []model.Admin{
		{ID: 1, Name: "Anna", Active: true, SalesConsultation: true},
		{ID: 2, Name: "Ben", Active: true, SalesConsultation: true},
		{ID: 3, Name: "Cora", Active: true, SalesConsultation: true},
	}
}
