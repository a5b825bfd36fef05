package aoa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clark-group/brokerage-cli/internal/model"
	"github.com/clark-group/brokerage-cli/internal/performance"
	"github.com/clark-group/brokerage-cli/pkg/aoaranks"
)

const testCategory = "berufsunfaehigkeit"

func newTestAllocator(ranks aoaranks.Client, admins *fakeAdminsRepo, snaps *fakeSnapshotRepo, testPercentage int) *Allocator {
	return NewAllocator(ranks, admins, snaps, "v2", testCategory, CohortAoaGroup, testPercentage)
}

func buOpportunity(id int64) *model.Opportunity {
	return &model.Opportunity{ID: id, CategoryIdent: testCategory, State: model.OpportunityCreated}
}

func TestCohortFor_Deterministic(t *testing.T) {
	for _, id := range []int64{1, 42, 987654} {
		assert.Equal(t, CohortFor(id, 50), CohortFor(id, 50))
	}
	assert.Equal(t, CohortControlGroup, CohortFor(7, 0), "zero percent means no treatment")
	assert.Equal(t, CohortAoaGroup, CohortFor(7, 100), "full percent means all treatment")
}

func TestAllocator_WrongCategoryFallsToControl(t *testing.T) {
	ranks := &fakeRanksClient{}
	admins := &fakeAdminsRepo{admins: testRoster()}
	alloc := newTestAllocator(ranks, admins, &fakeSnapshotRepo{}, 100)

	opp := &model.Opportunity{ID: 1, CategoryIdent: "hausrat"}
	got, err := alloc.Call(context.Background(), opp)
	require.NoError(t, err)

	assert.Equal(t, CohortControlGroup, got.Cohort)
	assert.Len(t, got.AdminsForSelect, 3, "full roster")
	assert.Zero(t, ranks.calls, "no ranking request for ineligible opportunities")
}

func TestAllocator_AssignedConsultantFallsToControl(t *testing.T) {
	ranks := &fakeRanksClient{}
	admins := &fakeAdminsRepo{admins: testRoster()}
	alloc := newTestAllocator(ranks, admins, &fakeSnapshotRepo{}, 100)

	consultant := int64(2)
	opp := buOpportunity(1)
	opp.ConsultantID = &consultant

	got, err := alloc.Call(context.Background(), opp)
	require.NoError(t, err)

	assert.Equal(t, CohortControlGroup, got.Cohort)
	assert.Zero(t, ranks.calls)
}

func TestAllocator_ControlCohortSkipsRanking(t *testing.T) {
	ranks := &fakeRanksClient{}
	admins := &fakeAdminsRepo{admins: testRoster()}
	alloc := newTestAllocator(ranks, admins, &fakeSnapshotRepo{}, 0)

	got, err := alloc.Call(context.Background(), buOpportunity(1))
	require.NoError(t, err)

	assert.Equal(t, CohortControlGroup, got.Cohort)
	assert.Zero(t, ranks.calls)
}

func TestAllocator_TreatmentRanksAndFilters(t *testing.T) {
	ranks := &fakeRanksClient{result: &aoaranks.RankResult{
		StatusCode:  201,
		AoaRanks:    []int64{3, 2, 1},
		RequestUUID: "req-1",
	}}
	admins := &fakeAdminsRepo{
		admins:    testRoster(),
		permitted: map[int64]bool{1: true, 3: true}, // 2 lost the flag since ranking
	}
	matrix := model.NewPerformanceMatrix([]int{10}, []int{3000})
	matrix.Set(10, 3000, 0.5)
	snaps := &fakeSnapshotRepo{latest: map[int64]performance.PriorAverage{
		1: {Matrix: matrix, Count: 2},
		3: {Matrix: matrix, Count: 4},
	}}
	alloc := newTestAllocator(ranks, admins, snaps, 100)

	got, err := alloc.Call(context.Background(), buOpportunity(1))
	require.NoError(t, err)

	assert.Equal(t, CohortAoaGroup, got.Cohort)
	assert.Equal(t, []int64{3, 1}, got.AoaConsultantIDs, "rank order kept, unpermitted dropped")
	assert.Equal(t, "req-1", got.RequestUUID)
	require.Len(t, got.AdminsForSelect, 2)
	assert.Equal(t, "Cora", got.AdminsForSelect[0].Name)

	// Only consultants with a persisted matrix are sent.
	require.NotNil(t, ranks.lastReq)
	assert.Len(t, ranks.lastReq.Consultants, 2)
	assert.Equal(t, testCategory, ranks.lastReq.CategoryIdent)
}

func TestAllocator_UnsuccessfulRankingDegradesToControl(t *testing.T) {
	ranks := &fakeRanksClient{result: &aoaranks.RankResult{
		StatusCode:  201,
		RequestUUID: "req-2",
		Errors:      []string{"InternalError: model not trained"},
	}}
	admins := &fakeAdminsRepo{admins: testRoster()}
	alloc := newTestAllocator(ranks, admins, &fakeSnapshotRepo{}, 100)

	got, err := alloc.Call(context.Background(), buOpportunity(1))
	require.NoError(t, err)

	assert.Equal(t, CohortControlGroup, got.Cohort)
	assert.Len(t, got.AdminsForSelect, 3, "full roster on degradation")
	assert.Equal(t, "req-2", got.RequestUUID, "request id survives the failure")
	assert.NotEmpty(t, got.Errors)
}

func TestAllocator_TransportErrorDegradesToControl(t *testing.T) {
	ranks := &fakeRanksClient{err: errors.New("connection refused")}
	admins := &fakeAdminsRepo{admins: testRoster()}
	alloc := newTestAllocator(ranks, admins, &fakeSnapshotRepo{}, 100)

	got, err := alloc.Call(context.Background(), buOpportunity(1))
	require.NoError(t, err, "the allocation flow never hard-fails on the ranking service")

	assert.Equal(t, CohortControlGroup, got.Cohort)
	assert.Len(t, got.AdminsForSelect, 3)
	assert.NotEmpty(t, got.Errors)
}

func TestAllocator_EmptyFilteredRanksDegradesToControl(t *testing.T) {
	ranks := &fakeRanksClient{result: &aoaranks.RankResult{
		StatusCode: 201,
		AoaRanks:   []int64{2},
	}}
	admins := &fakeAdminsRepo{admins: testRoster(), permitted: map[int64]bool{}}
	alloc := newTestAllocator(ranks, admins, &fakeSnapshotRepo{}, 100)

	got, err := alloc.Call(context.Background(), buOpportunity(1))
	require.NoError(t, err)

	assert.Equal(t, CohortControlGroup, got.Cohort)
	assert.Len(t, got.AdminsForSelect, 3)
}
