package aoa

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clark-group/brokerage-cli/internal/model"
	"github.com/clark-group/brokerage-cli/internal/performance"
	"github.com/clark-group/brokerage-cli/pkg/aoaranks"
)

// Cohort names of the allocation A/B split.
const (
	CohortAoaGroup     = "aoa_group"
	CohortControlGroup = "control_group"
)

// CohortFor deterministically assigns an opportunity to a cohort: the
// FNV-1a hash of its ID modulo 100 lands in the treatment group when
// below testPercentage. The same opportunity always gets the same
// cohort.
func CohortFor(opportunityID int64, testPercentage int) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(opportunityID, 10)))
	if int(h.Sum32()%100) < testPercentage {
		return CohortAoaGroup
	}
	return CohortControlGroup
}

// Allocation is the consultant-selection outcome for one opportunity.
type Allocation struct {
	AdminsForSelect  []model.Admin `json:"admins_for_select"`
	Cohort           string        `json:"cohort"`
	AoaConsultantIDs []int64       `json:"aoa_consultant_ids"`
	RequestUUID      string        `json:"request_uuid"`
	Errors           []string      `json:"aoa_errors"`
}

// Allocator decides which consultants an opportunity can be assigned to.
// Opportunities in the configured allocation category with no consultant
// yet may be ranked by the AOA service; everything else, and every
// failure path, falls through to the control group with the full active
// roster.
type Allocator struct {
	ranks     aoaranks.Client
	admins    performance.AdminsRepo
	snapshots performance.SnapshotRepo

	algoVersion    string
	category       string
	testGroup      string
	testPercentage int
}

// NewAllocator creates an Allocator. testGroup names the cohort that
// receives the ranked treatment (normally "aoa_group").
func NewAllocator(ranks aoaranks.Client, admins performance.AdminsRepo, snapshots performance.SnapshotRepo, algoVersion, category, testGroup string, testPercentage int) *Allocator {
	return &Allocator{
		ranks:          ranks,
		admins:         admins,
		snapshots:      snapshots,
		algoVersion:    algoVersion,
		category:       category,
		testGroup:      testGroup,
		testPercentage: testPercentage,
	}
}

// Call builds the allocation data for the opportunity.
func (a *Allocator) Call(ctx context.Context, opp *model.Opportunity) (*Allocation, error) {
	roster, err := a.admins.ActiveSalesConsultants(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "aoa: load consultants")
	}

	control := &Allocation{AdminsForSelect: roster, Cohort: CohortControlGroup}

	eligible := opp.CategoryIdent == a.category && opp.ConsultantID == nil
	if !eligible || CohortFor(opp.ID, a.testPercentage) != a.testGroup {
		return control, nil
	}

	result, err := a.requestRanks(ctx, roster)
	if err != nil {
		// The allocation flow never hard-fails on the ranking service.
		zap.L().Warn("aoa: rank request failed",
			zap.Int64("opportunity_id", opp.ID),
			zap.Error(err),
		)
		control.Errors = append(control.Errors, "rank request failed")
		return control, nil
	}

	control.RequestUUID = result.RequestUUID
	if !result.Successful() {
		control.Errors = append(control.Errors, result.Errors...)
		return control, nil
	}

	ranked, err := a.filterPermitted(ctx, result.AoaRanks, roster)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return control, nil
	}

	ids := make([]int64, len(ranked))
	for i, admin := range ranked {
		ids[i] = admin.ID
	}
	return &Allocation{
		AdminsForSelect:  ranked,
		Cohort:           CohortAoaGroup,
		AoaConsultantIDs: ids,
		RequestUUID:      result.RequestUUID,
	}, nil
}

func (a *Allocator) requestRanks(ctx context.Context, roster []model.Admin) (*aoaranks.RankResult, error) {
	ids := make([]int64, len(roster))
	for i, admin := range roster {
		ids[i] = admin.ID
	}
	priors, err := a.snapshots.LatestPerformanceMatrixFor(ctx, a.algoVersion, ids)
	if err != nil {
		return nil, eris.Wrap(err, "aoa: load performance matrices")
	}

	req := &aoaranks.RankRequest{CategoryIdent: a.category}
	for _, admin := range roster {
		prior, ok := priors[admin.ID]
		if !ok || prior.Matrix == nil {
			continue
		}
		req.Consultants = append(req.Consultants, aoaranks.ConsultantMatrix{
			ConsultantID:      admin.ID,
			PerformanceMatrix: prior.Matrix,
		})
	}

	logRanks := func(r *aoaranks.RankResult) {
		zap.L().Info("aoa: rank request completed",
			zap.Int("status", r.StatusCode),
			zap.String("request_uuid", r.RequestUUID),
			zap.Int("rank_count", len(r.AoaRanks)),
		)
	}
	return a.ranks.RequestRanks(ctx, req, logRanks)
}

// filterPermitted keeps the ranked IDs that still hold the
// sales_consultation flag, preserving rank order.
func (a *Allocator) filterPermitted(ctx context.Context, rankedIDs []int64, roster []model.Admin) ([]model.Admin, error) {
	byID := make(map[int64]model.Admin, len(roster))
	for _, admin := range roster {
		byID[admin.ID] = admin
	}

	var out []model.Admin
	for _, id := range rankedIDs {
		admin, ok := byID[id]
		if !ok {
			continue
		}
		permitted, err := a.admins.SalesConsultationPermitted(ctx, id)
		if err != nil {
			return nil, eris.Wrap(err, "aoa: check sales consultation")
		}
		if permitted {
			out = append(out, admin)
		}
	}
	return out, nil
}
