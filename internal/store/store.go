// Package store implements the persistence layer behind the demand-check
// and performance engines, with a Postgres backend for production and a
// SQLite backend for local and test use.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/clark-group/brokerage-cli/internal/model"
	"github.com/clark-group/brokerage-cli/internal/performance"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = eris.New("store: not found")

// Store is the full persistence surface. The engine packages each
// consume the narrow slice they need; PostgresStore and SQLiteStore
// implement the whole of it.
type Store interface {
	// Mandates and questionnaire
	Mandate(ctx context.Context, id int64) (*model.Mandate, error)
	UpdateMandateBirthdate(ctx context.Context, id int64, birthdate time.Time) error
	UpdateMandateGender(ctx context.Context, id int64, gender model.Gender) error
	Answers(ctx context.Context, mandateID int64) (model.Answers, error)
	SaveAnswer(ctx context.Context, mandateID int64, answer model.QuestionAnswer) error
	DeleteProfileData(ctx context.Context, mandateID int64, questionIdent string) error
	CompleteResponse(ctx context.Context, mandateID int64) error

	// Recommendations
	Recommendations(ctx context.Context, mandateID int64) ([]model.Recommendation, error)
	UpsertRecommendation(ctx context.Context, rec *model.Recommendation) error
	DeleteRecommendation(ctx context.Context, mandateID int64, categoryIdent string) error

	// Catalogue and category instances
	CategoryByIdent(ctx context.Context, ident string) (*model.Category, error)
	CategoryInstances(ctx context.Context, mandateID int64, categoryIdent string) (model.CategoryInstances, error)
	ActiveOfferExists(ctx context.Context, mandateID int64, categoryIdent string) (bool, error)
	OccupationByNormalizedName(ctx context.Context, name string) (*model.Occupation, error)
	UpsertOccupations(ctx context.Context, occupations []model.Occupation) (int64, error)

	// Opportunities
	Opportunity(ctx context.Context, id int64) (*model.Opportunity, error)
	AssignConsultant(ctx context.Context, opportunityID, consultantID int64) error

	// Performance and allocation
	ClosedOpportunitiesFor(ctx context.Context, month time.Time, consultantIDs, categoryIDs []int64) (map[int64][]model.ClosedOpportunityRecord, error)
	OpenOpportunitiesFor(ctx context.Context, consultantIDs, categoryIDs []int64) (map[int64]model.OpenOpportunities, error)
	LatestPerformanceMatrixFor(ctx context.Context, algoVersion string, consultantIDs []int64) (map[int64]performance.PriorAverage, error)
	SaveSnapshot(ctx context.Context, snap *model.MonthlyAdminPerformance) error
	SnapshotFor(ctx context.Context, consultantID int64, month time.Time, algoVersion string) (*model.MonthlyAdminPerformance, error)
	LastSnapshotDate(ctx context.Context, consultantID int64, algoVersion string) (*time.Time, error)
	DeleteSnapshotsSince(ctx context.Context, consultantID int64, since time.Time, algoVersion string) error
	Snapshots(ctx context.Context, algoVersion string) ([]model.MonthlyAdminPerformance, error)
	SalesConsultationPermitted(ctx context.Context, adminID int64) (bool, error)
	ActiveSalesConsultants(ctx context.Context) ([]model.Admin, error)
	PerformanceClassifications(ctx context.Context, consultantIDs []int64) (map[int64]map[string]string, error)
	CategoriesUsedInAoa(ctx context.Context) ([]int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
