package demandcheck

import (
	"context"
	"time"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// ResponseStore is the persistence surface for questionnaire responses.
type ResponseStore interface {
	Mandate(ctx context.Context, id int64) (*model.Mandate, error)
	UpdateMandateBirthdate(ctx context.Context, id int64, birthdate time.Time) error
	UpdateMandateGender(ctx context.Context, id int64, gender model.Gender) error

	Answers(ctx context.Context, mandateID int64) (model.Answers, error)
	SaveAnswer(ctx context.Context, mandateID int64, answer model.QuestionAnswer) error
	CompleteResponse(ctx context.Context, mandateID int64) error

	DeleteProfileData(ctx context.Context, mandateID int64, questionIdent string) error
}

// EventPublisher emits questionnaire lifecycle events to downstream
// systems. Publishing is fire-and-forget from the core's point of view.
type EventPublisher interface {
	QuestionnaireCompleted(ctx context.Context, mandate *model.Mandate) error
}

// InstanceStore looks up the existing inquiries/products/opportunities of
// a mandate per category, used to suppress mandatory flags.
type InstanceStore interface {
	Answers(ctx context.Context, mandateID int64) (model.Answers, error)
	CategoryInstances(ctx context.Context, mandateID int64, categoryIdent string) (model.CategoryInstances, error)
}

// RecommendationStore is the persistence surface for the rule engine.
type RecommendationStore interface {
	Mandate(ctx context.Context, id int64) (*model.Mandate, error)
	Answers(ctx context.Context, mandateID int64) (model.Answers, error)

	Recommendations(ctx context.Context, mandateID int64) ([]model.Recommendation, error)
	UpsertRecommendation(ctx context.Context, rec *model.Recommendation) error
	DeleteRecommendation(ctx context.Context, mandateID int64, categoryIdent string) error

	CategoryByIdent(ctx context.Context, ident string) (*model.Category, error)
	ActiveOfferExists(ctx context.Context, mandateID int64, categoryIdent string) (bool, error)
	OccupationByNormalizedName(ctx context.Context, name string) (*model.Occupation, error)
}
