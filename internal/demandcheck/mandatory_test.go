package demandcheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clark-group/brokerage-cli/internal/model"
)

func TestMandatory_FlagsImpliedCategory(t *testing.T) {
	store := newFakeStore(mandateAged(30))
	store.answers = answersOf(map[string]string{model.QuestionVehicle: model.AnswerYes})

	recs := []model.Recommendation{{MandateID: 1, CategoryIdent: model.CategoryKFZ, Level: model.LevelRecommended}}
	err := NewMandatory(store, DefaultRuleSet().Mandatory).ApplyRules(context.Background(), 1, recs)
	require.NoError(t, err)

	assert.True(t, recs[0].IsMandatory)
}

func TestMandatory_ActiveInstanceSuppressesFlag(t *testing.T) {
	store := newFakeStore(mandateAged(30))
	store.answers = answersOf(map[string]string{model.QuestionVehicle: model.AnswerYes})
	store.instances[model.CategoryKFZ] = model.CategoryInstances{
		Inquiries: []model.Inquiry{{ID: 7, State: model.InquiryPending}},
	}

	recs := []model.Recommendation{{MandateID: 1, CategoryIdent: model.CategoryKFZ, Level: model.LevelRecommended}}
	mandatory := NewMandatory(store, DefaultRuleSet().Mandatory)
	require.NoError(t, mandatory.ApplyRules(context.Background(), 1, recs))
	assert.False(t, recs[0].IsMandatory, "active inquiry means the category is handled")

	// Remove the inquiry: flagging comes back on the next run.
	store.instances[model.CategoryKFZ] = model.CategoryInstances{}
	require.NoError(t, mandatory.ApplyRules(context.Background(), 1, recs))
	assert.True(t, recs[0].IsMandatory)
}

func TestMandatory_InactiveInstanceDoesNotSuppress(t *testing.T) {
	store := newFakeStore(mandateAged(30))
	store.answers = answersOf(map[string]string{model.QuestionPets: "Hund"})
	store.instances[model.CategoryTierhalter] = model.CategoryInstances{
		Products: []model.Product{{ID: 3, State: model.ProductTerminated}},
	}

	recs := []model.Recommendation{{MandateID: 1, CategoryIdent: model.CategoryTierhalter, Level: model.LevelRecommended}}
	err := NewMandatory(store, DefaultRuleSet().Mandatory).ApplyRules(context.Background(), 1, recs)
	require.NoError(t, err)

	assert.True(t, recs[0].IsMandatory, "terminated product prompts re-engagement")
}

func TestMandatory_ClearsStaleFlag(t *testing.T) {
	store := newFakeStore(mandateAged(30))
	// No implying answer at all.
	recs := []model.Recommendation{{MandateID: 1, CategoryIdent: model.CategoryKFZ, Level: model.LevelRecommended, IsMandatory: true}}
	err := NewMandatory(store, DefaultRuleSet().Mandatory).ApplyRules(context.Background(), 1, recs)
	require.NoError(t, err)

	assert.False(t, recs[0].IsMandatory)
}

func TestMandatory_UnruledCategoryNeverMandatory(t *testing.T) {
	store := newFakeStore(mandateAged(30))
	store.answers = answersOf(map[string]string{model.QuestionVehicle: model.AnswerYes})

	recs := []model.Recommendation{{MandateID: 1, CategoryIdent: model.CategoryHausrat, Level: model.LevelRecommended, IsMandatory: true}}
	err := NewMandatory(store, DefaultRuleSet().Mandatory).ApplyRules(context.Background(), 1, recs)
	require.NoError(t, err)

	assert.False(t, recs[0].IsMandatory)
}
