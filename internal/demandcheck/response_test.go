package demandcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clark-group/brokerage-cli/internal/model"
)

func newTestResponseBuilder(store *fakeStore, events EventPublisher, enabled bool) *ResponseBuilder {
	return NewResponseBuilder(store, newTestValidator(), events, enabled)
}

func TestAnswerQuestionnaire_PersistsValidAnswers(t *testing.T) {
	store := newFakeStore(&model.Mandate{ID: 1, State: model.MandateAccepted})
	rb := newTestResponseBuilder(store, nil, false)

	err := rb.AnswerQuestionnaire(context.Background(), 1, []model.QuestionAnswer{
		{QuestionIdent: model.QuestionLivingPlace, Text: "Miete"},
		{QuestionIdent: model.QuestionVehicle, Text: model.AnswerYes},
	})
	require.NoError(t, err)

	assert.Equal(t, "Miete", store.answers.GetNonBlank(model.QuestionLivingPlace))
	assert.Equal(t, model.AnswerYes, store.answers.GetNonBlank(model.QuestionVehicle))
}

func TestAnswerQuestionnaire_AggregatesFailuresKeepsValid(t *testing.T) {
	store := newFakeStore(&model.Mandate{ID: 1, State: model.MandateAccepted})
	rb := newTestResponseBuilder(store, nil, false)

	err := rb.AnswerQuestionnaire(context.Background(), 1, []model.QuestionAnswer{
		{QuestionIdent: model.QuestionLivingPlace, Text: "Wohnwagen"},
		{QuestionIdent: model.QuestionVehicle, Text: model.AnswerYes},
		{QuestionIdent: model.QuestionBirthdate, Text: "31.02.1990"},
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{
		model.QuestionLivingPlace: CodeInvalidAnswer,
		model.QuestionBirthdate:   CodeInvalidAnswer,
	}, vErr.Fields)

	// The valid answer in the same batch is stored regardless.
	assert.Equal(t, model.AnswerYes, store.answers.GetNonBlank(model.QuestionVehicle))
	assert.Empty(t, store.answers.GetNonBlank(model.QuestionLivingPlace))
}

func TestAnswerQuestionnaire_SyncsMandateFields(t *testing.T) {
	store := newFakeStore(&model.Mandate{ID: 1, State: model.MandateAccepted})
	rb := newTestResponseBuilder(store, nil, false)

	err := rb.AnswerQuestionnaire(context.Background(), 1, []model.QuestionAnswer{
		{QuestionIdent: model.QuestionBirthdate, Text: "24.12.1988"},
		{QuestionIdent: model.QuestionGender, Text: "Frau"},
	})
	require.NoError(t, err)

	require.NotNil(t, store.mandate.Birthdate)
	assert.Equal(t, 1988, store.mandate.Birthdate.Year())
	assert.Equal(t, model.GenderFemale, store.mandate.Gender)
}

func TestAnswerQuestionnaire_BlankAnswerDeletesProfileData(t *testing.T) {
	store := newFakeStore(&model.Mandate{ID: 1, State: model.MandateAccepted})
	store.answers = answersOf(map[string]string{model.QuestionPets: "Hund"})
	rb := newTestResponseBuilder(store, nil, false)

	err := rb.AnswerQuestionnaire(context.Background(), 1, []model.QuestionAnswer{
		{QuestionIdent: model.QuestionPets, Text: ""},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{model.QuestionPets}, store.profileDeleted)
	assert.Empty(t, store.answers.GetNonBlank(model.QuestionPets))
}

func TestFinalize_RequiresBirthdate(t *testing.T) {
	store := newFakeStore(&model.Mandate{ID: 1, State: model.MandateAccepted})
	rb := newTestResponseBuilder(store, nil, false)

	err := rb.Finalize(context.Background(), 1)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{model.QuestionBirthdate: CodeBirthdateEmpty}, vErr.Fields)
	assert.False(t, store.completed)
}

func TestFinalize_CompletesAndPublishes(t *testing.T) {
	store := newFakeStore(mandateAged(30))
	events := &fakeEvents{}
	rb := newTestResponseBuilder(store, events, true)

	require.NoError(t, rb.Finalize(context.Background(), 1))

	assert.True(t, store.completed)
	assert.Equal(t, []int64{1}, events.published)
}

func TestFinalize_SkipsEventForUnacceptedMandate(t *testing.T) {
	store := newFakeStore(mandateAged(30))
	store.mandate.State = model.MandateCreated
	events := &fakeEvents{}
	rb := newTestResponseBuilder(store, events, true)

	require.NoError(t, rb.Finalize(context.Background(), 1))

	assert.True(t, store.completed)
	assert.Empty(t, events.published)
}

func TestFinalize_SkipsEventWhenDisabled(t *testing.T) {
	store := newFakeStore(mandateAged(30))
	events := &fakeEvents{}
	rb := newTestResponseBuilder(store, events, false)

	require.NoError(t, rb.Finalize(context.Background(), 1))

	assert.Empty(t, events.published)
}

func TestFinalize_PublishFailureIsNotFatal(t *testing.T) {
	store := newFakeStore(mandateAged(30))
	events := &fakeEvents{err: errors.New("platform event rejected")}
	rb := newTestResponseBuilder(store, events, true)

	require.NoError(t, rb.Finalize(context.Background(), 1))
	assert.True(t, store.completed)
}
