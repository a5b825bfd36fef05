package demandcheck

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// ResponseBuilder orchestrates questionnaire answer persistence, mandate
// field sync and response finalization.
type ResponseBuilder struct {
	store         ResponseStore
	events        EventPublisher
	validator     *Validator
	eventsEnabled bool
}

// NewResponseBuilder creates a ResponseBuilder. events may be nil; it is
// only used when eventsEnabled is set.
func NewResponseBuilder(store ResponseStore, validator *Validator, events EventPublisher, eventsEnabled bool) *ResponseBuilder {
	return &ResponseBuilder{
		store:         store,
		events:        events,
		validator:     validator,
		eventsEnabled: eventsEnabled,
	}
}

// AnswerQuestionnaire validates and persists a batch of answers for the
// mandate. Valid answers are stored even when others in the batch fail;
// the failures come back as a single *ValidationError so the caller can
// re-prompt exactly those fields.
//
// Side effects: demand_birthdate and demand_gender answers are also
// written onto the mandate; a blank answer to an optional question deletes
// the corresponding profile-data record (the "I don't want to answer"
// retraction).
func (b *ResponseBuilder) AnswerQuestionnaire(ctx context.Context, mandateID int64, answers []model.QuestionAnswer) error {
	prior, err := b.store.Answers(ctx, mandateID)
	if err != nil {
		return eris.Wrap(err, "demandcheck: load prior answers")
	}

	vErr := &ValidationError{}
	for _, answer := range answers {
		if !b.validator.Valid(answer.QuestionIdent, answer.Text, prior) {
			vErr.Add(answer.QuestionIdent, CodeInvalidAnswer)
			continue
		}

		if answer.Blank() {
			// Retracting an optional answer removes the stale profile data.
			if err := b.store.DeleteProfileData(ctx, mandateID, answer.QuestionIdent); err != nil {
				return eris.Wrapf(err, "demandcheck: delete profile data %s", answer.QuestionIdent)
			}
			prior = prior.Merge(model.Answers{answer})
			continue
		}

		if err := b.store.SaveAnswer(ctx, mandateID, answer); err != nil {
			return eris.Wrapf(err, "demandcheck: save answer %s", answer.QuestionIdent)
		}
		prior = prior.Merge(model.Answers{answer})

		if err := b.syncMandateField(ctx, mandateID, answer); err != nil {
			return err
		}
	}

	if !vErr.Empty() {
		return vErr
	}
	return nil
}

// syncMandateField mirrors birthdate/gender answers onto the mandate.
func (b *ResponseBuilder) syncMandateField(ctx context.Context, mandateID int64, answer model.QuestionAnswer) error {
	switch answer.QuestionIdent {
	case model.QuestionBirthdate:
		birthdate, ok := ParseBirthdate(answer.Text)
		if !ok {
			// The validator already accepted it; treat a parse miss here
			// as an internal inconsistency.
			return eris.Errorf("demandcheck: birthdate %q passed validation but did not parse", answer.Text)
		}
		if err := b.store.UpdateMandateBirthdate(ctx, mandateID, birthdate); err != nil {
			return eris.Wrap(err, "demandcheck: sync mandate birthdate")
		}
	case model.QuestionGender:
		gender := model.NormalizeGender(answer.Text)
		if gender == "" {
			return eris.Errorf("demandcheck: gender %q passed validation but did not normalize", answer.Text)
		}
		if err := b.store.UpdateMandateGender(ctx, mandateID, gender); err != nil {
			return eris.Wrap(err, "demandcheck: sync mandate gender")
		}
	}
	return nil
}

// Finalize marks the questionnaire response completed. It fails with a
// ValidationError when the mandate still has no birthdate. When the
// mandate is accepted and events are enabled, a completion event is
// published fire-and-forget: a publish failure is logged, not returned.
func (b *ResponseBuilder) Finalize(ctx context.Context, mandateID int64) error {
	mandate, err := b.store.Mandate(ctx, mandateID)
	if err != nil {
		return eris.Wrap(err, "demandcheck: load mandate")
	}
	if mandate.Birthdate == nil {
		return NewValidationError(model.QuestionBirthdate, CodeBirthdateEmpty)
	}

	if err := b.store.CompleteResponse(ctx, mandateID); err != nil {
		return eris.Wrap(err, "demandcheck: complete response")
	}

	if mandate.State == model.MandateAccepted && b.eventsEnabled && b.events != nil {
		if err := b.events.QuestionnaireCompleted(ctx, mandate); err != nil {
			zap.L().Warn("demandcheck: completion event publish failed",
				zap.Int64("mandate_id", mandateID),
				zap.Error(err),
			)
		}
	}

	zap.L().Info("demandcheck: response finalized", zap.Int64("mandate_id", mandateID))
	return nil
}
