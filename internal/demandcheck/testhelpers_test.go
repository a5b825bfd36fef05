package demandcheck

import (
	"context"
	"time"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// fakeStore implements ResponseStore, InstanceStore and
// RecommendationStore in memory.
type fakeStore struct {
	mandate     *model.Mandate
	answers     model.Answers
	recs        map[string]model.Recommendation
	categories  map[string]*model.Category
	occupations map[string]*model.Occupation
	instances   map[string]model.CategoryInstances
	offers      map[string]bool

	profileDeleted []string
	completed      bool
	upserts        int
	deletes        int
	nextID         int64
}

func newFakeStore(mandate *model.Mandate) *fakeStore {
	return &fakeStore{
		mandate:     mandate,
		recs:        make(map[string]model.Recommendation),
		categories:  make(map[string]*model.Category),
		occupations: make(map[string]*model.Occupation),
		instances:   make(map[string]model.CategoryInstances),
		offers:      make(map[string]bool),
		nextID:      1,
	}
}

func (f *fakeStore) Mandate(context.Context, int64) (*model.Mandate, error) {
	return f.mandate, nil
}

func (f *fakeStore) UpdateMandateBirthdate(_ context.Context, _ int64, birthdate time.Time) error {
	f.mandate.Birthdate = &birthdate
	return nil
}

func (f *fakeStore) UpdateMandateGender(_ context.Context, _ int64, gender model.Gender) error {
	f.mandate.Gender = gender
	return nil
}

func (f *fakeStore) Answers(context.Context, int64) (model.Answers, error) {
	return f.answers, nil
}

func (f *fakeStore) SaveAnswer(_ context.Context, _ int64, answer model.QuestionAnswer) error {
	f.answers = f.answers.Merge(model.Answers{answer})
	return nil
}

func (f *fakeStore) CompleteResponse(context.Context, int64) error {
	f.completed = true
	return nil
}

func (f *fakeStore) DeleteProfileData(_ context.Context, _ int64, questionIdent string) error {
	f.profileDeleted = append(f.profileDeleted, questionIdent)
	kept := make(model.Answers, 0, len(f.answers))
	for _, a := range f.answers {
		if a.QuestionIdent != questionIdent {
			kept = append(kept, a)
		}
	}
	f.answers = kept
	return nil
}

func (f *fakeStore) Recommendations(context.Context, int64) ([]model.Recommendation, error) {
	out := make([]model.Recommendation, 0, len(f.recs))
	for _, rec := range f.recs {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeStore) UpsertRecommendation(_ context.Context, rec *model.Recommendation) error {
	if rec.ID == 0 {
		rec.ID = f.nextID
		f.nextID++
	}
	f.recs[rec.CategoryIdent] = *rec
	f.upserts++
	return nil
}

func (f *fakeStore) DeleteRecommendation(_ context.Context, _ int64, categoryIdent string) error {
	delete(f.recs, categoryIdent)
	f.deletes++
	return nil
}

func (f *fakeStore) CategoryByIdent(_ context.Context, ident string) (*model.Category, error) {
	return f.categories[ident], nil
}

func (f *fakeStore) ActiveOfferExists(_ context.Context, _ int64, categoryIdent string) (bool, error) {
	return f.offers[categoryIdent], nil
}

func (f *fakeStore) OccupationByNormalizedName(_ context.Context, name string) (*model.Occupation, error) {
	return f.occupations[name], nil
}

func (f *fakeStore) CategoryInstances(_ context.Context, _ int64, categoryIdent string) (model.CategoryInstances, error) {
	return f.instances[categoryIdent], nil
}

// fakeEvents records published questionnaire events.
type fakeEvents struct {
	published []int64
	err       error
}

func (f *fakeEvents) QuestionnaireCompleted(_ context.Context, mandate *model.Mandate) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, mandate.ID)
	return nil
}

func answersOf(pairs map[string]string) model.Answers {
	var as model.Answers
	for ident, text := range pairs {
		as = append(as, model.QuestionAnswer{QuestionIdent: ident, Text: text})
	}
	return as
}
