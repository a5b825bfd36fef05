package demandcheck

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// Mandatory flags the subset of recommendations that must be addressed
// now, based on the implying questionnaire answers and the mandate's
// existing category instances.
type Mandatory struct {
	store InstanceStore
	rules []MandatoryRule
}

// NewMandatory creates the mandatory-flagging step.
func NewMandatory(store InstanceStore, rules []MandatoryRule) *Mandatory {
	return &Mandatory{store: store, rules: rules}
}

// ApplyRules mutates IsMandatory on the given recommendations in place.
// A category is mandatory only if an implying answer is present AND the
// mandate has no active inquiry/product/opportunity of that category.
// Inactive instances do not suppress the flag: they prompt re-engagement.
func (m *Mandatory) ApplyRules(ctx context.Context, mandateID int64, recs []model.Recommendation) error {
	answers, err := m.store.Answers(ctx, mandateID)
	if err != nil {
		return eris.Wrap(err, "demandcheck: load answers")
	}

	for i := range recs {
		rule, ok := m.ruleFor(recs[i].CategoryIdent)
		if !ok || !rule.Matches(answers) {
			recs[i].IsMandatory = false
			continue
		}

		instances, err := m.store.CategoryInstances(ctx, mandateID, recs[i].CategoryIdent)
		if err != nil {
			return eris.Wrapf(err, "demandcheck: load %s instances", recs[i].CategoryIdent)
		}

		// An active instance means the category is already being handled.
		recs[i].IsMandatory = !instances.HasActive()
	}
	return nil
}

func (m *Mandatory) ruleFor(categoryIdent string) (MandatoryRule, bool) {
	for _, r := range m.rules {
		if r.CategoryIdent == categoryIdent {
			return r, true
		}
	}
	return MandatoryRule{}, false
}
