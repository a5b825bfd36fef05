package demandcheck

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// Builder is the recommendation rule engine: it maps the current
// questionnaire answers onto category recommendations and reconciles them
// with the persisted set.
type Builder struct {
	store     RecommendationStore
	mandatory *Mandatory
	rules     *RuleSet
	now       func() time.Time
}

// NewBuilder creates a Builder. mandatory may be nil when the
// mandatory-flagging step is not wanted (e.g. dry runs).
func NewBuilder(store RecommendationStore, mandatory *Mandatory, rules *RuleSet) *Builder {
	return &Builder{store: store, mandatory: mandatory, rules: rules, now: time.Now}
}

// WithClock fixes the clock, for deterministic age gating in tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// ApplyRules evaluates the rule tables against the mandate's current
// answers and upserts/deletes recommendations accordingly. The returned
// set is the mandate's full recommendation list after reconciliation.
// Calling it twice with unchanged answers yields the same set.
func (b *Builder) ApplyRules(ctx context.Context, mandateID int64) ([]model.Recommendation, error) {
	mandate, err := b.store.Mandate(ctx, mandateID)
	if err != nil {
		return nil, eris.Wrap(err, "demandcheck: load mandate")
	}
	answers, err := b.store.Answers(ctx, mandateID)
	if err != nil {
		return nil, eris.Wrap(err, "demandcheck: load answers")
	}
	age := mandate.AgeAt(b.now())

	desired := b.desiredCategories(ctx, answers, age)

	if err := b.resolveUmbrellas(ctx, desired); err != nil {
		return nil, err
	}

	existing, err := b.store.Recommendations(ctx, mandateID)
	if err != nil {
		return nil, eris.Wrap(err, "demandcheck: load recommendations")
	}

	result, err := b.reconcile(ctx, mandateID, desired, existing)
	if err != nil {
		return nil, err
	}

	if b.mandatory != nil {
		if err := b.mandatory.ApplyRules(ctx, mandateID, result); err != nil {
			return nil, err
		}
		for i := range result {
			if err := b.store.UpsertRecommendation(ctx, &result[i]); err != nil {
				return nil, eris.Wrapf(err, "demandcheck: flag %s", result[i].CategoryIdent)
			}
		}
	}

	zap.L().Info("demandcheck: rules applied",
		zap.Int64("mandate_id", mandateID),
		zap.Int("recommendations", len(result)),
	)
	return result, nil
}

// desiredCategories evaluates the declarative rules plus the job-based
// baseline and the occupation override into a category -> level map.
func (b *Builder) desiredCategories(ctx context.Context, answers model.Answers, age int) map[string]model.RecommendationLevel {
	desired := make(map[string]model.RecommendationLevel)

	set := func(ident string, level model.RecommendationLevel) {
		// recommended never downgrades to dismissed.
		if cur, ok := desired[ident]; ok && cur == model.LevelRecommended && level == model.LevelDismissed {
			return
		}
		desired[ident] = level
	}

	for _, rule := range b.rules.Rules {
		if !rule.Matches(answers, age) {
			continue
		}
		level := rule.Level
		if level == "" {
			level = model.LevelRecommended
		}
		for _, cat := range rule.Categories {
			set(cat, level)
		}
	}

	b.applyJobBaseline(answers, set)
	b.applyOccupationOverride(ctx, answers, age, desired)

	return desired
}

// applyJobBaseline adds the per-employment-type category set, varied by
// income bracket and health-insurance type.
func (b *Builder) applyJobBaseline(answers model.Answers, set func(string, model.RecommendationLevel)) {
	job := answers.GetNonBlank(model.QuestionJob)
	if job == "" {
		return
	}
	baseline, ok := b.jobBaselineFor(job)
	if !ok {
		return
	}

	for _, cat := range baseline.Categories {
		set(cat, model.LevelRecommended)
	}
	for _, cat := range baseline.Dismissed {
		set(cat, model.LevelDismissed)
	}

	if baseline.IncomeThreshold > 0 {
		if salary, ok := parseAmount(answers.GetNonBlank(model.QuestionAnnualSalary)); ok && salary > baseline.IncomeThreshold {
			for _, cat := range baseline.HighIncomeCategories {
				set(cat, model.LevelRecommended)
			}
		}
	}

	health := answers.GetNonBlank(model.QuestionHealthInsurance)
	if model.MatchesAnswer(health, model.AnswerHealthStatutory) {
		for _, cat := range baseline.WithStatutoryHealth {
			set(cat, model.LevelRecommended)
		}
	}
	if model.MatchesAnswer(health, model.AnswerHealthPrivate) {
		for _, cat := range baseline.WithPrivateHealth {
			set(cat, model.LevelRecommended)
		}
	}
}

func (b *Builder) jobBaselineFor(job string) (JobBaseline, bool) {
	for key, baseline := range b.rules.JobBaselines {
		if model.MatchesAnswer(job, key) {
			return baseline, true
		}
	}
	return JobBaseline{}, false
}

// applyOccupationOverride replaces the disability-insurance selection
// based on the matched occupation's BU/DU conditions. Only applies up to
// the configured age.
func (b *Builder) applyOccupationOverride(ctx context.Context, answers model.Answers, age int, desired map[string]model.RecommendationLevel) {
	title := answers.GetNonBlank(model.QuestionJobTitle)
	if title == "" {
		return
	}
	if age < 0 || age > b.rules.JobTitleMaxAge {
		return
	}

	occupation, err := b.store.OccupationByNormalizedName(ctx, NormalizeJobTitle(title))
	if err != nil {
		// An unmatched title falls back to the job baseline.
		zap.L().Debug("demandcheck: occupation lookup failed",
			zap.String("title", title),
			zap.Error(err),
		)
		return
	}
	if occupation == nil {
		return
	}

	switch {
	case occupation.DUCondition.Holds(answers):
		delete(desired, model.CategoryBU)
		desired[model.CategoryDU] = model.LevelRecommended
	case occupation.BUCondition.Holds(answers):
		desired[model.CategoryBU] = model.LevelRecommended
	default:
		// Neither condition holds: steer to the umbrella labor-protection
		// advice instead of a concrete product line.
		delete(desired, model.CategoryBU)
		desired[model.CategoryArbeitskraft] = model.LevelRecommended
	}
}

// resolveUmbrellas drops sub-categories from the desired set when their
// umbrella is desired as recommended. The persisted sub recommendations
// are then removed by reconcile (unless offer-protected).
func (b *Builder) resolveUmbrellas(ctx context.Context, desired map[string]model.RecommendationLevel) error {
	for ident, level := range desired {
		if level != model.LevelRecommended {
			continue
		}
		category, err := b.store.CategoryByIdent(ctx, ident)
		if err != nil {
			return eris.Wrapf(err, "demandcheck: load category %s", ident)
		}
		if category == nil || !category.Umbrella() {
			continue
		}
		for _, sub := range category.IncludedCategoryIdents {
			delete(desired, sub)
		}
	}
	return nil
}

// reconcile upserts desired recommendations and deletes stale ones unless
// an active offer protects them.
func (b *Builder) reconcile(ctx context.Context, mandateID int64, desired map[string]model.RecommendationLevel, existing []model.Recommendation) ([]model.Recommendation, error) {
	byCategory := make(map[string]model.Recommendation, len(existing))
	for _, rec := range existing {
		byCategory[rec.CategoryIdent] = rec
	}

	idents := make([]string, 0, len(desired))
	for ident := range desired {
		idents = append(idents, ident)
	}
	sort.Strings(idents)

	var result []model.Recommendation
	for _, ident := range idents {
		level := desired[ident]
		rec, ok := byCategory[ident]
		if !ok {
			rec = model.Recommendation{MandateID: mandateID, CategoryIdent: ident, Level: level}
		} else if rec.Level != level {
			rec.Level = level
		}
		if err := b.store.UpsertRecommendation(ctx, &rec); err != nil {
			return nil, eris.Wrapf(err, "demandcheck: upsert %s", ident)
		}
		result = append(result, rec)
	}

	for _, rec := range existing {
		if _, ok := desired[rec.CategoryIdent]; ok {
			continue
		}
		protected, err := b.store.ActiveOfferExists(ctx, mandateID, rec.CategoryIdent)
		if err != nil {
			return nil, eris.Wrapf(err, "demandcheck: check offer %s", rec.CategoryIdent)
		}
		if protected {
			// An in-flight sale keeps its recommendation.
			result = append(result, rec)
			continue
		}
		if err := b.store.DeleteRecommendation(ctx, mandateID, rec.CategoryIdent); err != nil {
			return nil, eris.Wrapf(err, "demandcheck: delete %s", rec.CategoryIdent)
		}
	}

	return result, nil
}

// SwitcherClassification resolves the classification of a switcher-advice
// card from its metadata values. When multiple classifications are
// present, the last one wins.
func SwitcherClassification(classifications []string) string {
	for i := len(classifications) - 1; i >= 0; i-- {
		if strings.TrimSpace(classifications[i]) != "" {
			return classifications[i]
		}
	}
	return ""
}
