package demandcheck

import (
	"github.com/clark-group/brokerage-cli/internal/model"
)

// Rule maps a questionnaire answer onto category recommendations. The
// whole rule set is data; one generic interpreter in the builder
// evaluates it.
type Rule struct {
	Question string `yaml:"question"`
	// Match lists accepted answer values (umlaut-folded comparison).
	// Empty means any non-blank answer triggers the rule.
	Match      []string `yaml:"match,omitempty"`
	Categories []string `yaml:"categories"`
	// Age gates; zero means unbounded. A rule with an age gate is skipped
	// when the mandate's age is unknown.
	MinAge int `yaml:"min_age,omitempty"`
	MaxAge int `yaml:"max_age,omitempty"`
	// Level defaults to recommended when empty.
	Level model.RecommendationLevel `yaml:"level,omitempty"`
}

// Matches reports whether the rule fires for the given answers and age.
func (r Rule) Matches(answers model.Answers, age int) bool {
	text := answers.GetNonBlank(r.Question)
	if text == "" {
		return false
	}
	if len(r.Match) > 0 {
		hit := false
		for _, m := range r.Match {
			if model.MatchesAnswer(text, m) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if r.MinAge > 0 && (age < 0 || age < r.MinAge) {
		return false
	}
	if r.MaxAge > 0 && (age < 0 || age > r.MaxAge) {
		return false
	}
	return true
}

// JobBaseline is the category set selected by the demand_job answer. It
// varies further by income bracket and health-insurance type.
type JobBaseline struct {
	Categories []string `yaml:"categories"`
	// Dismissed categories are created at level dismissed (explicit
	// placeholder, e.g. public retirement for non-full-time personas).
	Dismissed []string `yaml:"dismissed,omitempty"`
	// HighIncomeCategories are added when the annual salary exceeds
	// IncomeThreshold.
	HighIncomeCategories []string `yaml:"high_income_categories,omitempty"`
	IncomeThreshold      float64  `yaml:"income_threshold,omitempty"`
	// Extra categories by health-insurance type.
	WithStatutoryHealth []string `yaml:"with_statutory_health,omitempty"`
	WithPrivateHealth   []string `yaml:"with_private_health,omitempty"`
}

// MandatoryRule marks a category mandatory when one of the answers is
// present (and no active instance of the category exists).
type MandatoryRule struct {
	Question      string   `yaml:"question"`
	Answers       []string `yaml:"answers"`
	CategoryIdent string   `yaml:"category"`
}

// Matches reports whether the implying answer is present.
func (r MandatoryRule) Matches(answers model.Answers) bool {
	text := answers.GetNonBlank(r.Question)
	if text == "" {
		return false
	}
	for _, a := range r.Answers {
		if model.MatchesAnswer(text, a) {
			return true
		}
	}
	return false
}

// RuleSet is the full declarative configuration of the recommendation
// engine.
type RuleSet struct {
	Rules        []Rule                 `yaml:"rules"`
	JobBaselines map[string]JobBaseline `yaml:"job_baselines"`
	Mandatory    []MandatoryRule        `yaml:"mandatory"`
	// JobTitleMaxAge gates the occupation-based BU/DU override.
	JobTitleMaxAge int `yaml:"job_title_max_age"`
}

// DefaultRuleSet returns the built-in rule tables.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		JobTitleMaxAge: 50,
		Rules: []Rule{
			// Household and liability.
			{Question: model.QuestionLivingPlace, Match: []string{"Miete"}, Categories: []string{model.CategoryHausrat, model.CategoryPHV}},
			{Question: model.QuestionLivingPlace, Match: []string{"Eigentum"}, Categories: []string{model.CategoryHausrat, model.CategoryPHV, model.CategoryWohngebaeude}},
			{Question: model.QuestionLivingPlace, Match: []string{"Bei den Eltern"}, Categories: []string{model.CategoryPHV}},
			{Question: model.QuestionEstate, Match: []string{model.AnswerYes}, Categories: []string{model.CategoryWohngebaeude}},

			// Family situation.
			{Question: model.QuestionFamily, Match: []string{"Verheiratet", "In Partnerschaft"}, Categories: []string{model.CategoryRisikoleben}, MaxAge: 45},
			{Question: model.QuestionKids, Match: []string{model.AnswerYes}, Categories: []string{model.CategoryRisikoleben}, MaxAge: 45},
			{Question: model.QuestionKids, Match: []string{model.AnswerYes}, Categories: []string{model.CategoryUnfall}},

			// Vehicles, pets, travel.
			{Question: model.QuestionVehicle, Match: []string{model.AnswerYes}, Categories: []string{model.CategoryKFZ}},
			{Question: model.QuestionPets, Match: []string{"Hund", "Pferd"}, Categories: []string{model.CategoryTierhalter}},
			{Question: model.QuestionTravel, Match: []string{"Häufig", "Gelegentlich"}, Categories: []string{model.CategoryReisekranken}},

			// Health.
			{Question: model.QuestionHealthInsurance, Match: []string{model.AnswerHealthStatutory}, Categories: []string{model.CategoryZahnzusatz}},

			// Care insurance only becomes relevant from 40 on.
			{Question: model.QuestionBirthdate, Categories: []string{model.CategoryPflege}, MinAge: 40},
		},
		JobBaselines: map[string]JobBaseline{
			"Angestellt": {
				Categories:           []string{model.CategoryBU, model.CategoryAltersvorsorge, model.CategoryRechtsschutz},
				HighIncomeCategories: []string{model.CategoryPKV},
				IncomeThreshold:      69300,
				WithStatutoryHealth:  []string{model.CategoryKrankentagegeld},
			},
			"Beamter": {
				Categories: []string{model.CategoryDU, model.CategoryAltersvorsorge},
			},
			"Selbständig": {
				Categories:          []string{model.CategoryBU, model.CategoryRuerup, model.CategoryRechtsschutz},
				Dismissed:           []string{model.CategoryGesetzlRente},
				WithStatutoryHealth: []string{model.CategoryKrankentagegeld},
				WithPrivateHealth:   []string{model.CategoryPKV},
			},
			"Student": {
				Categories: []string{model.CategoryBU},
				Dismissed:  []string{model.CategoryGesetzlRente},
			},
			"Auszubildender": {
				Categories: []string{model.CategoryBU, model.CategoryAltersvorsorge},
			},
			"Rentner": {
				Dismissed: []string{model.CategoryGesetzlRente},
			},
			"Nicht berufstätig": {
				Dismissed: []string{model.CategoryGesetzlRente},
			},
		},
		Mandatory: []MandatoryRule{
			{Question: model.QuestionVehicle, Answers: []string{model.AnswerYes}, CategoryIdent: model.CategoryKFZ},
			{Question: model.QuestionPets, Answers: []string{"Hund", "Pferd"}, CategoryIdent: model.CategoryTierhalter},
			{Question: model.QuestionHealthInsurance, Answers: []string{model.AnswerHealthStatutory}, CategoryIdent: model.CategoryGKV},
			{Question: model.QuestionHealthInsurance, Answers: []string{model.AnswerHealthPrivate}, CategoryIdent: model.CategoryPKV},
		},
	}
}
