package demandcheck

import (
	"strconv"
	"strings"
	"time"

	"github.com/clark-group/brokerage-cli/internal/model"
)

// maxPlausibleAge is the upper bound for birthdate plausibility checks.
const maxPlausibleAge = 150

// validatorFunc validates one trimmed, non-blank answer. prior carries the
// already-recorded answers for conditional rules.
type validatorFunc func(v *Validator, text string, prior model.Answers) bool

// Validator validates free-form questionnaire answers against per-question
// rules. It has no side effects and never errors on malformed input:
// malformed means invalid, not broken.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a Validator using the wall clock.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// NewValidatorAt creates a Validator with a fixed clock, for tests and
// deterministic replays.
func NewValidatorAt(now func() time.Time) *Validator {
	return &Validator{now: now}
}

// enum answer sets, matched under umlaut-folding normalization.
var (
	livingPlaceAnswers = []string{"Miete", "Eigentum", "Bei den Eltern"}
	familyAnswers      = []string{"Ledig", "In Partnerschaft", "Verheiratet", "Geschieden", "Verwitwet"}
	yesNoAnswers       = []string{model.AnswerYes, model.AnswerNo}
	jobAnswers         = []string{"Angestellt", "Beamter", "Selbständig", "Student", "Auszubildender", "Rentner", "Nicht berufstätig"}
	petsAnswers        = []string{"Hund", "Katze", "Pferd", "Sonstiges", model.AnswerNo}
	travelAnswers      = []string{"Häufig", "Gelegentlich", "Selten", "Nie"}
	healthAnswers      = []string{model.AnswerHealthStatutory, model.AnswerHealthPrivate}
)

// validators dispatches by question identifier. Questions without an entry
// fall back to always-valid.
var validators = map[string]validatorFunc{
	model.QuestionBirthdate:       (*Validator).validBirthdate,
	model.QuestionGender:          validEnum([]string{"Männlich", "Weiblich", "Divers"}),
	model.QuestionLivingPlace:     validEnum(livingPlaceAnswers),
	model.QuestionEstate:          validEnum(yesNoAnswers),
	model.QuestionFamily:          validEnum(familyAnswers),
	model.QuestionKids:            validEnum(yesNoAnswers),
	model.QuestionNumberOfKids:    (*Validator).validNumberOfKids,
	model.QuestionJob:             validEnum(jobAnswers),
	model.QuestionJobTitle:        alwaysValid,
	model.QuestionAnnualSalary:    validAmount(false),
	model.QuestionMonthlySpending: validAmount(true),
	model.QuestionVehicle:         validEnum(yesNoAnswers),
	model.QuestionPets:            validEnum(petsAnswers),
	model.QuestionTravel:          validEnum(travelAnswers),
	model.QuestionHealthInsurance: validEnum(healthAnswers),
}

// Valid reports whether the answer text is acceptable for the question.
// Blank answers are valid unless the specific field requires presence
// (conditional requiredness, e.g. demand_number_of_kids after a "Ja" to
// demand_kids).
func (v *Validator) Valid(questionIdent, text string, prior model.Answers) bool {
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		return !v.requiresPresence(questionIdent, prior)
	}

	if strings.HasPrefix(questionIdent, model.QuestionPriorityPrefix) {
		return validPriorityScore(trimmed)
	}

	fn, ok := validators[questionIdent]
	if !ok {
		return true
	}
	return fn(v, trimmed, prior)
}

// requiresPresence reports whether a blank answer is unacceptable for the
// question given the prior answers.
func (v *Validator) requiresPresence(questionIdent string, prior model.Answers) bool {
	if questionIdent == model.QuestionNumberOfKids {
		kids := prior.GetNonBlank(model.QuestionKids)
		return model.MatchesAnswer(kids, model.AnswerYes)
	}
	return false
}

func alwaysValid(*Validator, string, model.Answers) bool { return true }

// validEnum builds a validator accepting exactly the given answer set.
func validEnum(allowed []string) validatorFunc {
	return func(_ *Validator, text string, _ model.Answers) bool {
		for _, a := range allowed {
			if model.MatchesAnswer(text, a) {
				return true
			}
		}
		return false
	}
}

// validPriorityScore accepts integers in [1,5].
func validPriorityScore(text string) bool {
	n, err := strconv.Atoi(text)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 5
}

// validAmount builds a validator for money answers. German number formats
// are accepted ("45.000", "1.234,56", "2500 €").
func validAmount(zeroAllowed bool) validatorFunc {
	return func(_ *Validator, text string, _ model.Answers) bool {
		amount, ok := parseAmount(text)
		if !ok {
			return false
		}
		if zeroAllowed {
			return amount >= 0
		}
		return amount > 0
	}
}

// parseAmount parses a money answer, tolerating currency signs and German
// thousands/decimal separators.
func parseAmount(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimSuffix(s, "€")
	s = strings.ReplaceAll(s, " ", "")
	// "1.234,56" -> "1234.56"; a lone "." is a thousands separator here.
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else if strings.Count(s, ".") > 0 && len(s)-strings.LastIndex(s, ".") == 4 {
		s = strings.ReplaceAll(s, ".", "")
	}
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// validBirthdate accepts German (02.01.2006) and ISO (2006-01-02) dates
// with an implied age between 0 and ~150 years as of now.
func (v *Validator) validBirthdate(text string, _ model.Answers) bool {
	birthdate, ok := ParseBirthdate(text)
	if !ok {
		return false
	}

	now := v.now()
	if birthdate.After(now) {
		return false
	}
	oldest := now.AddDate(-maxPlausibleAge, 0, 0)
	return birthdate.After(oldest)
}

// validNumberOfKids accepts non-negative integers.
func (v *Validator) validNumberOfKids(text string, _ model.Answers) bool {
	n, err := strconv.Atoi(text)
	if err != nil {
		return false
	}
	return n >= 0
}

// birthdateLayouts are the accepted answer formats, most common first.
var birthdateLayouts = []string{"02.01.2006", "2006-01-02", "2.1.2006"}

// ParseBirthdate parses a birthdate answer. Returns false when no layout
// matches.
func ParseBirthdate(text string) (time.Time, bool) {
	trimmed := strings.TrimSpace(text)
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
