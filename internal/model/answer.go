package model

import "strings"

// Question identifiers of the demand-check questionnaire. The per-field
// validation and recommendation rules are keyed by these.
const (
	QuestionBirthdate       = "demand_birthdate"
	QuestionGender          = "demand_gender"
	QuestionLivingPlace     = "demand_livingplace"
	QuestionEstate          = "demand_estate"
	QuestionFamily          = "demand_family"
	QuestionKids            = "demand_kids"
	QuestionNumberOfKids    = "demand_number_of_kids"
	QuestionJob             = "demand_job"
	QuestionJobTitle        = "demand_job_title"
	QuestionAnnualSalary    = "demand_annual_salary"
	QuestionMonthlySpending = "demand_monthly_spending"
	QuestionVehicle         = "demand_vehicle"
	QuestionPets            = "demand_pets"
	QuestionTravel          = "demand_travel"
	QuestionHealthInsurance = "demand_health_insurance"

	// Priority self-assessments share a common prefix; the suffix names the
	// life area (e.g. demand_priority_health).
	QuestionPriorityPrefix = "demand_priority_"
)

// Well-known answer values referenced by validation and rule tables.
const (
	AnswerYes = "Ja"
	AnswerNo  = "Nein"

	AnswerHealthStatutory = "gesetzlich versichert"
	AnswerHealthPrivate   = "privat versichert"
)

// QuestionAnswer is a single free-form questionnaire answer. It is
// ephemeral input; persistence is delegated to the response repository.
type QuestionAnswer struct {
	QuestionIdent string `json:"question_identifier"`
	Text          string `json:"raw_text"`
}

// Blank reports whether the answer carries no content.
func (a QuestionAnswer) Blank() bool {
	return strings.TrimSpace(a.Text) == ""
}

// Answers is the full answer set of one questionnaire response.
type Answers []QuestionAnswer

// Get returns the answer text for a question identifier.
func (as Answers) Get(ident string) (string, bool) {
	for _, a := range as {
		if a.QuestionIdent == ident {
			return a.Text, true
		}
	}
	return "", false
}

// GetNonBlank returns the trimmed answer text, or "" when the question is
// unanswered or blank.
func (as Answers) GetNonBlank(ident string) string {
	if text, ok := as.Get(ident); ok {
		return strings.TrimSpace(text)
	}
	return ""
}

// Merge returns a copy of as with the given answers applied on top,
// replacing any existing answer to the same question.
func (as Answers) Merge(updates Answers) Answers {
	merged := make(Answers, 0, len(as)+len(updates))
	for _, a := range as {
		if _, ok := updates.Get(a.QuestionIdent); ok {
			continue
		}
		merged = append(merged, a)
	}
	return append(merged, updates...)
}

// enumReplacer folds German umlauts so enum matching survives the usual
// spelling variants (ä/ae, straße/strasse).
var enumReplacer = strings.NewReplacer(
	"ä", "a", "ö", "o", "ü", "u", "ß", "ss",
	"ae", "a", "oe", "o", "ue", "u",
)

// normalizeEnum lowercases and umlaut-folds an answer for enum comparison.
func normalizeEnum(s string) string {
	return enumReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// MatchesAnswer reports whether a raw answer equals the expected enum
// value under normalization.
func MatchesAnswer(raw, expected string) bool {
	return normalizeEnum(raw) == normalizeEnum(expected)
}
