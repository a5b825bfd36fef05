package model

import "time"

// Gender is the normalized gender value stored on a mandate.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderDiverse Gender = "diverse"
)

// MandateState tracks the mandate lifecycle. Only `accepted` mandates
// trigger downstream Salesforce events.
type MandateState string

const (
	MandateInCreation MandateState = "in_creation"
	MandateCreated    MandateState = "created"
	MandateAccepted   MandateState = "accepted"
	MandateRevoked    MandateState = "revoked"
)

// Mandate is the core customer record: a person who has granted us
// authority to act on insurance matters.
type Mandate struct {
	ID        int64        `json:"id"`
	State     MandateState `json:"state"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Gender    Gender       `json:"gender,omitempty"`
	Birthdate *time.Time   `json:"birthdate,omitempty"`
}

// AgeAt returns the mandate's age in full years at the given time.
// Returns -1 when no birthdate is known.
func (m *Mandate) AgeAt(now time.Time) int {
	if m.Birthdate == nil {
		return -1
	}
	b := *m.Birthdate
	age := now.Year() - b.Year()
	// Birthday not yet reached this year.
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		return -1
	}
	return age
}

// NormalizeGender maps free-form questionnaire answers onto a Gender.
// Returns an empty Gender when the answer is not recognized.
func NormalizeGender(answer string) Gender {
	switch normalizeEnum(answer) {
	case "mannlich", "male", "herr", "mann":
		return GenderMale
	case "weiblich", "female", "frau":
		return GenderFemale
	case "divers", "diverse":
		return GenderDiverse
	}
	return ""
}
