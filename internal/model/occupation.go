package model

// AnswerCondition is a question/answer pair that must hold in the current
// response for an occupation-driven rule to apply.
type AnswerCondition struct {
	QuestionIdent string `json:"question_identifier" yaml:"question"`
	Answer        string `json:"answer" yaml:"answer"`
}

// Holds reports whether the condition is satisfied by the given answers.
func (c *AnswerCondition) Holds(answers Answers) bool {
	if c == nil {
		return false
	}
	text, ok := answers.Get(c.QuestionIdent)
	if !ok {
		return false
	}
	return MatchesAnswer(text, c.Answer)
}

// Occupation is catalogue data matched against the demand_job_title answer.
// The BU/DU conditions steer disability-insurance category selection.
type Occupation struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	NormalizedName string           `json:"normalized_name"`
	BUCondition    *AnswerCondition `json:"bu_recommendation_condition,omitempty"`
	DUCondition    *AnswerCondition `json:"du_recommendation_condition,omitempty"`
}
