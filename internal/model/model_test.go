package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMandate_AgeAt(t *testing.T) {
	b := date(1990, time.June, 15)
	m := &Mandate{Birthdate: &b}

	assert.Equal(t, 35, m.AgeAt(date(2026, time.June, 15)))
	assert.Equal(t, 34, m.AgeAt(date(2026, time.June, 14)))
	assert.Equal(t, 35, m.AgeAt(date(2026, time.December, 1)))
}

func TestMandate_AgeAt_NoBirthdate(t *testing.T) {
	m := &Mandate{}
	assert.Equal(t, -1, m.AgeAt(time.Now()))
}

func TestNormalizeGender(t *testing.T) {
	assert.Equal(t, GenderMale, NormalizeGender("Männlich"))
	assert.Equal(t, GenderMale, NormalizeGender("maennlich"))
	assert.Equal(t, GenderFemale, NormalizeGender("weiblich"))
	assert.Equal(t, GenderDiverse, NormalizeGender("Divers"))
	assert.Equal(t, Gender(""), NormalizeGender("unbekannt"))
}

func TestAnswers_MergeReplacesExisting(t *testing.T) {
	as := Answers{
		{QuestionIdent: QuestionKids, Text: "Nein"},
		{QuestionIdent: QuestionVehicle, Text: "Ja"},
	}
	merged := as.Merge(Answers{{QuestionIdent: QuestionKids, Text: "Ja"}})

	got, ok := merged.Get(QuestionKids)
	assert.True(t, ok)
	assert.Equal(t, "Ja", got)
	assert.Len(t, merged, 2)
}

func TestMatchesAnswer_UmlautFolding(t *testing.T) {
	assert.True(t, MatchesAnswer("HÄUFIG", "haufig"))
	assert.True(t, MatchesAnswer("gesetzlich versichert", "Gesetzlich Versichert"))
	assert.False(t, MatchesAnswer("Ja", "Nein"))
}

func TestCategoryInstances_HasActive(t *testing.T) {
	ci := CategoryInstances{
		Inquiries: []Inquiry{{State: InquiryCanceled}},
		Products:  []Product{{State: ProductTerminated}},
	}
	assert.False(t, ci.HasActive())
	assert.False(t, ci.Empty())

	ci.Opportunities = []Opportunity{{State: OpportunityOfferPhase}}
	assert.True(t, ci.HasActive())
}

func TestPerformanceMatrix_SetCloneMean(t *testing.T) {
	m := NewPerformanceMatrix([]int{10, 20}, []int{3000, 9000})
	assert.Equal(t, 0, m.FilledCells())
	assert.Nil(t, m.MeanConversion())

	m.Set(10, 3000, 0.5)
	m.Set(20, 9000, 1.0)
	assert.Equal(t, 2, m.FilledCells())
	assert.InDelta(t, 0.75, *m.MeanConversion(), 1e-9)

	cp := m.Clone()
	cp.Set(10, 3000, 0.0)
	assert.InDelta(t, 0.5, *m.At(10, 3000), 1e-9)
}
