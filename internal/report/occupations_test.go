package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/clark-group/brokerage-cli/internal/model"
)

func writeCatalogue(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Berufe")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "berufe.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadOccupations(t *testing.T) {
	path := writeCatalogue(t, [][]string{
		{"Beruf", "BU Frage", "BU Antwort", "DU Frage", "DU Antwort"},
		{"Bürokauffrau", "demand_job", "Angestellt", "", ""},
		{"Beamter", "", "", "demand_job", "Verbeamtet"},
		{"", "demand_job", "Ja", "", ""},
		{"Student"},
	})

	occupations, err := ReadOccupations(path)
	require.NoError(t, err)
	require.Len(t, occupations, 3)

	assert.Equal(t, "Bürokauffrau", occupations[0].Name)
	assert.Equal(t, "burokauffrau", occupations[0].NormalizedName)
	require.NotNil(t, occupations[0].BUCondition)
	assert.Equal(t, model.AnswerCondition{QuestionIdent: "demand_job", Answer: "Angestellt"}, *occupations[0].BUCondition)
	assert.Nil(t, occupations[0].DUCondition)

	require.NotNil(t, occupations[1].DUCondition)
	assert.Nil(t, occupations[1].BUCondition)

	// Short rows still parse.
	assert.Equal(t, "student", occupations[2].NormalizedName)
	assert.Nil(t, occupations[2].BUCondition)
}

func TestReadOccupations_MissingFile(t *testing.T) {
	_, err := ReadOccupations(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}
