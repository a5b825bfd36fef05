package report

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/clark-group/brokerage-cli/internal/demandcheck"
	"github.com/clark-group/brokerage-cli/internal/model"
)

// Occupation catalogue column layout. The first row is a header.
const (
	colName = iota
	colBUQuestion
	colBUAnswer
	colDUQuestion
	colDUAnswer
	occupationColumns
)

// ReadOccupations parses an occupation catalogue spreadsheet into
// catalogue entries ready for upsert. Rows with an empty name are
// skipped; a condition is only formed when both its question and answer
// columns are filled.
func ReadOccupations(path string) ([]model.Occupation, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("report: %s has no sheets", path)
	}

	var out []model.Occupation
	for i, row := range f.Sheets[0].Rows {
		if i == 0 {
			continue
		}
		cells := make([]string, occupationColumns)
		for j, cell := range row.Cells {
			if j >= occupationColumns {
				break
			}
			cells[j] = strings.TrimSpace(cell.String())
		}
		if cells[colName] == "" {
			continue
		}

		o := model.Occupation{
			Name:           cells[colName],
			NormalizedName: demandcheck.NormalizeJobTitle(cells[colName]),
		}
		if cells[colBUQuestion] != "" && cells[colBUAnswer] != "" {
			o.BUCondition = &model.AnswerCondition{QuestionIdent: cells[colBUQuestion], Answer: cells[colBUAnswer]}
		}
		if cells[colDUQuestion] != "" && cells[colDUAnswer] != "" {
			o.DUCondition = &model.AnswerCondition{QuestionIdent: cells[colDUQuestion], Answer: cells[colDUAnswer]}
		}
		out = append(out, o)
	}
	return out, nil
}
