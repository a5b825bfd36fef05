package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/clark-group/brokerage-cli/internal/model"
	"github.com/clark-group/brokerage-cli/internal/performance"
)

var testBuckets = performance.Buckets{
	OpenLeads: []int{10, 20},
	Revenue:   []int{3000, 9000},
}

func testSnapshot(consultantID int64, month time.Time) model.MonthlyAdminPerformance {
	matrix := model.NewPerformanceMatrix(testBuckets.OpenLeads, testBuckets.Revenue)
	matrix.Set(10, 3000, 0.5)
	matrix.Set(20, 9000, 0.7)
	return model.MonthlyAdminPerformance{
		ConsultantID:      consultantID,
		CalculationDate:   month,
		Revenue:           1500,
		OpenOpportunities: 12,
		PerformanceMatrix: matrix,
		AlgoVersion:       "v2",
	}
}

func TestExportSnapshots(t *testing.T) {
	july := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	snaps := []model.MonthlyAdminPerformance{
		testSnapshot(2, july),
		testSnapshot(1, july),
	}

	path := filepath.Join(t.TempDir(), "performance.xlsx")
	require.NoError(t, ExportSnapshots(path, snaps, testBuckets))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	summary, ok := f.Sheet["Snapshots"]
	require.True(t, ok)
	require.Len(t, summary.Rows, 3)
	assert.Equal(t, "consultant_id", summary.Rows[0].Cells[0].String())

	// Rows are ordered by consultant.
	first := summary.Rows[1].Cells
	assert.Equal(t, "1", first[0].String())
	assert.Equal(t, "2026-07", first[1].String())
	assert.Equal(t, "v2", first[2].String())
	filled, err := first[5].Int()
	require.NoError(t, err)
	assert.Equal(t, 2, filled)
	mean, err := first[6].Float()
	require.NoError(t, err)
	assert.InDelta(t, 0.6, mean, 1e-12)

	matrix, ok := f.Sheet["Matrix"]
	require.True(t, ok)
	// Header plus one row per snapshot per open-leads bucket.
	require.Len(t, matrix.Rows, 1+2*2)
	assert.Equal(t, "revenue_3000", matrix.Rows[0].Cells[3].String())

	row := matrix.Rows[1].Cells
	assert.Equal(t, "1", row[0].String())
	rate, err := row[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rate, 1e-12)
	assert.Equal(t, "", row[4].String())
}

func TestExportFilename(t *testing.T) {
	month := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "performance-2026-07.xlsx", ExportFilename("performance", month))
}
