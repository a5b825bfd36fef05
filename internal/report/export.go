// Package report renders performance snapshots to spreadsheet files and
// reads the occupation catalogue used by the demand check.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/clark-group/brokerage-cli/internal/model"
	"github.com/clark-group/brokerage-cli/internal/performance"
)

// ExportSnapshots writes the given performance snapshots to an xlsx file.
// The "Snapshots" sheet carries one summary row per consultant and month,
// the "Matrix" sheet the full conversion-rate grid per bucket pair.
func ExportSnapshots(path string, snaps []model.MonthlyAdminPerformance, buckets performance.Buckets) error {
	sorted := make([]model.MonthlyAdminPerformance, len(snaps))
	copy(sorted, snaps)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ConsultantID != sorted[j].ConsultantID {
			return sorted[i].ConsultantID < sorted[j].ConsultantID
		}
		return sorted[i].CalculationDate.Before(sorted[j].CalculationDate)
	})

	f := xlsx.NewFile()
	if err := addSummarySheet(f, sorted); err != nil {
		return err
	}
	if err := addMatrixSheet(f, sorted, buckets); err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "report: save %s", path)
}

const monthLayout = "2006-01"

func addSummarySheet(f *xlsx.File, snaps []model.MonthlyAdminPerformance) error {
	sheet, err := f.AddSheet("Snapshots")
	if err != nil {
		return eris.Wrap(err, "report: add snapshots sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"consultant_id", "month", "algo_version", "revenue",
		"open_opportunities", "filled_cells", "mean_conversion_rate",
	} {
		header.AddCell().SetString(h)
	}

	for _, snap := range snaps {
		row := sheet.AddRow()
		row.AddCell().SetInt64(snap.ConsultantID)
		row.AddCell().SetString(snap.CalculationDate.Format(monthLayout))
		row.AddCell().SetString(snap.AlgoVersion)
		row.AddCell().SetFloat(snap.Revenue)
		row.AddCell().SetInt(snap.OpenOpportunities)
		row.AddCell().SetInt(snap.PerformanceMatrix.FilledCells())
		if mean := snap.PerformanceMatrix.MeanConversion(); mean != nil {
			row.AddCell().SetFloat(*mean)
		} else {
			row.AddCell().SetString("")
		}
	}
	return nil
}

func addMatrixSheet(f *xlsx.File, snaps []model.MonthlyAdminPerformance, buckets performance.Buckets) error {
	sheet, err := f.AddSheet("Matrix")
	if err != nil {
		return eris.Wrap(err, "report: add matrix sheet")
	}

	header := sheet.AddRow()
	header.AddCell().SetString("consultant_id")
	header.AddCell().SetString("month")
	header.AddCell().SetString("open_leads_bucket")
	for _, revenue := range buckets.Revenue {
		header.AddCell().SetString(fmt.Sprintf("revenue_%d", revenue))
	}

	for _, snap := range snaps {
		month := snap.CalculationDate.Format(monthLayout)
		for _, openLeads := range buckets.OpenLeads {
			row := sheet.AddRow()
			row.AddCell().SetInt64(snap.ConsultantID)
			row.AddCell().SetString(month)
			row.AddCell().SetInt(openLeads)
			for _, revenue := range buckets.Revenue {
				if rate := snap.PerformanceMatrix.At(openLeads, revenue); rate != nil {
					row.AddCell().SetFloat(*rate)
				} else {
					row.AddCell().SetString("")
				}
			}
		}
	}
	return nil
}

// ExportFilename builds the default output name for a monthly export.
func ExportFilename(prefix string, month time.Time) string {
	return fmt.Sprintf("%s-%s.xlsx", prefix, month.Format(monthLayout))
}
