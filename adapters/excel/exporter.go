// Package excel exports experiment results to spreadsheet workbooks.
package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"gosplit/domain/experiment"
	"gosplit/internal/errors"
)

// Exporter renders an experiment result to an xlsx workbook with a
// summary sheet and one row per variant/metric pair.
type Exporter struct{}

// NewExporter creates an exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export writes the workbook to filePath.
func (e *Exporter) Export(exp *experiment.Experiment, result *experiment.Result, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	summary := "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return errors.Wrap(err, "failed to rename summary sheet")
	}

	rows := [][]any{
		{"Experiment", exp.Name},
		{"Status", string(result.Status)},
		{"Sample size", result.SampleSize},
		{"Duration", result.Duration.String()},
		{"Confidence", result.Confidence},
		{"Significant", result.Significant},
	}
	if winner := result.VariantByID(result.Winner); winner != nil {
		rows = append(rows, []any{"Winner", winner.Name})
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return errors.Wrap(err, "failed to write summary row")
		}
	}

	variants := "Variants"
	if _, err := f.NewSheet(variants); err != nil {
		return errors.Wrap(err, "failed to create variants sheet")
	}
	header := []any{"Variant", "Participants", "Metric", "Type", "Aggregation", "Count", "Sum", "Avg", "Min", "Max", "Conversion rate"}
	if err := f.SetSheetRow(variants, "A1", &header); err != nil {
		return errors.Wrap(err, "failed to write variants header")
	}
	rowIdx := 2
	for _, vr := range result.Variants {
		if len(vr.Metrics) == 0 {
			row := []any{vr.Name, vr.Participants}
			cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			if err := f.SetSheetRow(variants, cell, &row); err != nil {
				return errors.Wrap(err, "failed to write variant row")
			}
			rowIdx++
			continue
		}
		for _, m := range exp.Metrics {
			agg, ok := vr.Metrics[m.Name]
			if !ok {
				continue
			}
			row := []any{
				vr.Name, vr.Participants, agg.Name, string(agg.Type), string(agg.Aggregation),
				agg.Count, agg.Sum, agg.Avg, agg.Min, agg.Max, agg.ConversionRate,
			}
			cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			if err := f.SetSheetRow(variants, cell, &row); err != nil {
				return errors.Wrap(err, "failed to write variant row")
			}
			rowIdx++
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return errors.Wrapf(err, "failed to save workbook %s", filePath)
	}
	return nil
}

// ExportFilename suggests a stable file name for an experiment export.
func ExportFilename(exp *experiment.Experiment) string {
	return fmt.Sprintf("experiment-%s.xlsx", exp.ID)
}
