// Package export renders target tables as downloadable spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"qboard/internal/core"
)

// placeholderCell marks roster rows that have no saved record for the period.
const placeholderCell = "-"

var header = []string{"Name", "Group", "Period", "Target", "Achieved", "Pending", "Extra Hours", "Working Days"}

// Row is one export line: the roster entity plus its record, when one exists.
type Row struct {
	Entity core.Entity
	Record core.Record // Persisted false means placeholder
}

// Report is a single period's table ready to render.
type Report struct {
	Kind   core.EntityKind
	Period core.Period
	Rows   []Row
}

// Filename names the download: <ReportName>_<PERIOD>.xlsx.
func Filename(kind core.EntityKind, period core.Period) string {
	return fmt.Sprintf("%s_%s.xlsx", kind.ReportName(), period.String())
}

// BuildReport pairs the roster with the period's records in roster order.
// Returns core.ErrEmptyExport when the filtered roster is empty; an
// all-placeholder table still exports, with "-" in every metric cell.
func BuildReport(kind core.EntityKind, period core.Period, roster []core.Entity, records []core.Record) (Report, error) {
	if len(roster) == 0 {
		return Report{}, core.ErrEmptyExport
	}

	byEntity := make(map[int64]core.Record, len(records))
	for _, r := range records {
		if r.Period == period {
			byEntity[r.EntityID] = r
		}
	}

	report := Report{Kind: kind, Period: period, Rows: make([]Row, 0, len(roster))}
	for _, e := range roster {
		row := Row{Entity: e}
		if r, ok := byEntity[e.ID]; ok {
			row.Record = r
			row.Record.Persisted = true
		}
		report.Rows = append(report.Rows, row)
	}

	return report, nil
}

// WriteXLSX renders the report as a workbook with a header row, one line per
// roster entity and a closing TOTAL row. Placeholder rows carry "-" in every
// metric column and are excluded from the totals; when no row is persisted
// the TOTAL row is left out entirely.
func WriteXLSX(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := report.Kind.ReportName()
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("set header: %w", err)
		}
	}

	rowNum := 2
	var totals core.Metrics
	counted := 0
	for _, row := range report.Rows {
		values := []any{
			row.Entity.DisplayName,
			row.Entity.GroupName,
			report.Period.String(),
		}
		if row.Record.Persisted {
			m := row.Record.Metrics
			values = append(values, m.Target, m.Achieved, m.Pending, m.ExtraHours, m.WorkingDays)
			totals.Target += m.Target
			totals.Achieved += m.Achieved
			totals.Pending += m.Pending
			totals.ExtraHours += m.ExtraHours
			totals.WorkingDays += m.WorkingDays
			counted++
		} else {
			values = append(values, placeholderCell, placeholderCell, placeholderCell, placeholderCell, placeholderCell)
		}

		if err := setRow(f, sheet, rowNum, values); err != nil {
			return err
		}
		rowNum++
	}

	if counted > 0 {
		totalRow := []any{
			"TOTAL",
			"",
			report.Period.String(),
			totals.Target,
			totals.Achieved,
			totals.Pending,
			totals.ExtraHours,
			totals.WorkingDays,
		}
		if err := setRow(f, sheet, rowNum, totalRow); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
