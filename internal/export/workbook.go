// Package export writes the spreadsheet companion of a service report.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"ici-report/internal/domain"
	"ici-report/internal/render"
)

const summarySheet = "Resumen"

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

var fixedHeader = []string{"ID", "Ubicación"}

// statusCell is the spreadsheet text of a result; absent results stay blank.
func statusCell(s domain.ResultStatus) string {
	switch s {
	case domain.StatusOK:
		return "OK"
	case domain.StatusNOK:
		return "FALLA"
	case domain.StatusNA:
		return "N/A"
	case domain.StatusNR:
		return "NR"
	}
	return ""
}

type sheetSection struct {
	name       string
	entries    []domain.ReportEntry
	activities []domain.Activity
}

func planSheets(in render.Input) []sheetSection {
	groups, _ := domain.GroupEntries(in.Report.Entries, in.Policy.Devices)
	used := map[string]bool{strings.ToLower(summarySheet): true}

	var out []sheetSection
	for _, g := range groups {
		def, ok := domain.FindDefinition(in.Devices, g.DefinitionID)
		if !ok {
			continue
		}
		acts := domain.RelevantActivities(def, g.Entries)
		if len(acts) == 0 {
			continue
		}
		out = append(out, sheetSection{
			name:       uniqueSheetName(def.Name, used),
			entries:    g.Entries,
			activities: acts,
		})
	}
	return out
}

// uniqueSheetName strips characters Excel rejects, truncates, and suffixes
// duplicates with " (n)". Excel compares sheet names case-insensitively.
func uniqueSheetName(name string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if base == "" {
		base = "Dispositivo"
	}
	base = truncateRunes(base, maxSheetName)

	candidate := base
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ServiceReportWorkbook returns an XLSX with one sheet per device section
// (one row per entry, one column per scheduled activity) and a summary sheet.
func ServiceReportWorkbook(in render.Input) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename default sheet: %w", err)
	}
	if err := writeSummary(f, in, headerStyle); err != nil {
		return nil, err
	}

	for _, sec := range planSheets(in) {
		if _, err := f.NewSheet(sec.name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sec.name, err)
		}
		if err := writeSection(f, sec, headerStyle); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSection(f *excelize.File, sec sheetSection, headerStyle int) error {
	headers := append([]string(nil), fixedHeader...)
	for _, a := range sec.activities {
		headers = append(headers, fmt.Sprintf("%s (%s)", a.Name, a.FrequencyLabel()))
	}
	headers = append(headers, "Observaciones")

	if err := writeRow(f, sec.name, 1, toCells(headers)); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sec.name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, e := range sec.entries {
		row := []any{e.CustomID, e.Area}
		for _, a := range sec.activities {
			row = append(row, statusCell(e.Results[a.ID]))
		}
		row = append(row, strings.TrimSpace(e.Observations))
		if err := writeRow(f, sec.name, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sec.name, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(sec.name, "B", "B", 28); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(sec.name, lastCol, lastCol, 40); err != nil {
		return err
	}
	return f.SetPanes(sec.name, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      1,
		TopLeftCell: "C2",
		ActivePane:  "bottomRight",
	})
}

func writeSummary(f *excelize.File, in render.Input, headerStyle int) error {
	t := domain.Tally(in.Report.Entries)
	rows := [][]any{
		{"Cliente", in.Client.Name},
		{"Periodo", render.PeriodLabel(in.Report.DateStr)},
		{"Ejecución", render.ExecutionDate(in.Report.ServiceDate)},
		{"Proveedor", in.Company.Name},
		{},
		{"Estado", "Total"},
		{"OK", t.OK},
		{"FALLA", t.NOK},
		{"N/A", t.NA},
		{"NR", t.NR},
		{},
		{"Observaciones generales", strings.TrimSpace(in.Report.GeneralObservations)},
	}
	for i, r := range rows {
		if err := writeRow(f, summarySheet, i+1, r); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A6", "B6", headerStyle); err != nil {
		return fmt.Errorf("failed to set summary style: %w", err)
	}
	return f.SetColWidth(summarySheet, "A", "B", 28)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func toCells(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
