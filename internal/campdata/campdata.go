// Package campdata reads per-service case volumes of a camp from an uploaded
// spreadsheet and turns them into pricing inputs.
package campdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/campbill/internal/pricing"
)

// Column headers recognised in the first row, case-insensitively.
const (
	ColService      = "service"
	ColCasePerDay   = "case_per_day"
	ColNumberOfDays = "number_of_days"
	ColReportType   = "report_type"
)

// Report delivery options.
const (
	ReportHardCopy = "hard copy"
	ReportDigital  = "digital"
)

// cbcHardCopyPrice is the per-case hard copy price of CBC reports, which is
// not taken from the rate catalog.
const cbcHardCopyPrice = 25

// ErrNoRows is returned when a sheet has a header but no data.
var ErrNoRows = errors.New("file must contain a header row and at least one data row")

// Row is one parsed line of the sheet.
type Row struct {
	Line         int    `json:"line"`
	Service      string `json:"service"`
	CasePerDay   int    `json:"case_per_day"`
	NumberOfDays int    `json:"number_of_days"`
	ReportType   string `json:"report_type"`
}

// TotalCase is the number of cases the row covers.
func (r Row) TotalCase() int {
	return r.CasePerDay * r.NumberOfDays
}

// Import is the outcome of reading a sheet.
type Import struct {
	Rows     []Row                        `json:"rows"`
	Inputs   map[string]pricing.CaseInput `json:"inputs"`
	Warnings []pricing.Warning            `json:"warnings"`
}

// ReadFile parses an uploaded file, choosing the format from its name.
// Names ending in .csv are read as CSV, everything else as XLSX.
func ReadFile(name string, r io.Reader, cat *pricing.Catalog, rates map[string]pricing.BaseRate) (Import, error) {
	var (
		headers []string
		rows    [][]string
		err     error
	)
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		headers, rows, err = parseCSV(r)
	} else {
		headers, rows, err = parseExcel(r)
	}
	if err != nil {
		return Import{}, err
	}
	return build(headers, rows, cat, rates)
}

// Read parses the first sheet of an XLSX workbook.
func Read(r io.Reader, cat *pricing.Catalog, rates map[string]pricing.BaseRate) (Import, error) {
	headers, rows, err := parseExcel(r)
	if err != nil {
		return Import{}, err
	}
	return build(headers, rows, cat, rates)
}

func parseExcel(r io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, ErrNoRows
	}
	return rows[0], rows[1:], nil
}

func parseCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, ErrNoRows
	}
	return rows[0], rows[1:], nil
}

func build(headers []string, rows [][]string, cat *pricing.Catalog, rates map[string]pricing.BaseRate) (Import, error) {
	cols := make(map[string]int, len(headers))
	for i, h := range headers {
		norm := strings.ToLower(strings.TrimSpace(h))
		norm = strings.ReplaceAll(norm, " ", "_")
		cols[norm] = i
	}
	for _, required := range []string{ColService, ColCasePerDay, ColNumberOfDays} {
		if _, ok := cols[required]; !ok {
			return Import{}, fmt.Errorf("missing column %q", required)
		}
	}

	out := Import{
		Rows:     make([]Row, 0, len(rows)),
		Inputs:   make(map[string]pricing.CaseInput),
		Warnings: make([]pricing.Warning, 0),
	}

	for i, cells := range rows {
		cell := func(col string) string {
			idx, ok := cols[col]
			if !ok || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		}

		row := Row{Line: i + 2, Service: cell(ColService)}
		if row.Service == "" {
			continue
		}
		warn := func(field string, kind pricing.WarningKind) {
			out.Warnings = append(out.Warnings, pricing.Warning{Service: row.Service, Field: field, Kind: kind})
		}

		var ok bool
		if row.CasePerDay, ok = parseCount(cell(ColCasePerDay)); !ok {
			warn(ColCasePerDay, pricing.KindClamped)
		}
		if row.NumberOfDays, ok = parseCount(cell(ColNumberOfDays)); !ok {
			warn(ColNumberOfDays, pricing.KindClamped)
		}
		row.ReportType = strings.ToLower(cell(ColReportType))
		switch row.ReportType {
		case "", ReportDigital, ReportHardCopy:
		case "hardcopy", "hard_copy":
			row.ReportType = ReportHardCopy
		default:
			warn(ColReportType, pricing.KindClamped)
			row.ReportType = ""
		}

		if svc, err := cat.Lookup(row.Service); err == nil {
			if svc.DailyCaseLimit > 0 && row.CasePerDay > svc.DailyCaseLimit {
				warn(ColCasePerDay, pricing.KindCaseLimit)
			}
		}

		out.Rows = append(out.Rows, row)
		merge(out.Inputs, row, rates[row.Service])
	}

	return out, nil
}

// merge adds a row to the inputs of its service. Repeated services add up
// their cases and report costs; the longest duration wins.
func merge(inputs map[string]pricing.CaseInput, row Row, rate pricing.BaseRate) {
	in := inputs[row.Service]
	total := row.TotalCase()
	in.TotalCase += total
	in.NumberOfDays = max(in.NumberOfDays, row.NumberOfDays)
	in.ReportTypeCost += reportCost(row, rate, total)
	inputs[row.Service] = in
}

func reportCost(row Row, rate pricing.BaseRate, totalCase int) float64 {
	if row.ReportType != ReportHardCopy {
		return 0
	}
	price := rate.HardCopyPrice
	if row.Service == "CBC" {
		price = cbcHardCopyPrice
	}
	return price * float64(totalCase)
}

// parseCount reads a non-negative whole number. Blank cells are 0. Anything
// else that is not a non-negative number yields 0 and false; fractions are
// truncated.
func parseCount(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}
