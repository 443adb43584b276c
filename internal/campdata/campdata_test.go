package campdata

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/campbill/internal/pricing"
)

// workbook builds an in-memory xlsx with the given rows on the first sheet.
func workbook(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row %d: %v", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

var header = []any{"Service", "Case per day", "Number of days", "Report type"}

func TestReadBuildsInputs(t *testing.T) {
	rates := map[string]pricing.BaseRate{
		"Audiometry": {HardCopyPrice: 10},
		"CBC":        {HardCopyPrice: 99},
	}
	r := workbook(t, [][]any{
		header,
		{"Audiometry", 25, 2, "Hard Copy"},
		{"CBC", 40, 2, "hard copy"},
		{"ECG", 30, 3, "digital"},
	})

	got, err := Read(r, pricing.DefaultCatalog(), rates)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Rows) != 3 || len(got.Warnings) != 0 {
		t.Fatalf("unexpected import: %+v", got)
	}

	audio := got.Inputs["Audiometry"]
	if audio.TotalCase != 50 || audio.NumberOfDays != 2 || audio.ReportTypeCost != 500 {
		t.Fatalf("unexpected Audiometry input: %+v", audio)
	}
	cbc := got.Inputs["CBC"]
	if cbc.TotalCase != 80 || cbc.ReportTypeCost != 80*25 {
		t.Fatalf("CBC hard copy must use the fixed price: %+v", cbc)
	}
	if ecg := got.Inputs["ECG"]; ecg.TotalCase != 90 || ecg.ReportTypeCost != 0 {
		t.Fatalf("unexpected ECG input: %+v", ecg)
	}
}

func TestReadWarnsAboveDailyLimit(t *testing.T) {
	r := workbook(t, [][]any{
		header,
		{"ECG", 150, 1, ""},
		{"Coordinator", 5000, 1, ""},
	})

	got, err := Read(r, pricing.DefaultCatalog(), nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := pricing.Warning{Service: "ECG", Field: ColCasePerDay, Kind: pricing.KindCaseLimit}
	if len(got.Warnings) != 1 || got.Warnings[0] != want {
		t.Fatalf("warnings = %+v, want [%v]", got.Warnings, want)
	}
	if got.Inputs["ECG"].TotalCase != 150 {
		t.Fatalf("limit warning must not change the input: %+v", got.Inputs["ECG"])
	}
}

func TestReadClampsBadCells(t *testing.T) {
	r := workbook(t, [][]any{
		header,
		{"Vitals", "-4", "many", "fax"},
	})

	got, err := Read(r, pricing.DefaultCatalog(), nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Warnings) != 3 {
		t.Fatalf("expected 3 clamp warnings, got %+v", got.Warnings)
	}
	for _, w := range got.Warnings {
		if w.Kind != pricing.KindClamped {
			t.Fatalf("unexpected warning %v", w)
		}
	}
	if in := got.Inputs["Vitals"]; in.TotalCase != 0 || in.NumberOfDays != 0 {
		t.Fatalf("expected zero input, got %+v", in)
	}
}

func TestReadSumsRepeatedServices(t *testing.T) {
	r := workbook(t, [][]any{
		header,
		{"X-ray", 50, 2, ""},
		{"X-ray", 20, 3, ""},
		{"", 99, 9, ""},
	})

	got, err := Read(r, pricing.DefaultCatalog(), nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	in := got.Inputs["X-ray"]
	if in.TotalCase != 160 || in.NumberOfDays != 3 {
		t.Fatalf("unexpected merged input: %+v", in)
	}
	if len(got.Rows) != 2 || got.Rows[1].Line != 3 {
		t.Fatalf("unexpected rows: %+v", got.Rows)
	}
}

func TestReadKeepsUnknownServices(t *testing.T) {
	r := workbook(t, [][]any{header, {"Reiki", 10, 1, ""}})

	got, err := Read(r, pricing.DefaultCatalog(), nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, ok := got.Inputs["Reiki"]; !ok {
		t.Fatalf("unknown service must be passed on for the aggregator to reject")
	}
}

func TestReadRejectsMissingColumns(t *testing.T) {
	r := workbook(t, [][]any{{"Service", "Cases"}, {"ECG", 10}})

	if _, err := Read(r, pricing.DefaultCatalog(), nil); err == nil || !strings.Contains(err.Error(), "case_per_day") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestReadRejectsHeaderOnly(t *testing.T) {
	if _, err := Read(workbook(t, [][]any{header}), pricing.DefaultCatalog(), nil); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestReadFileCSV(t *testing.T) {
	input := "service,case_per_day,number_of_days,report_type\nOptometry,60,2,hard copy\n"
	rates := map[string]pricing.BaseRate{"Optometry": {HardCopyPrice: 4}}

	got, err := ReadFile("camp.CSV", strings.NewReader(input), pricing.DefaultCatalog(), rates)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	in := got.Inputs["Optometry"]
	if in.TotalCase != 120 || in.ReportTypeCost != 480 {
		t.Fatalf("unexpected input: %+v", in)
	}
}
