package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"phonefleet/internal/fleet"
	"phonefleet/internal/preflight"
	"phonefleet/internal/tabular"
)

func TestRenderTablePadsMissingCells(t *testing.T) {
	out := RenderTable([]string{"A", "B"}, [][]string{{"x"}}, []Alignment{AlignLeft, AlignRight}, false)
	if !strings.Contains(out, "A") || !strings.Contains(out, "x") {
		t.Fatalf("unexpected table %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("uncolored table should not contain escapes: %q", out)
	}
	if RenderTable(nil, nil, nil, false) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStats(&buf, "Clean", []Stat{{Label: "Duplicates removed", Value: 3}}); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Clean", "Duplicates removed", "3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestWriteTopUsersLimits(t *testing.T) {
	summary := []fleet.UserReplacementSummary{
		{UserID: "6", UserName: "Bruno", Count: 3},
		{UserID: "8", UserName: "Chloé", Count: 1},
		{UserID: "10", UserName: "Inconnu", Count: 1},
	}
	var buf bytes.Buffer
	if err := WriteTopUsers(&buf, summary, 2); err != nil {
		t.Fatalf("WriteTopUsers: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Top 2 users") || !strings.Contains(out, "Chloé") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(out, "Inconnu") {
		t.Fatalf("limit not applied: %q", out)
	}

	buf.Reset()
	if err := WriteTopUsers(&buf, nil, 5); err != nil {
		t.Fatalf("WriteTopUsers: %v", err)
	}
	if !strings.Contains(buf.String(), "No early replacements") {
		t.Fatalf("unexpected empty output %q", buf.String())
	}
}

func TestWriteChecksStatuses(t *testing.T) {
	var buf bytes.Buffer
	results := []preflight.Result{
		{Name: "Devices export", Passed: true, Detail: "ok"},
		{Name: "Phone models export", Optional: true, Detail: "missing"},
		{Name: "Users export", Detail: "missing"},
	}
	if err := WriteChecks(&buf, results); err != nil {
		t.Fatalf("WriteChecks: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"OK", "WARN", "ERROR"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "flotte.xlsx")
	sheets := []Sheet{
		{Name: "cleaned", Table: &tabular.Table{Header: []string{"id", "name"}, Rows: [][]string{{"1", "Pixel 7"}}}},
		{
			Name:           "summary",
			Table:          &tabular.Table{Header: fleet.SummaryColumns, Rows: [][]string{{"6", "Bruno", "3"}}},
			NumericColumns: []string{"nb_remplacements_anticipes"},
		},
		{Name: "empty", Table: &tabular.Table{Header: []string{"users_id"}}},
	}
	if err := WriteWorkbook(path, sheets); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{"cleaned", "summary", "empty"}, f.GetSheetList()); diff != "" {
		t.Fatalf("sheets (-want +got):\n%s", diff)
	}
	rows, err := f.GetRows("summary")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if diff := cmp.Diff([][]string{fleet.SummaryColumns, {"6", "Bruno", "3"}}, rows); diff != "" {
		t.Fatalf("summary rows (-want +got):\n%s", diff)
	}
	cellType, err := f.GetCellType("summary", "C2")
	if err != nil {
		t.Fatalf("GetCellType: %v", err)
	}
	if cellType != excelize.CellTypeNumber && cellType != excelize.CellTypeUnset {
		t.Fatalf("expected numeric count cell, got %v", cellType)
	}
	styleID, err := f.GetCellStyle("cleaned", "A1")
	if err != nil {
		t.Fatalf("GetCellStyle: %v", err)
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		t.Fatalf("GetStyle: %v", err)
	}
	if style.Font == nil || !style.Font.Bold {
		t.Fatal("expected bold header")
	}
}

func TestWriteWorkbookRequiresSheets(t *testing.T) {
	if err := WriteWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), nil); err == nil {
		t.Fatal("expected error without sheets")
	}
}
