package report

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"phonefleet/internal/fleet"
	"phonefleet/internal/preflight"
)

// Alignment selects the horizontal alignment of a column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Stat is one labelled count shown in a stage table.
type Stat struct {
	Label string
	Value int
}

// RenderTable formats rows as a rounded table. Missing cells render empty.
func RenderTable(headers []string, rows [][]string, aligns []Alignment, colorize bool) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if colorize {
		style := table.StyleRounded
		style.Color.Header = text.Colors{text.Bold, text.FgBlue}
		tw.SetStyle(style)
	}

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// WriteStats prints a titled two-column table of counts.
func WriteStats(w io.Writer, title string, stats []Stat) error {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{s.Label, strconv.Itoa(s.Value)})
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", title, RenderTable([]string{"Step", "Rows"}, rows, []Alignment{AlignLeft, AlignRight}, ShouldColorize(w)))
	return err
}

// WriteTopUsers prints the first limit users of a replacement summary. A
// non-positive limit prints every user.
func WriteTopUsers(w io.Writer, summary []fleet.UserReplacementSummary, limit int) error {
	if len(summary) == 0 {
		_, err := fmt.Fprintln(w, "No early replacements detected.")
		return err
	}
	if limit <= 0 || limit > len(summary) {
		limit = len(summary)
	}
	rows := make([][]string, 0, limit)
	for _, s := range summary[:limit] {
		rows = append(rows, []string{string(s.UserID), s.UserName, strconv.Itoa(s.Count)})
	}
	_, err := fmt.Fprintf(w, "Top %d users by early replacements\n%s\n", limit,
		RenderTable([]string{"User", "Name", "Early replacements"}, rows, []Alignment{AlignRight, AlignLeft, AlignRight}, ShouldColorize(w)))
	return err
}

// WriteChecks prints preflight results with a status column.
func WriteChecks(w io.Writer, results []preflight.Result) error {
	colorize := ShouldColorize(w)
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Name, checkStatus(r, colorize), r.Detail})
	}
	_, err := fmt.Fprintln(w, RenderTable([]string{"Check", "Status", "Detail"}, rows, nil, colorize))
	return err
}

func checkStatus(r preflight.Result, colorize bool) string {
	label, color := "OK", text.FgGreen
	switch {
	case r.Passed:
	case r.Optional:
		label, color = "WARN", text.FgYellow
	default:
		label, color = "ERROR", text.FgRed
	}
	if colorize {
		return color.Sprint(label)
	}
	return label
}

// ShouldColorize reports whether writer is a terminal.
func ShouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
