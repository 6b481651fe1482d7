package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/Makepad-fr/tada/internal/model"
)

// Out and Err are where OK/Fail/Panel print; tests swap them.
var (
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr
)

func OK(msg string)   { fmt.Fprintln(Out, current.Success.Render(current.SymOK+" "+msg)) }
func Fail(msg string) { fmt.Fprintln(Err, current.Error.Render(current.SymFail+" "+msg)) }

// Hint prints a muted follow-up line under a failure.
func Hint(msg string) { fmt.Fprintln(Err, current.Muted.Render(msg)) }

// PanelString frames inner with the theme's border.
func PanelString(inner string) string {
	return lipgloss.NewStyle().
		Border(current.Border).
		BorderForeground(current.BorderColor).
		Padding(0, 1).
		Render(inner)
}

// Panel draws a framed box around lines.
func Panel(lines []string) { fmt.Fprintln(Out, PanelString(strings.Join(lines, "\n"))) }

// ProgressBar renders a Unicode progress bar with a done/total suffix.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := int(float64(done) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf("] %d/%d", done, total)
}

// Header is the "Todos ✔ 3 • 2 Total 5" line.
func Header(c model.Counts) string {
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		current.Title.Render("Todos"),
		current.Success.Render(current.SymDone), c.Completed(),
		current.Pending.Render(current.SymPending), c.Active,
		current.Accent.Render("Total"), c.Total,
	)
}

// ItemLine renders one item: "#12 ☑ title".
func ItemLine(it model.Item) string {
	box, text := current.Muted.Render(current.BoxUnchecked), it.Title
	if it.Completed {
		box, text = current.Success.Render(current.BoxChecked), current.Done.Render(it.Title)
	}
	return fmt.Sprintf("%s %s %s", current.Muted.Render(fmt.Sprintf("#%-3d", it.ID)), box, text)
}

// maxTitleWidth is how many cells a title may take in a list line.
const maxTitleWidth = 80

// ItemLines renders items, or a muted placeholder when there are none.
func ItemLines(items []model.Item) []string {
	if len(items) == 0 {
		return []string{current.Muted.Render("no items")}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		it.Title = ansi.Truncate(it.Title, maxTitleWidth, "...")
		out = append(out, ItemLine(it))
	}
	return out
}

// GroupLines splits items into Pending and Done sections.
func GroupLines(items []model.Item) []string {
	var pend, done []model.Item
	for _, it := range items {
		if it.Completed {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	section := func(name string, items []model.Item) []string {
		lines := []string{current.Accent.Render(name)}
		if len(items) == 0 {
			return append(lines, current.Muted.Render("(none)"))
		}
		return append(lines, ItemLines(items)...)
	}
	lines := section("Pending", pend)
	lines = append(lines, "")
	return append(lines, section("Done", done)...)
}

// Table renders console rows with lipgloss/table.
func Table(columns []string, rows [][]string) string {
	t := table.New().
		Border(current.Border).
		BorderStyle(lipgloss.NewStyle().Foreground(current.BorderColor)).
		Headers(columns...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return current.Title.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.String()
}
