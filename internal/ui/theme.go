package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme bundles palette + symbols + box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Title, Muted, Accent, Success, Error, Pending lipgloss.Style
	Selected, Done, Help                          lipgloss.Style

	Border                   lipgloss.Border
	BorderColor              lipgloss.TerminalColor
	BoxUnchecked, BoxChecked string
	SymDone, SymPending      string
	SymOK, SymFail           string
}

var current = classic()

// SetTheme switches between classic, neon and mono; unknown names are classic.
func SetTheme(name string) {
	switch strings.ToLower(name) {
	case "neon":
		current = neon()
	case "mono":
		current = mono()
	default:
		current = classic()
	}
}

// Current exposes what renderers need.
func Current() Theme { return current }

func classic() Theme {
	return Theme{
		Title:    lipgloss.NewStyle().Bold(true),
		Muted:    lipgloss.NewStyle().Faint(true),
		Accent:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Selected: lipgloss.NewStyle().Bold(true).Reverse(true),
		Done:     lipgloss.NewStyle().Faint(true).Strikethrough(true),
		Help:     lipgloss.NewStyle().Faint(true),

		Border:       lipgloss.RoundedBorder(),
		BorderColor:  lipgloss.Color("8"),
		BoxUnchecked: "☐", BoxChecked: "☑",
		SymDone: "✔", SymPending: "•",
		SymOK: "✔", SymFail: "✖",
	}
}

func neon() Theme {
	t := classic()
	t.Title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	t.Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	t.Pending = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	t.BorderColor = lipgloss.Color("13")
	t.BoxUnchecked, t.BoxChecked = "◻", "◼"
	return t
}

func mono() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Title: plain, Muted: plain, Accent: plain, Success: plain, Error: plain, Pending: plain,
		Selected: plain, Done: plain, Help: plain,

		Border:       lipgloss.ASCIIBorder(),
		BorderColor:  lipgloss.NoColor{},
		BoxUnchecked: "[ ]", BoxChecked: "[x]",
		SymDone: "x", SymPending: "-",
		SymOK: "ok", SymFail: "error:",
	}
}
