package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

// listItem adapts model.Item to bubbles/list.Item.
type listItem struct {
	item model.Item
}

func (i listItem) Title() string {
	box := ui.Current().BoxUnchecked
	if i.item.Completed {
		box = ui.Current().BoxChecked
	}
	return fmt.Sprintf("%s %s", box, i.item.Title)
}

func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.item.Title }

// itemDelegate renders items on a single line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = ui.Current().Selected.Render("> ")
	}
	fmt.Fprintln(w, prefix+ui.ItemLine(it.item))
}

func toListItems(items []model.Item) []list.Item {
	out := make([]list.Item, 0, len(items))
	for _, it := range items {
		out = append(out, listItem{item: it})
	}
	return out
}
