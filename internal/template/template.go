// Package template renders the todo list as TodoMVC-style HTML.
package template

import (
	"fmt"
	"html"
	"strings"

	"github.com/Makepad-fr/tada/internal/model"
)

// ItemHTML renders a single list entry.
func ItemHTML(it model.Item) string {
	class, checked := "", ""
	if it.Completed {
		class, checked = ` class="completed"`, " checked"
	}
	return fmt.Sprintf(`
	<li data-id="%d"%s>
		<div class="view">
			<form method="post" action="/todos/%d/toggle"><input type="hidden" name="completed" value="%t"><input class="toggle" type="checkbox" onchange="this.form.submit()"%s></form>
			<label ondblclick="location.search='edit=%d'">%s</label>
			<form method="post" action="/todos/%d/delete"><button class="destroy"></button></form>
		</div>
	</li>`, it.ID, class, it.ID, !it.Completed, checked, it.ID, html.EscapeString(it.Title), it.ID)
}

// EditItemHTML renders an entry in edit mode.
func EditItemHTML(it model.Item) string {
	return fmt.Sprintf(`
	<li data-id="%d" class="editing">
		<form method="post" action="/todos/%d/title"><input class="edit" name="title" value="%s" autofocus></form>
	</li>`, it.ID, it.ID, html.EscapeString(it.Title))
}

// ItemList renders the contents of the todo list; editingID (if non-zero)
// is shown with an edit box.
func ItemList(items []model.Item, editingID int64) string {
	var b strings.Builder
	for _, it := range items {
		if it.ID == editingID {
			b.WriteString(EditItemHTML(it))
			continue
		}
		b.WriteString(ItemHTML(it))
	}
	return b.String()
}

// ItemCounter formats the "items left" indicator.
func ItemCounter(active int) string {
	if active == 1 {
		return "1 item left"
	}
	return fmt.Sprintf("%d items left", active)
}
