package controller

import (
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
)

// View is everything the controller needs from a renderer. The terminal UI
// and the HTML page both implement it.
type View interface {
	ShowItems(items []model.Item)
	AddItem(item model.Item)
	RemoveItem(id int64)
	SetItemComplete(id int64, completed bool)
	EditItemDone(id int64, title string)
	ClearNewTodo()

	SetItemsLeft(n int)
	SetCompleteAllCheckbox(checked bool)
	SetClearCompletedButtonVisibility(visible bool)
	SetMainVisibility(visible bool)
	UpdateFilterButtons(r model.Route)

	SetSQLInputValue(v string)
	AppendSQLTrace(t Trace)
}

// Trace is one entry in the SQL console: an executed statement, the rows a
// console statement returned, or the error it failed with.
type Trace struct {
	Statement string
	Result    *sqlitestore.Result
	Err       error
}
