// Package viewstate is a renderer-neutral projection of the todo list. It
// implements controller.View by recording what a DOM would show; the
// terminal UI and the HTML page each draw it their own way.
package viewstate

import (
	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/model"
)

const defaultTraceLimit = 200

type State struct {
	Items []model.Item // ordered by id
	Route model.Route

	ItemsLeft          int
	AllCompleted       bool
	ShowClearCompleted bool
	ShowMain           bool

	EditingID int64 // 0 when not editing

	Traces     []controller.Trace // oldest first
	TraceLimit int

	newTodoCleared bool
	sqlInput       string
	sqlInputSet    bool
}

var _ controller.View = (*State)(nil)

func New() *State { return &State{TraceLimit: defaultTraceLimit} }

func (s *State) index(id int64) int {
	for i, it := range s.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Item returns the rendered item with id.
func (s *State) Item(id int64) (model.Item, bool) {
	if i := s.index(id); i >= 0 {
		return s.Items[i], true
	}
	return model.Item{}, false
}

func (s *State) ShowItems(items []model.Item) {
	s.Items = append(s.Items[:0:0], items...)
}

// AddItem inserts item before the first rendered item with a larger id.
func (s *State) AddItem(item model.Item) {
	if i := s.index(item.ID); i >= 0 {
		s.Items[i] = item
		return
	}
	for i, it := range s.Items {
		if it.ID > item.ID {
			s.Items = append(s.Items[:i], append([]model.Item{item}, s.Items[i:]...)...)
			return
		}
	}
	s.Items = append(s.Items, item)
}

func (s *State) RemoveItem(id int64) {
	if i := s.index(id); i >= 0 {
		s.Items = append(s.Items[:i], s.Items[i+1:]...)
	}
	if s.EditingID == id {
		s.EditingID = 0
	}
}

func (s *State) SetItemComplete(id int64, completed bool) {
	if i := s.index(id); i >= 0 {
		s.Items[i].Completed = completed
	}
}

// BeginEdit puts id into edit mode.
func (s *State) BeginEdit(id int64) bool {
	if s.index(id) < 0 {
		return false
	}
	s.EditingID = id
	return true
}

func (s *State) EditItemDone(id int64, title string) {
	if i := s.index(id); i >= 0 {
		s.Items[i].Title = title
	}
	if s.EditingID == id {
		s.EditingID = 0
	}
}

func (s *State) ClearNewTodo() { s.newTodoCleared = true }

// TakeNewTodoCleared reports (once) whether the new-todo input was cleared.
func (s *State) TakeNewTodoCleared() bool {
	c := s.newTodoCleared
	s.newTodoCleared = false
	return c
}

func (s *State) SetItemsLeft(n int)                       { s.ItemsLeft = n }
func (s *State) SetCompleteAllCheckbox(checked bool)      { s.AllCompleted = checked }
func (s *State) SetClearCompletedButtonVisibility(v bool) { s.ShowClearCompleted = v }
func (s *State) SetMainVisibility(v bool)                 { s.ShowMain = v }
func (s *State) UpdateFilterButtons(r model.Route)        { s.Route = r }

func (s *State) SetSQLInputValue(v string) {
	s.sqlInput = v
	s.sqlInputSet = true
}

// TakeSQLInput returns the console input the controller asked for, once.
func (s *State) TakeSQLInput() (string, bool) {
	v, ok := s.sqlInput, s.sqlInputSet
	s.sqlInput, s.sqlInputSet = "", false
	return v, ok
}

func (s *State) AppendSQLTrace(t controller.Trace) {
	s.Traces = append(s.Traces, t)
	limit := s.TraceLimit
	if limit <= 0 {
		limit = defaultTraceLimit
	}
	if len(s.Traces) > limit {
		s.Traces = append(s.Traces[:0:0], s.Traces[len(s.Traces)-limit:]...)
	}
}
