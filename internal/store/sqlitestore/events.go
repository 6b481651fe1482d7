package sqlitestore

import (
	"slices"

	"github.com/Makepad-fr/tada/internal/model"
)

// EventType names a change notification raised by the store.
type EventType string

const (
	EventInsertedItem     EventType = "insertedItem"
	EventDeletedItem      EventType = "deletedItem"
	EventUpdatedTitle     EventType = "updatedTitle"
	EventUpdatedCompleted EventType = "updatedCompleted"
	EventCommit           EventType = "commit"
	EventUpdateAllData    EventType = "updateAllData"
	EventSQLTrace         EventType = "sqlTrace"
)

// Event carries whatever the trigger or hook that raised it knew.
// Item is set for the item events (ID only for deletedItem), SQL for sqlTrace.
type Event struct {
	Type EventType
	Item model.Item
	SQL  string
}

// Listener receives events synchronously on the goroutine that caused them.
type Listener func(Event)

// AddEventListener registers fn for events of type t and returns a func
// that removes it again.
func (s *Store) AddEventListener(t EventType, fn Listener) (remove func()) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[EventType]map[uint64]Listener)
	}
	set := s.listeners[t]
	if set == nil {
		set = make(map[uint64]Listener)
		s.listeners[t] = set
	}
	s.nextListener++
	id := s.nextListener
	set[id] = fn
	return func() { s.removeEventListener(t, id) }
}

func (s *Store) removeEventListener(t EventType, id uint64) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	set := s.listeners[t]
	if set == nil {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(s.listeners, t)
	}
}

// ListenerCount reports how many listeners are registered for t.
func (s *Store) ListenerCount(t EventType) int {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	return len(s.listeners[t])
}

// dispatch delivers ev in registration order. The listener set is copied
// first so listeners may add or remove listeners while being called.
func (s *Store) dispatch(ev Event) {
	s.lmu.Lock()
	set := s.listeners[ev.Type]
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, set[id])
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Store) dispatchAll(evs []Event) {
	for _, ev := range evs {
		s.dispatch(ev)
	}
}
