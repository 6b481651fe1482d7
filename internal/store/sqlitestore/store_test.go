package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/logger"
	"github.com/Makepad-fr/tada/internal/model"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "todos.sqlite3")
	s, err := Open(context.Background(), p, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, p
}

// recorder collects item and commit events in arrival order.
type recorder struct{ events []Event }

func (r *recorder) listen(s *Store, types ...EventType) {
	for _, t := range types {
		s.AddEventListener(t, func(ev Event) { r.events = append(r.events, ev) })
	}
}

func (r *recorder) types() []EventType {
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

var itemEvents = []EventType{EventInsertedItem, EventDeletedItem, EventUpdatedTitle, EventUpdatedCompleted, EventCommit}

func TestInsertAndList(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	rec := &recorder{}
	rec.listen(s, itemEvents...)

	id1, err := s.InsertItem(ctx, "Buy milk")
	require.NoError(t, err)
	id2, err := s.InsertItemWithStatus(ctx, "Walk dog", true)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	items, err := s.AllItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Item{
		{ID: id1, Title: "Buy milk"},
		{ID: id2, Title: "Walk dog", Completed: true},
	}, items)

	assert.Equal(t, []EventType{EventInsertedItem, EventCommit, EventInsertedItem, EventCommit}, rec.types())
	assert.Equal(t, model.Item{ID: id2, Title: "Walk dog", Completed: true}, rec.events[2].Item)
}

func TestInsertEmptyTitle(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	_, err := s.InsertItem(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestCheckConstraintRejectsEmptyTitle(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	rec := &recorder{}
	rec.listen(s, itemEvents...)

	_, err := s.SelectObjects(ctx, `INSERT INTO todos (title) VALUES ('')`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHECK constraint failed")
	assert.Empty(t, rec.events)

	c, err := s.ItemCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Counts{}, c)
}

func TestUpdateTitle(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	id, err := s.InsertItem(ctx, "Buy milk")
	require.NoError(t, err)

	rec := &recorder{}
	rec.listen(s, EventUpdatedTitle)

	require.NoError(t, s.SetItemTitle(ctx, id, "Buy milk"))
	assert.Empty(t, rec.events, "unchanged title must not notify")

	require.NoError(t, s.SetItemTitle(ctx, id, "Buy oat milk"))
	require.Len(t, rec.events, 1)
	assert.Equal(t, model.Item{ID: id, Title: "Buy oat milk"}, rec.events[0].Item)

	title, err := s.ItemTitle(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", title)

	assert.ErrorIs(t, s.SetItemTitle(ctx, id, ""), ErrEmptyTitle)
	assert.ErrorIs(t, s.SetItemTitle(ctx, id+100, "x"), ErrNotFound)
}

func TestSetCompleted(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	id, err := s.InsertItem(ctx, "Read book")
	require.NoError(t, err)

	rec := &recorder{}
	rec.listen(s, EventUpdatedCompleted)

	require.NoError(t, s.SetItemCompleted(ctx, id, false))
	assert.Empty(t, rec.events)

	require.NoError(t, s.SetItemCompleted(ctx, id, true))
	require.Len(t, rec.events, 1)
	assert.Equal(t, model.Item{ID: id, Title: "Read book", Completed: true}, rec.events[0].Item)

	done, err := s.ItemsByCompleted(ctx, true)
	require.NoError(t, err)
	assert.Len(t, done, 1)
	active, err := s.Items(ctx, model.RouteActive)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestDeleteAndBulkOperations(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	a, _ := s.InsertItem(ctx, "a")
	b, _ := s.InsertItemWithStatus(ctx, "b", true)
	c, _ := s.InsertItemWithStatus(ctx, "c", true)

	rec := &recorder{}
	rec.listen(s, EventDeletedItem)

	n, err := s.DeleteCompletedItems(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	require.Len(t, rec.events, 2)
	assert.ElementsMatch(t, []int64{b, c}, []int64{rec.events[0].Item.ID, rec.events[1].Item.ID})

	require.NoError(t, s.SetAllItemsCompleted(ctx, true))
	counts, err := s.ItemCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Counts{Active: 0, Total: 1}, counts)

	require.NoError(t, s.DeleteItem(ctx, a))
	assert.ErrorIs(t, s.DeleteItem(ctx, a), ErrNotFound)

	_, err = s.ItemTitle(ctx, a)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemCounts(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	for _, title := range []string{"one", "two", "three"} {
		_, err := s.InsertItem(ctx, title)
		require.NoError(t, err)
	}
	require.NoError(t, s.SetItemCompleted(ctx, 1, true))

	c, err := s.ItemCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Counts{Active: 2, Total: 3}, c)
	assert.Equal(t, 1, c.Completed())
}

func TestRemoveEventListener(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	calls := 0
	remove := s.AddEventListener(EventInsertedItem, func(Event) { calls++ })
	assert.Equal(t, 1, s.ListenerCount(EventInsertedItem))

	_, err := s.InsertItem(ctx, "first")
	require.NoError(t, err)
	remove()
	assert.Equal(t, 0, s.ListenerCount(EventInsertedItem))
	_, err = s.InsertItem(ctx, "second")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestListenersMayQueryTheStore(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	var seen model.Counts
	s.AddEventListener(EventCommit, func(Event) {
		c, err := s.ItemCounts(ctx)
		require.NoError(t, err)
		seen = c
	})

	_, err := s.InsertItem(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, model.Counts{Active: 1, Total: 1}, seen)
}

func TestSQLTrace(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	var traced []string
	s.AddEventListener(EventSQLTrace, func(ev Event) { traced = append(traced, ev.SQL) })

	_, err := s.InsertItem(ctx, "it's done")
	require.NoError(t, err)
	_, err = s.SelectObjects(ctx, "-- just a comment\nSELECT 1")
	require.NoError(t, err)

	require.Len(t, traced, 2)
	assert.Equal(t, `INSERT INTO todos (title, completed) VALUES ('it''s done', 0) RETURNING id`, traced[0])
	assert.Equal(t, "-- just a comment\nSELECT 1", traced[1])
}

func TestSelectObjects(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	_, err := s.InsertItem(ctx, "alpha")
	require.NoError(t, err)

	res, err := s.SelectObjects(ctx, `SELECT id, title, completed FROM todos`)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "title", "completed"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []any{int64(1), "alpha", int64(0)}, res.Rows[0])

	rec := &recorder{}
	rec.listen(s, EventDeletedItem, EventCommit)
	res, err = s.SelectObjects(ctx, `DELETE FROM todos`)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, []EventType{EventDeletedItem, EventCommit}, rec.types())

	_, err = s.SelectObjects(ctx, `SELEC nonsense`)
	assert.Error(t, err)
}

func TestSelectObjectsRunsEveryStatement(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	rec := &recorder{}
	rec.listen(s, EventInsertedItem, EventCommit)

	res, err := s.SelectObjects(ctx,
		"INSERT INTO todos (title) VALUES ('a'); INSERT INTO todos (title) VALUES ('b');\nSELECT title FROM todos ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"a"}, {"b"}}, res.Rows)
	assert.Equal(t,
		[]EventType{EventInsertedItem, EventCommit, EventInsertedItem, EventCommit},
		rec.types())

	items, err := s.AllItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Item{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}, items)
}

func TestSelectObjectsStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	rec := &recorder{}
	rec.listen(s, EventInsertedItem)

	_, err := s.SelectObjects(ctx,
		"INSERT INTO todos (title) VALUES ('kept'); INSERT INTO todos (title) VALUES (''); INSERT INTO todos (title) VALUES ('never')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")
	require.Len(t, rec.events, 1)
	assert.Equal(t, "kept", rec.events[0].Item.Title)

	items, err := s.AllItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Item{{ID: 1, Title: "kept"}}, items)
}

func TestSelectObjectsCommentsOnly(t *testing.T) {
	s, _ := openTestStore(t)
	res, err := s.SelectObjects(context.Background(), "-- nothing to run\n/* still nothing */ ;")
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestWatchSeesOtherConnections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, path := openTestStore(t)
	b, err := Open(ctx, path, logger.Discard())
	require.NoError(t, err)
	defer b.Close()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, 10*time.Millisecond, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to read its baseline version.
	time.Sleep(50 * time.Millisecond)
	_, err = b.InsertItem(ctx, "from another process")
	require.NoError(t, err)

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not notice the external commit")
	}

	cancel()
	require.NoError(t, <-done)

	items, err := a.AllItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestInvalidate(t *testing.T) {
	s, _ := openTestStore(t)
	hits := 0
	s.AddEventListener(EventUpdateAllData, func(Event) { hits++ })
	s.Invalidate()
	assert.Equal(t, 1, hits)
}
