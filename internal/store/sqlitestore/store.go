// Package sqlitestore is the todo store: a single SQLite connection whose
// temporary triggers and commit hook turn every mutation into an Event.
//
// Events raised while a statement runs are buffered and delivered after the
// statement returns, so listeners are free to query the store again.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Makepad-fr/tada/internal/model"
)

var (
	ErrNotFound   = errors.New("item not found")
	ErrEmptyTitle = errors.New("title cannot be empty")
)

// Store owns the database handle and the listener registry.
type Store struct {
	db  *sql.DB
	log *slog.Logger

	mu      sync.Mutex // serializes statements; guards pending
	pending []Event

	lmu          sync.Mutex
	listeners    map[EventType]map[uint64]Listener
	nextListener uint64
}

// Open opens (creating if needed) the database at path. Use ":memory:" for a
// throwaway store.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{log: log}

	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_busy_timeout=5000"
	}
	db := sql.OpenDB(newConnector(dsn, s))
	// Temporary triggers, views and functions are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	s.db = db

	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Debug("store opened", "path", path)
	return s, nil
}

// Init forces the connection open, which creates the schema and installs
// the triggers.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// exec runs a mutating statement and then delivers whatever it raised.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.trace(query, args)
	s.mu.Lock()
	res, err := s.db.ExecContext(ctx, query, args...)
	evs := s.takePending(err)
	s.mu.Unlock()
	s.dispatchAll(evs)
	return res, err
}

// takePending hands over the buffered events. A failed statement delivers
// nothing: its changes were rolled back.
func (s *Store) takePending(err error) []Event {
	evs := s.pending
	s.pending = nil
	if err != nil {
		return nil
	}
	return evs
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	s.trace(query, args)
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Completed); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ItemTitle returns the stored title of id.
func (s *Store) ItemTitle(ctx context.Context, id int64) (string, error) {
	const q = `SELECT title FROM todos WHERE id = ?`
	s.trace(q, []any{id})
	s.mu.Lock()
	defer s.mu.Unlock()

	var title string
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("item %d: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("get title: %w", err)
	}
	return title, nil
}

// AllItems lists every item in id order.
func (s *Store) AllItems(ctx context.Context) ([]model.Item, error) {
	items, err := s.queryItems(ctx, `SELECT id, title, completed FROM todos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// ItemsByCompleted lists items with the given status in id order.
func (s *Store) ItemsByCompleted(ctx context.Context, completed bool) ([]model.Item, error) {
	items, err := s.queryItems(ctx,
		`SELECT id, title, completed FROM todos WHERE completed = ? ORDER BY id`, completed)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Items lists what route r shows.
func (s *Store) Items(ctx context.Context, r model.Route) ([]model.Item, error) {
	switch r {
	case model.RouteActive:
		return s.ItemsByCompleted(ctx, false)
	case model.RouteCompleted:
		return s.ItemsByCompleted(ctx, true)
	}
	return s.AllItems(ctx)
}

// InsertItem adds an active item and returns its id.
func (s *Store) InsertItem(ctx context.Context, title string) (int64, error) {
	return s.InsertItemWithStatus(ctx, title, false)
}

// InsertItemWithStatus adds an item with an explicit completed status.
func (s *Store) InsertItemWithStatus(ctx context.Context, title string, completed bool) (int64, error) {
	if strings.TrimSpace(title) == "" {
		return 0, ErrEmptyTitle
	}
	const q = `INSERT INTO todos (title, completed) VALUES (?, ?) RETURNING id`
	s.trace(q, []any{title, completed})

	s.mu.Lock()
	var id int64
	err := s.db.QueryRowContext(ctx, q, title, completed).Scan(&id)
	evs := s.takePending(err)
	s.mu.Unlock()
	s.dispatchAll(evs)

	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	return id, nil
}

// SetItemTitle renames id. An unchanged title raises no updatedTitle event.
func (s *Store) SetItemTitle(ctx context.Context, id int64, title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	res, err := s.exec(ctx, `UPDATE todos SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("set title: %w", err)
	}
	return mustAffect(res, id)
}

// SetItemCompleted sets the completed status of id.
func (s *Store) SetItemCompleted(ctx context.Context, id int64, completed bool) error {
	res, err := s.exec(ctx, `UPDATE todos SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		return fmt.Errorf("set completed: %w", err)
	}
	return mustAffect(res, id)
}

// DeleteItem removes id.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return mustAffect(res, id)
}

// DeleteCompletedItems removes every completed item and reports how many.
func (s *Store) DeleteCompletedItems(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM todos WHERE completed = 1`)
	if err != nil {
		return 0, fmt.Errorf("delete completed: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SetAllItemsCompleted marks every item completed (or active).
func (s *Store) SetAllItemsCompleted(ctx context.Context, completed bool) error {
	if _, err := s.exec(ctx, `UPDATE todos SET completed = ?`, completed); err != nil {
		return fmt.Errorf("set all completed: %w", err)
	}
	return nil
}

// DeleteAllItems empties the list.
func (s *Store) DeleteAllItems(ctx context.Context) error {
	if _, err := s.exec(ctx, `DELETE FROM todos`); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	return nil
}

// ItemCounts reads the todo_counts view.
func (s *Store) ItemCounts(ctx context.Context) (model.Counts, error) {
	const q = `SELECT active_count, total_count FROM todo_counts`
	s.trace(q, nil)
	s.mu.Lock()
	defer s.mu.Unlock()

	var c model.Counts
	if err := s.db.QueryRowContext(ctx, q).Scan(&c.Active, &c.Total); err != nil {
		return model.Counts{}, fmt.Errorf("count items: %w", err)
	}
	return c, nil
}

// DataVersion returns PRAGMA data_version. It changes whenever another
// connection commits to the same database file.
func (s *Store) DataVersion(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var v int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("data_version: %w", err)
	}
	return v, nil
}

// Invalidate tells listeners that any data may have changed underneath them.
// Call it on the goroutine that owns the listeners.
func (s *Store) Invalidate() {
	s.dispatch(Event{Type: EventUpdateAllData})
}

func mustAffect(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return nil
}
