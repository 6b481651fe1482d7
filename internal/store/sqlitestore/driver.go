package sqlitestore

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/Makepad-fr/tada/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS todos (
  id INTEGER PRIMARY KEY,
  title TEXT NOT NULL,
  completed INTEGER NOT NULL DEFAULT 0,
  CHECK (title <> ''),
  CHECK (completed IN (0, 1)));
CREATE INDEX IF NOT EXISTS completed_index ON todos (completed);`

// Temporary objects live per connection, so they are recreated every time
// the driver opens one.
const tempSchema = `
CREATE TEMPORARY VIEW IF NOT EXISTS todo_counts AS
SELECT
  (SELECT COUNT() FROM todos WHERE completed = 0) AS active_count,
  (SELECT COUNT() FROM todos) AS total_count;

CREATE TEMPORARY TRIGGER IF NOT EXISTS insert_trigger AFTER INSERT ON todos
  BEGIN SELECT inserted_item_fn(new.id, new.title, new.completed); END;

CREATE TEMPORARY TRIGGER IF NOT EXISTS delete_trigger AFTER DELETE ON todos
  BEGIN SELECT deleted_item_fn(old.id); END;

CREATE TEMPORARY TRIGGER IF NOT EXISTS update_title_trigger AFTER UPDATE OF title ON todos
  WHEN old.title <> new.title
  BEGIN SELECT updated_title_fn(new.id, new.title); END;

CREATE TEMPORARY TRIGGER IF NOT EXISTS update_completed_trigger AFTER UPDATE OF completed ON todos
  WHEN old.completed <> new.completed
  BEGIN SELECT updated_completed_fn(new.id, new.title, new.completed); END;`

// connector opens mattn/go-sqlite3 connections with the store's hooks
// installed. Using sql.OpenDB avoids registering a global driver name per
// store.
type connector struct {
	dsn    string
	driver *sqlite3.SQLiteDriver
}

func (c *connector) Connect(context.Context) (driver.Conn, error) { return c.driver.Open(c.dsn) }
func (c *connector) Driver() driver.Driver                        { return c.driver }

func newConnector(dsn string, s *Store) *connector {
	return &connector{
		dsn: dsn,
		driver: &sqlite3.SQLiteDriver{
			ConnectHook: s.connectHook,
		},
	}
}

// connectHook runs once per new connection: schema, trigger functions,
// temporary triggers, and commit/rollback hooks.
func (s *Store) connectHook(conn *sqlite3.SQLiteConn) error {
	if _, err := conn.Exec(schema, nil); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	funcs := map[string]any{
		"inserted_item_fn": func(id int64, title string, completed int64) int64 {
			s.raise(Event{Type: EventInsertedItem, Item: model.Item{ID: id, Title: title, Completed: completed != 0}})
			return 0
		},
		"deleted_item_fn": func(id int64) int64 {
			s.raise(Event{Type: EventDeletedItem, Item: model.Item{ID: id}})
			return 0
		},
		"updated_title_fn": func(id int64, title string) int64 {
			s.raise(Event{Type: EventUpdatedTitle, Item: model.Item{ID: id, Title: title}})
			return 0
		},
		"updated_completed_fn": func(id int64, title string, completed int64) int64 {
			s.raise(Event{Type: EventUpdatedCompleted, Item: model.Item{ID: id, Title: title, Completed: completed != 0}})
			return 0
		},
	}
	for name, fn := range funcs {
		if err := conn.RegisterFunc(name, fn, false); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}

	if _, err := conn.Exec(tempSchema, nil); err != nil {
		return fmt.Errorf("create temp schema: %w", err)
	}

	conn.RegisterCommitHook(func() int {
		s.raise(Event{Type: EventCommit})
		return 0
	})
	conn.RegisterRollbackHook(func() {
		s.pending = s.pending[:0]
	})
	return nil
}

// raise buffers an event. Hooks fire inside sqlite3_step, which only ever
// runs while s.mu is held, so pending needs no extra locking.
func (s *Store) raise(ev Event) {
	s.pending = append(s.pending, ev)
}
