package sqlitestore

import (
	"context"
	"fmt"
)

// Result is the outcome of an ad hoc console statement.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Empty reports whether the statement produced no rows.
func (r Result) Empty() bool { return len(r.Rows) == 0 }

// SelectObjects runs whatever is typed into the SQL console and collects
// the rows. Mutations go through the triggers like everything else.
// Input holding several statements runs them in order, stopping at the
// first failure, and returns the rows of the last one. Statements that ran
// before a failure stay committed and their events are delivered.
func (s *Store) SelectObjects(ctx context.Context, query string) (Result, error) {
	s.trace(query, nil)
	stmts := SplitStatements(query)

	res := Result{Rows: [][]any{}}
	var (
		evs []Event
		err error
	)
	s.mu.Lock()
	for i, stmt := range stmts {
		res, err = s.selectObjects(ctx, stmt)
		if err != nil {
			if len(stmts) > 1 {
				err = fmt.Errorf("statement %d: %w", i+1, err)
			}
			break
		}
		evs = append(evs, s.takePending(nil)...)
	}
	s.pending = nil
	s.mu.Unlock()
	s.dispatchAll(evs)
	return res, err
}

func (s *Store) selectObjects(ctx context.Context, query string) (Result, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("columns: %w", err)
	}
	out := Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, fmt.Errorf("scan: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out.Rows = append(out.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	// Close before the caller takes pending events: an autocommit write
	// commits when its statement is reset.
	if err := rows.Close(); err != nil {
		return Result{}, err
	}
	return out, nil
}
