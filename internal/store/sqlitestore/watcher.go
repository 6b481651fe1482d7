package sqlitestore

import (
	"context"
	"time"
)

// Watch polls PRAGMA data_version every interval and calls onChange when
// another connection (another tada process, a sqlite3 shell) has committed
// to the same file. It blocks until ctx is done.
//
// onChange runs on the watcher goroutine; callers that own listeners
// usually hop back to their own goroutine and call Invalidate there.
func (s *Store) Watch(ctx context.Context, interval time.Duration, onChange func()) error {
	last, err := s.DataVersion(ctx)
	if err != nil {
		return err
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			v, err := s.DataVersion(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.log.Error("poll data_version", "err", err)
				continue
			}
			if v != last {
				last = v
				s.log.Debug("external change detected", "data_version", v)
				onChange()
			}
		}
	}
}
