// Package jsonstore reads and writes JSON backups of the todo list. The
// SQLite store stays the source of truth; a backup is a plain array of
// items that can be imported into any store.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Makepad-fr/tada/internal/model"
)

const dataFileName = "todos.json"

// ErrUntitled marks a backup entry whose title is blank.
var ErrUntitled = errors.New("untitled item")

// DefaultPath is todos.json in the working directory.
func DefaultPath() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	return filepath.Join(wd, dataFileName), nil
}

// Load reads a backup for import. Titles come back trimmed; a blank one
// rejects the whole file so an import never half-applies.
func Load(p string) ([]model.Item, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	var items []model.Item
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	for i := range items {
		items[i].Title = strings.TrimSpace(items[i].Title)
		if items[i].Title == "" {
			return nil, fmt.Errorf("entry %d (id %d): %w", i+1, items[i].ID, ErrUntitled)
		}
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// Save writes items as indented JSON. The file is replaced in one rename,
// so an interrupted export leaves the previous backup intact.
func Save(p string, items []model.Item) (err error) {
	if items == nil {
		items = []model.Item{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	b = append(b, '\n')

	f, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(b); err != nil {
		_ = f.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err = f.Chmod(0o644); err != nil {
		_ = f.Close()
		return fmt.Errorf("chmod backup: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}
	if err = os.Rename(f.Name(), p); err != nil {
		return fmt.Errorf("rename backup: %w", err)
	}
	return nil
}
