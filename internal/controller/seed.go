package controller

import (
	"context"
	"fmt"

	"github.com/Makepad-fr/tada/internal/model"
)

// DemoItems is Leonardo's list, used to populate an empty store.
var DemoItems = []model.Item{
	{Title: "Design a new flying machine concept.", Completed: true},
	{Title: "Finish sketch of the Last Supper.", Completed: true},
	{Title: "Research the mechanics of bird flight.", Completed: true},
	{Title: "Experiment with new painting techniques."},
	{Title: "Write notes on fluid dynamics."},
}

// Seed replaces every item with items.
func Seed(ctx context.Context, s Store, items []model.Item) error {
	if err := s.DeleteAllItems(ctx); err != nil {
		return err
	}
	for _, it := range items {
		if _, err := s.InsertItemWithStatus(ctx, it.Title, it.Completed); err != nil {
			return fmt.Errorf("seed %q: %w", it.Title, err)
		}
	}
	return nil
}

// SeedIfEmpty seeds the demo items when the store holds nothing. It reports
// whether it did.
func SeedIfEmpty(ctx context.Context, s Store) (bool, error) {
	counts, err := s.ItemCounts(ctx)
	if err != nil {
		return false, err
	}
	if counts.Total > 0 {
		return false, nil
	}
	return true, Seed(ctx, s, DemoItems)
}
