// Package controller mediates between the todo store and a View: user
// intents become store mutations, and the store's change events become
// view updates. The controller never updates the view directly after a
// mutation; it waits for the trigger that reports it.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
)

// Store is the subset of the sqlitestore API the controller drives.
type Store interface {
	AddEventListener(t sqlitestore.EventType, fn sqlitestore.Listener) (remove func())

	Items(ctx context.Context, r model.Route) ([]model.Item, error)
	ItemTitle(ctx context.Context, id int64) (string, error)
	ItemCounts(ctx context.Context) (model.Counts, error)

	InsertItem(ctx context.Context, title string) (int64, error)
	InsertItemWithStatus(ctx context.Context, title string, completed bool) (int64, error)
	SetItemTitle(ctx context.Context, id int64, title string) error
	SetItemCompleted(ctx context.Context, id int64, completed bool) error
	DeleteItem(ctx context.Context, id int64) error
	DeleteCompletedItems(ctx context.Context) (int64, error)
	DeleteAllItems(ctx context.Context) error
	SetAllItemsCompleted(ctx context.Context, completed bool) error

	SelectObjects(ctx context.Context, query string) (sqlitestore.Result, error)
}

type Controller struct {
	store   Store
	view    View
	log     *slog.Logger

	route        model.Route
	history      *History
	historyIndex int

	removers []func()
}

// New wires view to store. Call Close to detach from the store's events.
func New(store Store, view View, history *History, log *slog.Logger) *Controller {
	if history == nil {
		history = NewHistory(0)
	}
	if log == nil {
		log = slog.Default()
	}
	session := uuid.NewString()
	c := &Controller{
		store:        store,
		view:         view,
		log:          log.With("session", session),
		history:      history,
		historyIndex: history.Len(),
	}

	c.on(sqlitestore.EventInsertedItem, c.insertedItem)
	c.on(sqlitestore.EventDeletedItem, func(ev sqlitestore.Event) { c.view.RemoveItem(ev.Item.ID) })
	c.on(sqlitestore.EventUpdatedTitle, func(ev sqlitestore.Event) { c.view.EditItemDone(ev.Item.ID, ev.Item.Title) })
	c.on(sqlitestore.EventUpdatedCompleted, c.updatedCompleted)
	c.on(sqlitestore.EventCommit, func(sqlitestore.Event) { c.refreshCounts(context.Background()) })
	c.on(sqlitestore.EventUpdateAllData, func(sqlitestore.Event) {
		if err := c.ReloadView(context.Background()); err != nil {
			c.log.Error("reload after external change", "err", err)
		}
	})
	c.on(sqlitestore.EventSQLTrace, func(ev sqlitestore.Event) { c.view.AppendSQLTrace(Trace{Statement: ev.SQL}) })
	return c
}

func (c *Controller) on(t sqlitestore.EventType, fn sqlitestore.Listener) {
	c.removers = append(c.removers, c.store.AddEventListener(t, fn))
}

// Close detaches the controller from the store.
func (c *Controller) Close() {
	for _, remove := range c.removers {
		remove()
	}
	c.removers = nil
}

func (c *Controller) insertedItem(ev sqlitestore.Event) {
	c.view.ClearNewTodo()
	if c.route.Visible(ev.Item.Completed) {
		c.view.AddItem(ev.Item)
	}
}

func (c *Controller) updatedCompleted(ev sqlitestore.Event) {
	if c.route == model.RouteAll {
		c.view.SetItemComplete(ev.Item.ID, ev.Item.Completed)
		return
	}
	if c.route.Visible(ev.Item.Completed) {
		c.view.AddItem(ev.Item)
	} else {
		c.view.RemoveItem(ev.Item.ID)
	}
}

func (c *Controller) refreshCounts(ctx context.Context) {
	counts, err := c.store.ItemCounts(ctx)
	if err != nil {
		c.log.Error("refresh counts", "err", err)
		return
	}
	c.UpdateViewItemCounts(counts)
}

// UpdateViewItemCounts refreshes the footer, the toggle-all checkbox and
// the visibility of the list and the clear-completed button.
func (c *Controller) UpdateViewItemCounts(counts model.Counts) {
	c.view.SetItemsLeft(counts.Active)
	c.view.SetCompleteAllCheckbox(counts.Total > 0 && counts.Active == 0)
	c.view.SetClearCompletedButtonVisibility(counts.Completed() > 0)
	c.view.SetMainVisibility(counts.Total > 0)
}

// SetView switches to the route named by rawLocationHash
// ("", "#/", "#/active", "#/completed") and renders it.
func (c *Controller) SetView(ctx context.Context, rawLocationHash string) error {
	route := model.ParseRoute(rawLocationHash)
	c.view.UpdateFilterButtons(route)
	c.route = route
	return c.ReloadView(ctx)
}

// ReloadView re-reads counts and the current route's items.
func (c *Controller) ReloadView(ctx context.Context) error {
	counts, err := c.store.ItemCounts(ctx)
	if err != nil {
		return err
	}
	c.UpdateViewItemCounts(counts)
	items, err := c.store.Items(ctx, c.route)
	if err != nil {
		return err
	}
	c.view.ShowItems(items)
	return nil
}

// AddItem stores a new item; the insert trigger puts it on screen.
func (c *Controller) AddItem(ctx context.Context, title string) (int64, error) {
	return c.store.InsertItem(ctx, strings.TrimSpace(title))
}

// EditItemSave saves an edited title. An empty title removes the item.
func (c *Controller) EditItemSave(ctx context.Context, id int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return c.RemoveItem(ctx, id)
	}
	current, err := c.store.ItemTitle(ctx, id)
	if err != nil {
		return err
	}
	if current == title {
		// No trigger fires for an unchanged title.
		c.view.EditItemDone(id, title)
		return nil
	}
	return c.store.SetItemTitle(ctx, id, title)
}

// EditItemCancel leaves edit mode restoring the stored title.
func (c *Controller) EditItemCancel(ctx context.Context, id int64) error {
	title, err := c.store.ItemTitle(ctx, id)
	if err != nil {
		return err
	}
	c.view.EditItemDone(id, title)
	return nil
}

// RestoreItem re-creates a removed item with its title and status. It gets
// a fresh id.
func (c *Controller) RestoreItem(ctx context.Context, it model.Item) (int64, error) {
	return c.store.InsertItemWithStatus(ctx, it.Title, it.Completed)
}

func (c *Controller) RemoveItem(ctx context.Context, id int64) error {
	return c.store.DeleteItem(ctx, id)
}

func (c *Controller) RemoveCompletedItems(ctx context.Context) error {
	_, err := c.store.DeleteCompletedItems(ctx)
	return err
}

func (c *Controller) ToggleCompleted(ctx context.Context, id int64, completed bool) error {
	return c.store.SetItemCompleted(ctx, id, completed)
}

func (c *Controller) ToggleAll(ctx context.Context, completed bool) error {
	return c.store.SetAllItemsCompleted(ctx, completed)
}

// EvalSQL runs a console statement and appends its rows (or its error) to
// the trace. Successful statements are remembered in the history.
func (c *Controller) EvalSQL(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	res, err := c.store.SelectObjects(ctx, sql)
	if err != nil {
		c.view.AppendSQLTrace(Trace{Err: err})
		c.log.Debug("console statement failed", "sql", sql, "err", err)
		return err
	}
	c.view.AppendSQLTrace(Trace{Result: &res})
	c.history.Push(sql)
	c.historyIndex = c.history.Len()
	c.view.SetSQLInputValue("")
	return nil
}

// NavigateSQLHistory moves through the history; -1 is older, +1 newer.
// Moving past the newest entry yields an empty input.
func (c *Controller) NavigateSQLHistory(diff int) {
	n := c.history.Len()
	if diff < 0 && c.historyIndex == 0 {
		return
	}
	if diff > 0 && c.historyIndex == n {
		return
	}
	idx := c.historyIndex + diff
	if idx < 0 {
		idx = 0
	}
	if idx > n {
		idx = n
	}
	c.historyIndex = idx
	if idx == n {
		c.view.SetSQLInputValue("")
		return
	}
	c.view.SetSQLInputValue(c.history.At(idx))
}

// IsNotFound reports whether err means the item no longer exists.
func IsNotFound(err error) bool { return errors.Is(err, sqlitestore.ErrNotFound) }
