package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
	"github.com/Makepad-fr/tada/internal/web"
)

// Options tune output behavior from root flags.
type Options struct {
	Group  bool // list grouped by pending/done
	Config config.Config
	Log    *slog.Logger
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	if len(args) == 0 {
		PrintHelp()
		return 2
	}
	if opt.Log == nil {
		opt.Log = slog.Default()
	}
	cmd, a := args[0], args[1:]

	var run func(*env) int
	switch cmd {
	case "help", "-h", "--help":
		PrintHelp()
		return 0

	case "ls":
		run = doInteractive

	case "list":
		if len(a) > 1 {
			return usage("tada list [all|active|completed]")
		}
		route := model.RouteAll
		if len(a) == 1 {
			route = model.ParseRoute(a[0])
		}
		run = func(e *env) int { return doList(e, route) }

	case "add":
		title := strings.TrimSpace(strings.Join(a, " "))
		if title == "" {
			return usage("tada add <title...>")
		}
		run = func(e *env) int { return doAdd(e, title) }

	case "done", "rm":
		if len(a) != 1 {
			return usage("tada " + cmd + " <id>")
		}
		id, ok := parseID(cmd, a[0])
		if !ok {
			return 2
		}
		if cmd == "done" {
			run = func(e *env) int { return doToggle(e, id) }
		} else {
			run = func(e *env) int { return doRemove(e, id) }
		}

	case "edit":
		if len(a) < 2 {
			return usage("tada edit <id> <title...>")
		}
		id, ok := parseID(cmd, a[0])
		if !ok {
			return 2
		}
		title := strings.Join(a[1:], " ")
		run = func(e *env) int { return doEdit(e, id, title) }

	case "clear":
		run = doClear

	case "toggle-all":
		if len(a) != 1 || (a[0] != "done" && a[0] != "active") {
			return usage("tada toggle-all <done|active>")
		}
		completed := a[0] == "done"
		run = func(e *env) int { return doToggleAll(e, completed) }

	case "sql":
		stmt := strings.TrimSpace(strings.Join(a, " "))
		if stmt == "" {
			return usage("tada sql <statement>")
		}
		run = func(e *env) int { return doSQL(e, stmt) }

	case "dump":
		run = func(e *env) int { return doSQL(e, "SELECT * FROM todos ORDER BY id") }

	case "seed":
		run = doSeed

	case "export":
		if len(a) > 1 {
			return usage("tada export [file]")
		}
		path := ""
		if len(a) == 1 {
			path = a[0]
		}
		run = func(e *env) int { return doExport(e, path) }

	case "import":
		if len(a) != 1 {
			return usage("tada import <file>")
		}
		run = func(e *env) int { return doImport(e, a[0]) }

	case "watch":
		run = doWatch

	case "serve":
		run = doServe
	}

	if run == nil {
		ui.Fail("unknown subcommand: " + cmd)
		fmt.Fprintln(ui.Err)
		PrintHelp()
		return 2
	}

	e, err := openEnv(ctx, opt)
	if err != nil {
		ui.Fail(err.Error())
		return 1
	}
	defer e.close()
	return run(e)
}

func PrintHelp() {
	fmt.Fprintf(ui.Out, `tada - a todo list on SQLite

Usage:
  tada [flags] <subcommand> [args]

Subcommands:
  ls                       Interactive list (a add, e edit, space toggle, `+"`"+` SQL console)
  list [route]             Print items (all, active or completed)
  add <title...>           Add a new item (title can be multiple words)
  done <id>                Toggle an item between active and completed
  edit <id> <title...>     Rename an item
  rm <id>                  Remove an item
  clear                    Remove completed items
  toggle-all <done|active> Mark every item completed or active
  sql <statement>          Run a statement and print its rows
  dump                     Print the todos table
  seed                     Replace every item with the demo list
  export [file]            Write items as JSON (default todos.json)
  import <file>            Append items from a JSON export
  watch                    Print counts whenever another process changes the list
  serve                    Serve the list over HTTP

Examples:
  tada add "Buy milk"
  tada list active
  tada done 2
  tada sql "SELECT title FROM todos WHERE completed = 1"
`)
}

func usage(u string) int {
	ui.Fail("usage: " + u)
	return 2
}

func parseID(cmd, s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		ui.Fail(cmd + ": not an id: " + s)
		return 0, false
	}
	return id, true
}

// env is what every subcommand runs against.
type env struct {
	ctx   context.Context
	opt   Options
	store *sqlitestore.Store
}

func openEnv(ctx context.Context, opt Options) (*env, error) {
	s, err := sqlitestore.Open(ctx, opt.Config.DBPath, opt.Log)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opt.Config.DBPath, err)
	}
	return &env{ctx: ctx, opt: opt, store: s}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.opt.Log.Error("close store", "err", err)
	}
}

func (e *env) history() *controller.History {
	return controller.NewHistory(e.opt.Config.HistoryLimit)
}

// seedIfEmpty fills a fresh store with the demo list when seeding is on.
func (e *env) seedIfEmpty() error {
	if !e.opt.Config.Seed {
		return nil
	}
	seeded, err := controller.SeedIfEmpty(e.ctx, e.store)
	if seeded {
		e.opt.Log.Info("seeded demo items", "count", len(controller.DemoItems))
	}
	return err
}

// failed reports err and picks the exit code: a missing item is a usage
// problem, anything else a runtime one.
func failed(what string, err error) int {
	if controller.IsNotFound(err) {
		ui.Fail(what + ": " + err.Error())
		ui.Hint("Hint: run `tada list` to see valid ids")
		return 2
	}
	ui.Fail(what + ": " + err.Error())
	return 1
}

// -------------- subcommand impls ----------------

func doInteractive(e *env) int {
	if err := e.seedIfEmpty(); err != nil {
		return failed("seed", err)
	}
	err := tui.Run(e.ctx, e.store, e.history(), tui.Options{
		PollInterval: e.opt.Config.PollInterval,
		Log:          e.opt.Log,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return failed("ls", err)
	}
	return 0
}

func doList(e *env, route model.Route) int {
	counts, err := e.store.ItemCounts(e.ctx)
	if err != nil {
		return failed("count", err)
	}
	items, err := e.store.Items(e.ctx, route)
	if err != nil {
		return failed("load", err)
	}

	muted := ui.Current().Muted
	lines := []string{
		ui.Header(counts),
		muted.Render(ui.ProgressBar(counts.Completed(), counts.Total, 28)),
		"",
	}
	if e.opt.Group {
		lines = append(lines, ui.GroupLines(items)...)
	} else {
		lines = append(lines, ui.ItemLines(items)...)
	}
	lines = append(lines, "")
	lines = append(lines, muted.Render("Tip: add with `tada add \"Buy milk\"`"))
	ui.Panel(lines)
	return 0
}

func doAdd(e *env, title string) int {
	id, err := e.store.InsertItem(e.ctx, title)
	if err != nil {
		return failed("add", err)
	}
	ui.OK(fmt.Sprintf("added #%d", id))
	return 0
}

func doToggle(e *env, id int64) int {
	items, err := e.store.AllItems(e.ctx)
	if err != nil {
		return failed("load", err)
	}
	for _, it := range items {
		if it.ID != id {
			continue
		}
		if err := e.store.SetItemCompleted(e.ctx, id, !it.Completed); err != nil {
			return failed("done", err)
		}
		if it.Completed {
			ui.OK(fmt.Sprintf("reopened #%d", id))
		} else {
			ui.OK(fmt.Sprintf("completed #%d", id))
		}
		return 0
	}
	return failed("done", fmt.Errorf("item %d: %w", id, sqlitestore.ErrNotFound))
}

func doEdit(e *env, id int64, title string) int {
	title = strings.TrimSpace(title)
	if title == "" {
		return usage("tada edit <id> <title...>")
	}
	if err := e.store.SetItemTitle(e.ctx, id, title); err != nil {
		return failed("edit", err)
	}
	ui.OK(fmt.Sprintf("renamed #%d", id))
	return 0
}

func doRemove(e *env, id int64) int {
	if err := e.store.DeleteItem(e.ctx, id); err != nil {
		return failed("rm", err)
	}
	ui.OK(fmt.Sprintf("removed #%d", id))
	return 0
}

func doClear(e *env) int {
	n, err := e.store.DeleteCompletedItems(e.ctx)
	if err != nil {
		return failed("clear", err)
	}
	ui.OK(fmt.Sprintf("removed %d completed", n))
	return 0
}

func doToggleAll(e *env, completed bool) int {
	if err := e.store.SetAllItemsCompleted(e.ctx, completed); err != nil {
		return failed("toggle-all", err)
	}
	if completed {
		ui.OK("marked all completed")
	} else {
		ui.OK("marked all active")
	}
	return 0
}

func doSQL(e *env, stmt string) int {
	res, err := e.store.SelectObjects(e.ctx, stmt)
	if err != nil {
		return failed("sql", err)
	}
	if len(res.Columns) == 0 {
		ui.OK("ok")
		return 0
	}
	fmt.Fprintln(ui.Out, tui.ResultTable(res))
	return 0
}

func doSeed(e *env) int {
	if err := controller.Seed(e.ctx, e.store, controller.DemoItems); err != nil {
		return failed("seed", err)
	}
	ui.OK(fmt.Sprintf("seeded %d items", len(controller.DemoItems)))
	return 0
}

func doExport(e *env, path string) int {
	if path == "" {
		p, err := jsonstore.DefaultPath()
		if err != nil {
			return failed("export", err)
		}
		path = p
	}
	items, err := e.store.AllItems(e.ctx)
	if err != nil {
		return failed("load", err)
	}
	if err := jsonstore.Save(path, items); err != nil {
		return failed("export", err)
	}
	ui.OK(fmt.Sprintf("exported %d items to %s", len(items), path))
	return 0
}

func doImport(e *env, path string) int {
	items, err := jsonstore.Load(path)
	if err != nil {
		return failed("import", err)
	}
	for _, it := range items {
		if _, err := e.store.InsertItemWithStatus(e.ctx, it.Title, it.Completed); err != nil {
			return failed("import", err)
		}
	}
	ui.OK(fmt.Sprintf("imported %d items", len(items)))
	return 0
}

func doWatch(e *env) int {
	report := func() {
		counts, err := e.store.ItemCounts(e.ctx)
		if err != nil {
			e.opt.Log.Error("count items", "err", err)
			return
		}
		fmt.Fprintln(ui.Out, ui.Header(counts))
	}
	report()
	err := e.store.Watch(e.ctx, e.opt.Config.PollInterval, report)
	if err != nil && !errors.Is(err, context.Canceled) {
		return failed("watch", err)
	}
	return 0
}

func doServe(e *env) int {
	if err := e.seedIfEmpty(); err != nil {
		return failed("seed", err)
	}
	srv := web.NewServer(e.store, e.history(), e.opt.Log)

	ctx, cancel := context.WithCancel(e.ctx)
	defer cancel()
	go func() {
		if err := srv.Watch(ctx, e.opt.Config.PollInterval); err != nil && !errors.Is(err, context.Canceled) {
			e.opt.Log.Error("watch store", "err", err)
		}
	}()

	ui.OK("serving on http://" + e.opt.Config.HTTPAddr)
	if err := srv.ListenAndServe(ctx, e.opt.Config.HTTPAddr); err != nil {
		return failed("serve", err)
	}
	return 0
}
