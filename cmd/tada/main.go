package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Makepad-fr/tada/internal/cli"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/logger"
	"github.com/Makepad-fr/tada/internal/ui"
)

func main() {
	// Root flags (apply to every subcommand)
	groupPending := flag.Bool("group", false, "group output by pending/done")
	envFile := flag.String("env", ".env", "dotenv file to load before reading TADA_* variables")
	dbPath := flag.String("db", "", "database file (overrides TADA_DB_PATH)")
	theme := flag.String("theme", "", "classic, neon or mono (overrides TADA_THEME)")
	flag.Parse()

	// Hand the remaining args to the CLI runner.
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp()
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		ui.Fail("config: " + err.Error())
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *theme != "" {
		cfg.Theme = *theme
	}
	ui.SetTheme(cfg.Theme)

	// The interactive list owns the terminal; log lines would tear it.
	if args[0] == "ls" && strings.EqualFold(cfg.Log.Output, "STDERR") {
		cfg.Log.Output = "DISCARD"
	}
	log, closer, err := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		ui.Fail("logger: " + err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, args, cli.Options{
		Group:  *groupPending,
		Config: cfg,
		Log:    log,
	})
	stop()
	_ = closer.Close()
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(code)
}
