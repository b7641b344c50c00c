// Command juddesk is the maintenance CLI for the JudDesk data layer: it
// initializes the database, runs manual backups, restores snapshots, and
// manages the backup directory. The desktop application embeds the same
// packages; this binary is the operational surface.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/thiagovelsa/JudDesk-sub000/internal/backup"
	"github.com/thiagovelsa/JudDesk-sub000/internal/config"
	"github.com/thiagovelsa/JudDesk-sub000/internal/event"
	"github.com/thiagovelsa/JudDesk-sub000/internal/search"
	"github.com/thiagovelsa/JudDesk-sub000/internal/services"
	"github.com/thiagovelsa/JudDesk-sub000/internal/snapshot"
	"github.com/thiagovelsa/JudDesk-sub000/internal/store"
	"github.com/thiagovelsa/JudDesk-sub000/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "init":
		runInit(args)
	case "backup":
		runBackup(args)
	case "restore":
		runRestore(args)
	case "backups":
		runList(args)
	case "delete":
		runDelete(args)
	case "version", "--version":
		runVersion(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: juddesk <command> [flags]

commands:
  init      create or migrate the database
  backup    write a snapshot now
  restore   replace the database with a snapshot
  backups   list snapshot files
  delete    delete one snapshot file
  version   print build information`)
}

// app wires the data layer the way the desktop shell does.
type app struct {
	logger *zap.Logger
	lazy   *store.Lazy
	store  *store.Store
	sched  *backup.Scheduler
	index  search.Index
}

func newApp(dataDir string) (*app, error) {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	dataDir = cfg.GetString("data_dir")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	// The desktop shell shares one lazy opener across its call surfaces;
	// the CLI resolves it immediately since every command touches the
	// database.
	bus := event.NewBus(logger)
	lazy := store.NewLazy(filepath.Join(dataDir, cfg.GetString("database")), bus, logger)
	st, err := lazy.Get()
	if err != nil {
		return nil, err
	}

	// Migrations run on every startup; applied versions are skipped.
	if err := st.Migrate(context.Background(), store.Schema()); err != nil {
		lazy.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	idx := search.New(st.DB(), logger)

	dirs, err := backup.NewDirs(dataDir)
	if err != nil {
		lazy.Close()
		return nil, err
	}
	settings := services.NewSQLiteSettingsRepository(st.DB())
	exporter := snapshot.NewExporter(st.DB(), logger)
	importer := snapshot.NewImporter(st.DB(), st, logger)
	sched := backup.New(exporter, importer, settings, dirs, bus, logger)

	return &app{logger: logger, lazy: lazy, store: st, sched: sched, index: idx}, nil
}

func (a *app) close() {
	a.lazy.Close()
	a.logger.Sync()
}

func runVersion(args []string) {
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print build information as JSON")
	if err := fs.Parse(args); err != nil {
		fatal("parse flags: %v", err)
	}

	if *asJSON {
		data, err := json.MarshalIndent(version.Map(), "", "  ")
		if err != nil {
			fatal("encode version info: %v", err)
		}
		fmt.Println(string(data))
		return
	}
	fmt.Println(version.Info())
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
