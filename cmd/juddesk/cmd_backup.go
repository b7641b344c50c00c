package main

import (
	"context"
	"flag"
	"fmt"
)

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "data directory (default: platform app data)")
	if err := fs.Parse(args); err != nil {
		fatal("parse flags: %v", err)
	}

	a, err := newApp(*dataDir)
	if err != nil {
		fatal("init failed: %v", err)
	}
	defer a.close()

	fmt.Println("database ready")
}

func runBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "data directory (default: platform app data)")
	if err := fs.Parse(args); err != nil {
		fatal("parse flags: %v", err)
	}

	a, err := newApp(*dataDir)
	if err != nil {
		fatal("backup failed: %v", err)
	}
	defer a.close()

	info, err := a.sched.ExecuteBackup(context.Background())
	if err != nil {
		fatal("backup failed: %v", err)
	}
	if info == nil {
		fatal("backup failed: another backup is already running")
	}
	fmt.Printf("Backup created: %s (%d bytes)\n", info.Path, info.Size)
}

func runList(args []string) {
	fs := flag.NewFlagSet("backups", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "data directory (default: platform app data)")
	if err := fs.Parse(args); err != nil {
		fatal("parse flags: %v", err)
	}

	a, err := newApp(*dataDir)
	if err != nil {
		fatal("list failed: %v", err)
	}
	defer a.close()

	infos, err := a.sched.List()
	if err != nil {
		fatal("list failed: %v", err)
	}
	if len(infos) == 0 {
		fmt.Println("no backups found")
		return
	}
	for _, info := range infos {
		fmt.Printf("%s\t%d bytes\t%s\n", info.Name, info.Size,
			info.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func runDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "data directory (default: platform app data)")
	name := fs.String("name", "", "backup filename to delete (required)")
	if err := fs.Parse(args); err != nil {
		fatal("parse flags: %v", err)
	}
	if *name == "" {
		fatal("error: -name is required")
	}

	a, err := newApp(*dataDir)
	if err != nil {
		fatal("delete failed: %v", err)
	}
	defer a.close()

	if err := a.sched.Delete(*name); err != nil {
		fatal("delete failed: %v", err)
	}
	fmt.Printf("Deleted: %s\n", *name)
}
