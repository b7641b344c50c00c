package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
)

func runRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "data directory (default: platform app data)")
	input := fs.String("input", "", "backup filename to restore (required)")
	if err := fs.Parse(args); err != nil {
		fatal("parse flags: %v", err)
	}
	if *input == "" {
		fatal("error: -input is required")
	}

	a, err := newApp(*dataDir)
	if err != nil {
		fatal("restore failed: %v", err)
	}
	defer a.close()

	ctx := context.Background()
	if err := a.sched.Restore(ctx, filepath.Base(*input)); err != nil {
		fatal("restore failed: %v", err)
	}
	fmt.Println("Restore complete")
}
