// Package main provides a CLI for scoring candidate viewpoints of a volume.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/viewscore/internal/platform/config"

	viewscorecmd "github.com/louisbranch/viewscore/internal/cmd/viewscore"
)

func main() {
	cfg, err := viewscorecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: failed to apply command line arguments: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := viewscorecmd.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		config.Exitf("Error: %v", err)
	}
}
