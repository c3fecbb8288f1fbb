// Package main serves a Lua renderer script over gRPC.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/viewscore/internal/platform/config"

	renderercmd "github.com/louisbranch/viewscore/internal/cmd/renderer"
)

func main() {
	cfg, err := renderercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := renderercmd.Run(ctx, cfg, os.Stderr); err != nil {
		config.Exitf("failed to serve: %v", err)
	}
}
