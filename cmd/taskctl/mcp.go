package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/taskctl/taskctl/internal/config"
	"github.com/taskctl/taskctl/internal/query"
	"github.com/taskctl/taskctl/internal/store"
)

// runMCP serves the read-only query surface over stdio as newline-framed
// JSON-RPC (spec.md §6). It never mutates the store.
func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := query.NewServer(query.New(s), logger)
	return srv.RunStdio(ctx)
}
