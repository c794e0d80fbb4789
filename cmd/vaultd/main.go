// Command vaultd runs the vault ledger node: the HTTP API for depositors and
// authorities, and the QUIC feed for pricing agents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"EpochVault/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	logger.Init(level)

	cfg.PrivateKey, err = loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	node, err := NewNode(cfg)
	if err != nil {
		return err
	}

	logger.Info("node started",
		"data", cfg.DataPath,
		"http", cfg.HTTPAddress,
		"feed", cfg.FeedAddress,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := node.Run(ctx); err != nil {
		return err
	}

	logger.Info("node stopped")

	return nil
}
