package main

import (
	"context"
	"fmt"
	"os"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"EpochVault/internal/api"
	"EpochVault/internal/feed"
	"EpochVault/internal/ledger"
	"EpochVault/internal/logger"
	"EpochVault/internal/storage"
	"EpochVault/internal/transfer"
)

// capabilityContext domain-separates the ledger capability secret from the node key.
const capabilityContext = "epochvault 2026 ledger capability secret"

// Node wires storage, the bank, the ledger and both network surfaces.
type Node struct {
	cfg     *Config
	storage *storage.Storage
	bank    *transfer.Bank
	ledger  *ledger.Ledger
	api     *api.Server
	feed    *feed.Server // feed is nil when FeedAddress is empty
}

// NewNode opens storage and builds every component. It does not bind sockets.
func NewNode(cfg *Config) (*Node, error) {
	db, err := initStorage(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	var secret [32]byte
	blake3.DeriveKey(capabilityContext, cfg.PrivateKey.Seed(), secret[:])

	bank := transfer.NewBank(db)
	l := ledger.New(db, bank, ledger.WithSecret(secret))
	bank.SetCustodian(l)

	n := &Node{
		cfg:     cfg,
		storage: db,
		bank:    bank,
		ledger:  l,
	}

	n.api = api.New(api.Config{
		Addr:         cfg.HTTPAddress,
		ReplayWindow: cfg.ReplayWindow,
		RateLimit:    cfg.RateLimit,
		RateBurst:    cfg.RateBurst,
		Faucet:       cfg.Faucet,
	}, l, bank)

	if cfg.FeedAddress != "" {
		n.feed, err = feed.NewServer(feed.Config{
			PrivateKey: cfg.PrivateKey,
			ListenAddr: cfg.FeedAddress,
			DedupTTL:   cfg.FeedDedupTTL,
		}, l)
		if err != nil {
			n.api.Close()
			db.Close()
			return nil, fmt.Errorf("init feed:\n%w", err)
		}
	}

	return n, nil
}

// initStorage creates the data directory and opens the database.
func initStorage(dataPath string) (*storage.Storage, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("create data dir:\n%w", err)
	}

	db, err := storage.New(dataPath + "/db")
	if err != nil {
		return nil, fmt.Errorf("open storage:\n%w", err)
	}

	return db, nil
}

// Run serves until ctx is canceled or a surface fails, then releases everything.
func (n *Node) Run(ctx context.Context) error {
	defer n.Close()

	n.checkSolvency(ctx)

	if n.feed != nil {
		if err := n.feed.Start(); err != nil {
			return fmt.Errorf("start feed:\n%w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return n.api.Run(gctx)
	})

	if n.feed != nil {
		g.Go(func() error {
			<-gctx.Done()
			return n.feed.Close()
		})
	}

	return g.Wait()
}

// checkSolvency logs every vault whose recorded balances exceed its holdings.
func (n *Node) checkSolvency(ctx context.Context) {
	vaults, err := n.ledger.Vaults()
	if err != nil {
		logger.Warn("list vaults", "error", err)
		return
	}

	for _, v := range vaults {
		s, err := n.ledger.Solvency(ctx, v.AssetID)
		if err != nil {
			logger.Warn("solvency check", "asset", v.AssetID, "error", err)
			continue
		}

		if !s.Solvent() {
			logger.Error("vault shortfall",
				"asset", v.AssetID,
				"asset_shortfall", s.AssetShortfall,
				"premium_shortfall", s.PremiumShortfall,
			)
		}
	}

	logger.Info("vaults loaded", "count", len(vaults))
}

// Close releases components in reverse order of creation. It is safe after Run.
func (n *Node) Close() {
	if n.feed != nil {
		n.feed.Close()
	}

	n.api.Close()

	if err := n.storage.Close(); err != nil {
		logger.Warn("close storage", "error", err)
	}
}
