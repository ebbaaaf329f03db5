// Package app assembles the SDK: configuration, the dispatch loop, the two
// transports, and the optional local cache, behind one Client facade.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/FabianB14/InterverseSDK/internal/event"
	"github.com/FabianB14/InterverseSDK/internal/infra"
	"github.com/FabianB14/InterverseSDK/internal/storage"
)

// Bootstrap orchestrates the startup sequence.
type Bootstrap struct {
	Config    *infra.Config
	Store     *storage.Store
	Snapshots *storage.SnapshotManager

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: config, logging, the
// workspace directories, and the local cache when enabled.
func (b *Bootstrap) Initialize() error {
	slog.Info("Bootstrapping Interverse SDK...")

	// Runtime warmup so the first burst of stream frames allocates nothing.
	event.Warmup()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err // let main handle the error
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	infra.PrintBanner(cfg)

	if !cfg.Storage.Enabled {
		slog.Info("Local cache disabled; running server-only")
		return nil
	}

	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data")
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// One process per cache database. A second writer corrupts nothing
	// thanks to WAL, but would interleave journals unpredictably.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "ledger.db")
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("Local cache initialized (WAL-mode)", "path", dbPath)

	b.Snapshots = storage.NewSnapshotManager(filepath.Join(workDir, "snapshots"))

	return nil
}

// Shutdown releases everything Initialize acquired.
func (b *Bootstrap) Shutdown() {
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Warn("cache close failed", "error", err)
		}
		b.Store = nil
	}
	if b.unlock != nil {
		b.unlock()
		b.unlock = nil
	}
}
