package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/FabianB14/InterverseSDK/internal/domain"
	"github.com/FabianB14/InterverseSDK/internal/event"
	"github.com/FabianB14/InterverseSDK/internal/infra"
	"github.com/FabianB14/InterverseSDK/internal/infra/verse"
	"github.com/FabianB14/InterverseSDK/internal/router"
	"github.com/FabianB14/InterverseSDK/internal/storage"
)

// Client is the SDK facade a game integrates against. It owns the dispatch
// loop, both transports, and the optional local cache; all subscriber
// callbacks and request continuations run on the loop goroutine.
type Client struct {
	cfg       *infra.Config
	router    *router.Router
	api       *verse.Client
	session   *verse.Session
	store     *storage.Store
	snapshots *storage.SnapshotManager

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// In-memory ledger view, maintained on the loop goroutine and read by
	// Snapshot from outside it.
	viewMu  sync.Mutex
	wallets map[string]domain.Wallet
	assets  map[string]domain.Asset
}

// NewClient wires the SDK together. store and snapshots may be nil to run
// without the local cache.
func NewClient(cfg *infra.Config, store *storage.Store, snapshots *storage.SnapshotManager) *Client {
	var journal router.Journal
	if store != nil {
		journal = store
	}
	r := router.New(cfg.Stream.InboxSize, journal)

	c := &Client{
		cfg:       cfg,
		router:    r,
		api:       verse.NewClient(cfg, r),
		session:   verse.NewSession(cfg, r),
		store:     store,
		snapshots: snapshots,
		wallets:   make(map[string]domain.Wallet),
		assets:    make(map[string]domain.Asset),
	}

	// The client keeps its own view current before user subscribers see
	// anything; registration order fixes that.
	r.OnBalanceUpdated(c.trackBalance)
	r.OnAssetMinted(c.trackAsset)

	return c
}

// Start runs the dispatch loop and, when configured, the balance watcher.
// Must be called before any operation or Connect.
func (c *Client) Start() {
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.router.Run(runCtx)
	}()

	if c.cfg.Watcher.Enabled {
		w := newBalanceWatcher(c.cfg, c.api, c.router)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			w.run(runCtx)
		}()
	}
}

// Stop disconnects the stream and shuts the loop down. Pending request
// continuations that have not reached the loop yet are dropped. With the
// local cache enabled the final ledger view is snapshotted to disk.
func (c *Client) Stop() {
	c.session.Disconnect()
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	if c.snapshots != nil && c.store != nil {
		pos, err := c.store.LastJournalPos(context.Background())
		if err != nil {
			slog.Warn("journal position read failed, skipping snapshot", "error", err)
			return
		}
		if err := c.snapshots.Save(c.Snapshot(pos)); err != nil {
			slog.Warn("snapshot save failed", "error", err)
			return
		}
		if err := c.snapshots.Cleanup(3); err != nil {
			slog.Warn("snapshot cleanup failed", "error", err)
		}
	}
}

// RecoverState seeds the in-memory view from the latest snapshot and
// replays journaled balance updates recorded after it. Call before Start.
func (c *Client) RecoverState(ctx context.Context) error {
	if c.snapshots == nil || c.store == nil {
		return nil
	}

	var fromPos uint64 = 1
	snap, err := c.snapshots.LoadLatest()
	if err != nil {
		return err
	}
	if snap != nil {
		c.Restore(snap)
		fromPos = snap.Seq + 1
		slog.Info("Ledger view restored from snapshot",
			"wallets", len(snap.Wallets), "assets", len(snap.Assets), "pos", snap.Seq)
	}

	replayed, err := c.store.ReplayBalanceEvents(ctx, fromPos)
	if err != nil {
		return err
	}
	for _, ev := range replayed {
		c.trackBalance(ev)
	}
	if len(replayed) > 0 {
		slog.Info("Balance journal replayed", "events", len(replayed), "from", fromPos)
	}
	return nil
}

// Connect opens the push stream.
func (c *Client) Connect(ctx context.Context) error {
	return c.session.Connect(ctx)
}

// Disconnect tears the push stream down. The request API stays usable.
func (c *Client) Disconnect() {
	c.session.Disconnect()
}

// IsConnected reports whether the push stream is up.
func (c *Client) IsConnected() bool { return c.session.IsConnected() }

// ConnectionStatus renders the stream state for logs and UIs.
func (c *Client) ConnectionStatus() string { return c.session.StatusDescription() }

// Send writes one raw frame to the push stream.
func (c *Client) Send(message []byte) error { return c.session.Send(message) }

// CreateWallet requests a new wallet. The result is cached locally before
// the continuation runs.
func (c *Client) CreateWallet(ctx context.Context, done func(domain.Wallet, error)) {
	c.api.CreateWallet(ctx, func(w domain.Wallet, err error) {
		if err == nil {
			c.cacheWallet(w)
		}
		done(w, err)
	})
}

// GetBalance fetches a wallet's current balance.
func (c *Client) GetBalance(ctx context.Context, address string, done func(verse.BalanceResult, error)) {
	c.api.GetBalance(ctx, address, func(res verse.BalanceResult, err error) {
		if err == nil {
			c.cacheWallet(domain.Wallet{Address: res.Address, Balance: res.Balance})
		}
		done(res, err)
	})
}

// MintAsset creates a new asset for ownerAddress.
func (c *Client) MintAsset(ctx context.Context, ownerAddress string, props domain.AssetProperties, custom map[string]string, done func(domain.Asset, error)) {
	c.api.MintAsset(ctx, ownerAddress, props, custom, func(a domain.Asset, err error) {
		if err == nil {
			c.cacheAsset(a)
		}
		done(a, err)
	})
}

// TransferAsset moves an asset between wallets.
func (c *Client) TransferAsset(ctx context.Context, assetID, fromAddress, toAddress string, done func(verse.TransferResult, error)) {
	c.api.TransferAsset(ctx, assetID, fromAddress, toAddress, done)
}

// GetAsset fetches one asset by id.
func (c *Client) GetAsset(ctx context.Context, assetID string, done func(domain.Asset, error)) {
	c.api.GetAsset(ctx, assetID, func(a domain.Asset, err error) {
		if err == nil {
			c.cacheAsset(a)
		}
		done(a, err)
	})
}

// GetPlayerAssets lists the assets owned by one wallet.
func (c *Client) GetPlayerAssets(ctx context.Context, address string, done func([]domain.Asset, error)) {
	c.api.GetPlayerAssets(ctx, address, func(assets []domain.Asset, err error) {
		if err == nil {
			for _, a := range assets {
				c.cacheAsset(a)
			}
		}
		done(assets, err)
	})
}

// GetTransactionHistory lists the transactions touching one wallet.
func (c *Client) GetTransactionHistory(ctx context.Context, address string, done func([]domain.Transaction, error)) {
	c.api.GetTransactionHistory(ctx, address, done)
}

// VerifyGame checks the configured game id against the node.
func (c *Client) VerifyGame(ctx context.Context, done func(verse.GameInfo, error)) {
	c.api.VerifyGame(ctx, done)
}

// OnConnectionState registers a stream connect/disconnect subscriber.
func (c *Client) OnConnectionState(fn func(event.ConnectionStateEvent)) {
	c.router.OnConnectionState(fn)
}

// OnRawMessage registers a raw-frame subscriber.
func (c *Client) OnRawMessage(fn func(raw []byte)) { c.router.OnRawMessage(fn) }

// OnAssetMinted registers a mint-confirmation subscriber.
func (c *Client) OnAssetMinted(fn func(event.AssetMintedEvent)) {
	c.router.OnAssetMinted(fn)
}

// OnTransferComplete registers a transfer-completion subscriber.
func (c *Client) OnTransferComplete(fn func(event.TransferCompleteEvent)) {
	c.router.OnTransferComplete(fn)
}

// OnBalanceUpdated registers a balance-change subscriber.
func (c *Client) OnBalanceUpdated(fn func(event.BalanceUpdatedEvent)) {
	c.router.OnBalanceUpdated(fn)
}

// Snapshot captures the current in-memory ledger view.
func (c *Client) Snapshot(lastSeq uint64) *storage.Snapshot {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	return storage.CreateSnapshot(lastSeq, c.wallets, c.assets)
}

// Restore seeds the in-memory view from a snapshot. Call before Start.
func (c *Client) Restore(snap *storage.Snapshot) {
	if snap == nil {
		return
	}
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	for k, v := range snap.Wallets {
		c.wallets[k] = v
	}
	for k, v := range snap.Assets {
		c.assets[k] = v
	}
}

func (c *Client) trackBalance(e event.BalanceUpdatedEvent) {
	c.cacheWallet(domain.Wallet{Address: e.Address, Balance: e.Balance})
}

func (c *Client) trackAsset(e event.AssetMintedEvent) {
	c.cacheAsset(e.Asset)
}

func (c *Client) cacheWallet(w domain.Wallet) {
	c.viewMu.Lock()
	if prev, ok := c.wallets[w.Address]; ok && w.PublicKey == "" {
		w.PublicKey = prev.PublicKey
	}
	w.LastUpdated = time.Now()
	c.wallets[w.Address] = w
	c.viewMu.Unlock()

	if c.store != nil {
		if err := c.store.SaveWallet(context.Background(), w, time.Now().UnixMicro()); err != nil {
			slog.Warn("wallet cache write failed", "address", w.Address, "error", err)
		}
	}
}

func (c *Client) cacheAsset(a domain.Asset) {
	c.viewMu.Lock()
	c.assets[a.AssetID] = a
	c.viewMu.Unlock()

	if c.store != nil {
		if err := c.store.UpsertAsset(context.Background(), a, time.Now().UnixMicro()); err != nil {
			slog.Warn("asset cache write failed", "asset_id", a.AssetID, "error", err)
		}
	}
}
