package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FabianB14/InterverseSDK/internal/domain"
	"github.com/FabianB14/InterverseSDK/internal/event"
	"github.com/FabianB14/InterverseSDK/internal/infra"
	"github.com/FabianB14/InterverseSDK/internal/storage"
)

func newAppConfig(nodeURL string) *infra.Config {
	cfg := &infra.Config{}
	cfg.Node.URL = nodeURL
	cfg.Node.GameID = "game-123"
	cfg.Node.APIKey = "test-key"
	cfg.Stream.InboxSize = 64
	cfg.Stream.ReadTimeoutSec = 5
	cfg.Stream.PingIntervalSec = 1
	cfg.Request.TimeoutSec = 5
	return cfg
}

func TestClientCreateWalletCachesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"address":"ivs_new","balance":"0","public_key":"pk"}}`))
	}))
	defer srv.Close()

	store, err := storage.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	c := NewClient(newAppConfig(srv.URL), store, nil)
	c.Start()
	defer c.Stop()

	done := make(chan domain.Wallet, 1)
	c.CreateWallet(context.Background(), func(w domain.Wallet, err error) {
		if err != nil {
			t.Errorf("CreateWallet: %v", err)
		}
		done <- w
	})

	select {
	case w := <-done:
		if w.Address != "ivs_new" {
			t.Fatalf("Address = %q", w.Address)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("continuation never ran")
	}

	// The wallet landed in both the in-memory view and the SQLite cache.
	snap := c.Snapshot(0)
	if _, ok := snap.Wallets["ivs_new"]; !ok {
		t.Errorf("wallet missing from snapshot: %+v", snap.Wallets)
	}
	cached, ok, err := store.GetWallet(context.Background(), "ivs_new")
	if err != nil || !ok {
		t.Fatalf("GetWallet: ok=%v err=%v", ok, err)
	}
	if cached.PublicKey != "pk" {
		t.Errorf("cached wallet = %+v", cached)
	}
}

func TestClientRestoreSeedsSnapshotView(t *testing.T) {
	c := NewClient(newAppConfig("http://node.invalid"), nil, nil)

	c.Restore(&storage.Snapshot{
		Seq: 7,
		Wallets: map[string]domain.Wallet{
			"ivs_abc": {Address: "ivs_abc", Balance: decimal.NewFromInt(3)},
		},
		Assets: map[string]domain.Asset{
			"ast_1": {AssetID: "ast_1", Owner: "ivs_abc"},
		},
	})

	snap := c.Snapshot(7)
	if len(snap.Wallets) != 1 || len(snap.Assets) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if !snap.Wallets["ivs_abc"].Balance.Equal(decimal.NewFromInt(3)) {
		t.Errorf("restored balance = %s", snap.Wallets["ivs_abc"].Balance)
	}
}

func TestClientStopSnapshotsAndRecoverStateRestores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"address":"ivs_new","balance":"10","public_key":"pk"}}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	store, err := storage.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	snaps := storage.NewSnapshotManager(filepath.Join(dir, "snapshots"))

	cfg := newAppConfig(srv.URL)
	first := NewClient(cfg, store, snaps)
	first.Start()

	done := make(chan struct{})
	first.CreateWallet(context.Background(), func(w domain.Wallet, err error) {
		if err != nil {
			t.Errorf("CreateWallet: %v", err)
		}
		close(done)
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("continuation never ran")
	}
	first.Stop()

	snap, err := snaps.LoadLatest()
	if err != nil || snap == nil {
		t.Fatalf("Stop did not write a snapshot: snap=%v err=%v", snap, err)
	}
	if _, ok := snap.Wallets["ivs_new"]; !ok {
		t.Fatalf("snapshot missing wallet: %+v", snap.Wallets)
	}

	// A balance update journaled after the snapshot must come back via replay.
	ev := event.BalanceUpdatedEvent{Address: "ivs_new", Balance: decimal.NewFromInt(42)}
	if err := store.SaveEvent(context.Background(), ev); err != nil {
		t.Fatalf("SaveEvent: %v", err)
	}

	second := NewClient(cfg, store, snaps)
	if err := second.RecoverState(context.Background()); err != nil {
		t.Fatalf("RecoverState: %v", err)
	}
	view := second.Snapshot(0)
	got, ok := view.Wallets["ivs_new"]
	if !ok {
		t.Fatalf("recovered view missing wallet: %+v", view.Wallets)
	}
	if !got.Balance.Equal(decimal.NewFromInt(42)) {
		t.Errorf("replayed balance = %s, want 42", got.Balance)
	}
}

func TestBalanceWatcherSynthesizesEvents(t *testing.T) {
	var balance atomic.Int64
	balance.Store(100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verse/wallet/ivs_abc/balance" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":{"address":"ivs_abc","balance":` +
			decimal.NewFromInt(balance.Load()).String() + `}}`))
	}))
	defer srv.Close()

	cfg := newAppConfig(srv.URL)
	cfg.Watcher.Enabled = true
	cfg.Watcher.PollIntervalSec = 1
	cfg.Watcher.Addresses = []string{"ivs_abc"}

	c := NewClient(cfg, nil, nil)

	events := make(chan event.BalanceUpdatedEvent, 8)
	c.OnBalanceUpdated(func(e event.BalanceUpdatedEvent) { events <- e })

	c.Start()
	defer c.Stop()

	select {
	case e := <-events:
		if e.Address != "ivs_abc" || !e.Balance.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("event = %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no balance event from initial poll")
	}

	// An unchanged balance is not re-announced; a moved one is.
	balance.Store(250)
	select {
	case e := <-events:
		if !e.Balance.Equal(decimal.NewFromInt(250)) {
			t.Fatalf("second event = %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no balance event after change")
	}

	select {
	case e := <-events:
		t.Fatalf("unexpected extra event: %+v", e)
	case <-time.After(1500 * time.Millisecond):
	}
}
