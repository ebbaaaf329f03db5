package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FabianB14/InterverseSDK/internal/event"
	"github.com/FabianB14/InterverseSDK/internal/infra"
	"github.com/FabianB14/InterverseSDK/internal/infra/verse"
)

// balanceWatcher polls the request API for a fixed set of wallet addresses
// and synthesizes BalanceUpdatedEvents when a balance moves. It fills the
// gap for nodes whose stream does not push balance_update frames.
type balanceWatcher struct {
	cfg       *infra.Config
	api       *verse.Client
	router    verse.Dispatcher
	addresses []string

	// last seen balance per address; only the watcher goroutine touches it.
	last map[string]decimal.Decimal
}

func newBalanceWatcher(cfg *infra.Config, api *verse.Client, router verse.Dispatcher) *balanceWatcher {
	return &balanceWatcher{
		cfg:       cfg,
		api:       api,
		router:    router,
		addresses: cfg.Watcher.Addresses,
		last:      make(map[string]decimal.Decimal),
	}
}

func (w *balanceWatcher) run(ctx context.Context) {
	if len(w.addresses) == 0 {
		slog.Info("Balance watcher enabled but no addresses configured")
		return
	}

	interval := time.Duration(w.cfg.Watcher.PollIntervalSec) * time.Second
	slog.Info("Balance watcher started",
		"addresses", len(w.addresses), "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Balance watcher stopping...")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *balanceWatcher) poll(ctx context.Context) {
	for _, addr := range w.addresses {
		addr := addr
		w.api.GetBalance(ctx, addr, func(res verse.BalanceResult, err error) {
			if err != nil {
				slog.Warn("Balance poll failed", "address", addr, "error", err)
				return
			}
			w.observe(addr, res.Balance)
		})
	}
}

// observe runs on the dispatch loop (it is a request continuation), the
// same goroutine that delivers the synthesized event's callbacks.
func (w *balanceWatcher) observe(addr string, balance decimal.Decimal) {
	if prev, ok := w.last[addr]; ok && prev.Equal(balance) {
		return
	}
	w.last[addr] = balance

	w.router.Dispatch(event.BalanceUpdatedEvent{
		BaseEvent: event.BaseEvent{Ts: time.Now().UnixMicro()},
		Address:   addr,
		Balance:   balance,
	})
}
