// Package router owns the subscriber-facing dispatch loop. Every inbound
// stream frame and every completed request continuation funnels through one
// goroutine, which is what gives subscribers their ordering and
// no-concurrent-callbacks guarantees.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/FabianB14/InterverseSDK/internal/codec"
	"github.com/FabianB14/InterverseSDK/internal/event"
)

// Journal receives every event the loop processes, before fan-out.
// Implemented by storage.Store; nil disables journaling.
type Journal interface {
	SaveEvent(ctx context.Context, ev event.Event) error
}

// frameEnvelope is the discriminator wrapper on every stream frame.
type frameEnvelope struct {
	Type  string          `json:"type"`
	Asset json.RawMessage `json:"asset"`
	Data  json.RawMessage `json:"data"`
}

type balancePayload struct {
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}

type transferPayload struct {
	AssetID   string `json:"asset_id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
	Error     string `json:"error"`
}

// Router is the single-threaded event dispatcher.
// Producers send through Dispatch; Run MUST be the only consumer.
type Router struct {
	inbox   chan event.Event
	nextSeq uint64
	journal Journal

	// Subscriber lists are read on the loop goroutine and appended from
	// callers, so they carry their own lock.
	mu               sync.RWMutex
	connHandlers     []func(event.ConnectionStateEvent)
	rawHandlers      []func(raw []byte)
	mintedHandlers   []func(event.AssetMintedEvent)
	transferHandlers []func(event.TransferCompleteEvent)
	balanceHandlers  []func(event.BalanceUpdatedEvent)
}

// New creates a router with the given inbox capacity.
// journal may be nil.
func New(inboxSize int, journal Journal) *Router {
	return &Router{
		inbox:   make(chan event.Event, inboxSize),
		nextSeq: 1,
		journal: journal,
	}
}

// Dispatch queues an event for the loop. Blocks when the inbox is full
// rather than dropping: frame order is a contract, not a best effort.
func (r *Router) Dispatch(ev event.Event) {
	r.inbox <- ev
}

// OnConnectionState registers a connection-state subscriber.
func (r *Router) OnConnectionState(fn func(event.ConnectionStateEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connHandlers = append(r.connHandlers, fn)
}

// OnRawMessage registers a raw-frame subscriber. The raw slice is only
// valid for the duration of the callback; copy it to retain it.
func (r *Router) OnRawMessage(fn func(raw []byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rawHandlers = append(r.rawHandlers, fn)
}

// OnAssetMinted registers a mint-confirmation subscriber.
func (r *Router) OnAssetMinted(fn func(event.AssetMintedEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mintedHandlers = append(r.mintedHandlers, fn)
}

// OnTransferComplete registers a transfer-completion subscriber.
func (r *Router) OnTransferComplete(fn func(event.TransferCompleteEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transferHandlers = append(r.transferHandlers, fn)
}

// OnBalanceUpdated registers a balance-change subscriber.
func (r *Router) OnBalanceUpdated(fn func(event.BalanceUpdatedEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balanceHandlers = append(r.balanceHandlers, fn)
}

// Run starts the dispatch loop. This MUST be run in a single goroutine.
func (r *Router) Run(ctx context.Context) {
	slog.Info("Event router started (single-thread dispatch)")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Event router stopping...")
			return
		case ev := <-r.inbox:
			r.processEvent(ctx, ev)
		}
	}
}

func (r *Router) processEvent(ctx context.Context, ev event.Event) {
	r.stamp(ev)

	if r.journal != nil {
		if err := r.journal.SaveEvent(ctx, ev); err != nil {
			// The local journal is a cache, never authoritative; losing an
			// entry must not take the stream down.
			slog.Warn("Event journal write failed", slog.Any("error", err))
		}
	}

	switch e := ev.(type) {
	case event.ConnectionStateEvent:
		r.mu.RLock()
		handlers := r.connHandlers
		r.mu.RUnlock()
		for _, fn := range handlers {
			safeInvoke(func() { fn(e) })
		}

	case *event.RawMessageEvent:
		r.handleFrame(e)
		event.ReleaseRawMessageEvent(e)

	case event.RequestDoneEvent:
		safeInvoke(e.Resolve)

	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}

	r.nextSeq++
}

// handleFrame fans one stream frame out: raw subscribers first, then the
// typed category if the discriminator matches a known one.
func (r *Router) handleFrame(e *event.RawMessageEvent) {
	r.mu.RLock()
	raw := r.rawHandlers
	minted := r.mintedHandlers
	transfer := r.transferHandlers
	balance := r.balanceHandlers
	r.mu.RUnlock()

	for _, fn := range raw {
		fn := fn
		safeInvoke(func() { fn(e.Raw) })
	}

	var env frameEnvelope
	if err := json.Unmarshal(e.Raw, &env); err != nil {
		slog.Warn("Malformed stream frame",
			slog.Any("error", fmt.Errorf("%w: envelope: %v", codec.ErrMalformedPayload, err)))
		return
	}

	switch env.Type {
	case "asset_minted", "new_asset", "asset_update":
		asset, err := codec.DecodeAsset(env.Asset)
		if err != nil {
			slog.Warn("Malformed asset frame", slog.Any("error", err))
			return
		}
		te := event.AssetMintedEvent{
			BaseEvent: event.BaseEvent{Seq: e.Seq, Ts: e.Ts},
			Asset:     asset,
			OwnerID:   asset.Owner,
		}
		for _, fn := range minted {
			fn := fn
			safeInvoke(func() { fn(te) })
		}

	case "transfer_complete":
		var p transferPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			slog.Warn("Malformed transfer frame",
				slog.Any("error", fmt.Errorf("%w: transfer: %v", codec.ErrMalformedPayload, err)))
			return
		}
		te := event.TransferCompleteEvent{
			BaseEvent:   event.BaseEvent{Seq: e.Seq, Ts: e.Ts},
			AssetID:     p.AssetID,
			FromAddress: p.Sender,
			ToAddress:   p.Recipient,
			Success:     p.Success,
			Error:       p.Error,
		}
		for _, fn := range transfer {
			fn := fn
			safeInvoke(func() { fn(te) })
		}

	case "balance_update":
		var p balancePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			slog.Warn("Malformed balance frame",
				slog.Any("error", fmt.Errorf("%w: balance: %v", codec.ErrMalformedPayload, err)))
			return
		}
		te := event.BalanceUpdatedEvent{
			BaseEvent: event.BaseEvent{Seq: e.Seq, Ts: e.Ts},
			Address:   p.Address,
			Balance:   p.Balance,
		}
		for _, fn := range balance {
			fn := fn
			safeInvoke(func() { fn(te) })
		}

	default:
		// Unknown frame types were already delivered raw; nothing more.
	}
}

// stamp assigns the loop sequence number. Value events are stamped by their
// producers; the loop sequence still advances for journal ordering.
func (r *Router) stamp(ev event.Event) {
	if e, ok := ev.(*event.RawMessageEvent); ok {
		e.Seq = r.nextSeq
	}
}

// safeInvoke shields the loop from subscriber panics. A broken handler
// must not terminate the session or crash the host process.
func safeInvoke(fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Subscriber callback panicked", slog.Any("panic", r))
		}
	}()
	fn()
}
