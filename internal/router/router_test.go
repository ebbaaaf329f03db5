package router

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/FabianB14/InterverseSDK/internal/codec"
	"github.com/FabianB14/InterverseSDK/internal/event"
)

func startRouter(t *testing.T) (*Router, context.CancelFunc) {
	t.Helper()
	r := New(64, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	return r, cancel
}

// flush dispatches a continuation and waits for it, proving everything
// queued before it has been processed.
func flush(t *testing.T, r *Router) {
	t.Helper()
	done := make(chan struct{})
	r.Dispatch(event.RequestDoneEvent{Resolve: func() { close(done) }})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("router did not drain in time")
	}
}

func dispatchFrame(r *Router, raw string) {
	ev := event.AcquireRawMessageEvent()
	ev.Ts = time.Now().UnixMicro()
	ev.Raw = append(ev.Raw, raw...)
	r.Dispatch(ev)
}

func TestRawOrderPreserved(t *testing.T) {
	r, cancel := startRouter(t)
	defer cancel()

	var got []string
	r.OnRawMessage(func(raw []byte) {
		got = append(got, string(raw))
	})

	dispatchFrame(r, "raw A")
	dispatchFrame(r, "raw B")
	flush(t, r)

	if len(got) != 2 || got[0] != "raw A" || got[1] != "raw B" {
		t.Errorf("raw order broken: %q", got)
	}
}

func TestTypedOrderPreserved(t *testing.T) {
	r, cancel := startRouter(t)
	defer cancel()

	var rawSeen []string
	var mintedSeen []string
	r.OnRawMessage(func(raw []byte) {
		rawSeen = append(rawSeen, string(raw))
	})
	r.OnAssetMinted(func(e event.AssetMintedEvent) {
		mintedSeen = append(mintedSeen, e.Asset.AssetID)
	})

	dispatchFrame(r, `{"type":"asset_minted","asset":{"asset_id":"a1"}}`)
	dispatchFrame(r, `{"type":"asset_minted","asset":{"asset_id":"a2"}}`)
	flush(t, r)

	if len(rawSeen) != 2 {
		t.Fatalf("expected 2 raw notifications, got %d", len(rawSeen))
	}
	if len(mintedSeen) != 2 || mintedSeen[0] != "a1" || mintedSeen[1] != "a2" {
		t.Errorf("typed order broken: %v", mintedSeen)
	}
}

func TestUnknownFrameRawOnly(t *testing.T) {
	r, cancel := startRouter(t)
	defer cancel()

	var rawCount, typedCount int
	r.OnRawMessage(func([]byte) { rawCount++ })
	r.OnAssetMinted(func(event.AssetMintedEvent) { typedCount++ })
	r.OnBalanceUpdated(func(event.BalanceUpdatedEvent) { typedCount++ })
	r.OnTransferComplete(func(event.TransferCompleteEvent) { typedCount++ })

	dispatchFrame(r, `{"type":"welcome","game_id":"g1"}`)
	flush(t, r)

	if rawCount != 1 {
		t.Errorf("unknown frame must still reach raw subscribers, got %d", rawCount)
	}
	if typedCount != 0 {
		t.Errorf("unknown frame must not produce typed notifications, got %d", typedCount)
	}
}

func TestMalformedFrameDoesNotEmitTyped(t *testing.T) {
	r, cancel := startRouter(t)
	defer cancel()

	var rawCount, mintedCount int
	r.OnRawMessage(func([]byte) { rawCount++ })
	r.OnAssetMinted(func(event.AssetMintedEvent) { mintedCount++ })

	// Not JSON at all.
	dispatchFrame(r, `###garbage###`)
	// Right discriminator, asset missing its id.
	dispatchFrame(r, `{"type":"asset_minted","asset":{"owner":"0xabc"}}`)
	flush(t, r)

	if rawCount != 2 {
		t.Errorf("malformed frames must still be delivered raw, got %d", rawCount)
	}
	if mintedCount != 0 {
		t.Errorf("malformed frames must not emit typed notifications, got %d", mintedCount)
	}
}

func TestMalformedFrameLogsClassifiedError(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	r, cancel := startRouter(t)
	defer cancel()

	dispatchFrame(r, `###garbage###`)
	dispatchFrame(r, `{"type":"balance_update","data":"not an object"}`)
	flush(t, r)

	logged := buf.String()
	if !strings.Contains(logged, codec.ErrMalformedPayload.Error()) {
		t.Errorf("malformed frames logged without classification:\n%s", logged)
	}
	if strings.Count(logged, codec.ErrMalformedPayload.Error()) != 2 {
		t.Errorf("expected both frames classified, log:\n%s", logged)
	}
}

func TestBalanceAndTransferFrames(t *testing.T) {
	r, cancel := startRouter(t)
	defer cancel()

	var balAddr, balVal string
	var transferred event.TransferCompleteEvent
	r.OnBalanceUpdated(func(e event.BalanceUpdatedEvent) {
		balAddr = e.Address
		balVal = e.Balance.String()
	})
	r.OnTransferComplete(func(e event.TransferCompleteEvent) {
		transferred = e
	})

	dispatchFrame(r, `{"type":"balance_update","data":{"address":"0xabc","balance":12.5}}`)
	dispatchFrame(r, `{"type":"transfer_complete","data":{"asset_id":"a1","sender":"0xabc","recipient":"0xdef","success":true}}`)
	flush(t, r)

	if balAddr != "0xabc" || balVal != "12.5" {
		t.Errorf("balance event wrong: %s %s", balAddr, balVal)
	}
	if transferred.AssetID != "a1" || transferred.FromAddress != "0xabc" ||
		transferred.ToAddress != "0xdef" || !transferred.Success {
		t.Errorf("transfer event wrong: %+v", transferred)
	}
}

func TestConnectionStateFanOut(t *testing.T) {
	r, cancel := startRouter(t)
	defer cancel()

	var calls []bool
	r.OnConnectionState(func(e event.ConnectionStateEvent) {
		calls = append(calls, e.Success)
	})
	r.OnConnectionState(func(e event.ConnectionStateEvent) {
		calls = append(calls, e.Success)
	})

	r.Dispatch(event.ConnectionStateEvent{Success: true})
	r.Dispatch(event.ConnectionStateEvent{Success: false, Reason: "read error"})
	flush(t, r)

	want := []bool{true, true, false, false}
	if len(calls) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(calls))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

func TestSubscriberPanicDoesNotKillLoop(t *testing.T) {
	r, cancel := startRouter(t)
	defer cancel()

	var after int
	r.OnRawMessage(func([]byte) { panic("broken subscriber") })
	r.OnRawMessage(func([]byte) { after++ })

	dispatchFrame(r, `{"type":"welcome"}`)
	flush(t, r)

	if after != 1 {
		t.Errorf("loop should survive a panicking subscriber, after=%d", after)
	}
}
