package event

import (
	"github.com/shopspring/decimal"

	"github.com/FabianB14/InterverseSDK/internal/domain"
)

// Type defines the type of event.
type Type uint16

const (
	EvConnectionState Type = iota + 1
	EvRawMessage
	EvAssetMinted
	EvTransferComplete
	EvBalanceUpdated
	EvRequestDone
)

// Event is the interface for everything flowing through the dispatch loop.
type Event interface {
	GetSeq() uint64
	GetTs() int64
	GetType() Type
}

// BaseEvent contains common fields for all events.
// Ts is unix microseconds; Seq is assigned by the dispatch loop on intake.
type BaseEvent struct {
	Seq uint64 `json:"seq"`
	Ts  int64  `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64 { return e.Seq }
func (e BaseEvent) GetTs() int64   { return e.Ts }

// ConnectionStateEvent reports stream connect/disconnect transitions.
type ConnectionStateEvent struct {
	BaseEvent
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

func (e ConnectionStateEvent) GetType() Type { return EvConnectionState }

// RawMessageEvent carries one inbound stream frame before typed routing.
// Pooled; see AcquireRawMessageEvent.
type RawMessageEvent struct {
	BaseEvent
	Raw []byte `json:"raw"`
}

func (e *RawMessageEvent) GetType() Type { return EvRawMessage }

// AssetMintedEvent reports a mint confirmation from the stream.
type AssetMintedEvent struct {
	BaseEvent
	Asset   domain.Asset `json:"asset"`
	OwnerID string       `json:"owner_id"`
}

func (e AssetMintedEvent) GetType() Type { return EvAssetMinted }

// TransferCompleteEvent reports the outcome of an asset transfer.
type TransferCompleteEvent struct {
	BaseEvent
	AssetID     string `json:"asset_id"`
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

func (e TransferCompleteEvent) GetType() Type { return EvTransferComplete }

// BalanceUpdatedEvent reports a wallet balance change.
type BalanceUpdatedEvent struct {
	BaseEvent
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}

func (e BalanceUpdatedEvent) GetType() Type { return EvBalanceUpdated }

// RequestDoneEvent hands a completed request continuation to the loop so it
// runs on the subscriber context, never on a transport goroutine.
type RequestDoneEvent struct {
	BaseEvent
	Key     string `json:"key"`
	Resolve func() `json:"-"`
}

func (e RequestDoneEvent) GetType() Type { return EvRequestDone }
