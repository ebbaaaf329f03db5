package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies the kind of ledger movement.
type TransactionType string

const (
	TxTransfer                TransactionType = "TRANSFER"
	TxMint                    TransactionType = "MINT"
	TxBurn                    TransactionType = "BURN"
	TxStake                   TransactionType = "STAKE"
	TxGameReward              TransactionType = "GAME_REWARD"
	TxVestingRelease          TransactionType = "VESTING_RELEASE"
	TxAutomaticVestingRelease TransactionType = "AUTOMATIC_VESTING_RELEASE"
	TxMultiSig                TransactionType = "MULTI_SIG"
	TxGameAsset               TransactionType = "GAME_ASSET"
)

// ParseTransactionType converts a wire string, defaulting to TRANSFER.
func ParseTransactionType(s string) TransactionType {
	switch TransactionType(upper(s)) {
	case TxTransfer, TxMint, TxBurn, TxStake, TxGameReward,
		TxVestingRelease, TxAutomaticVestingRelease, TxMultiSig, TxGameAsset:
		return TransactionType(upper(s))
	default:
		return TxTransfer
	}
}

// TransactionStatus is the server-side status of a transaction.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxReverted  TransactionStatus = "reverted"
)

// ParseTransactionStatus converts a wire string, defaulting to pending.
func ParseTransactionStatus(s string) TransactionStatus {
	switch TransactionStatus(lower(s)) {
	case TxPending, TxCompleted, TxFailed, TxReverted:
		return TransactionStatus(lower(s))
	default:
		return TxPending
	}
}

// Transaction is a read-only projection of server transaction state.
type Transaction struct {
	ID               string            `json:"id"`
	SenderAddress    string            `json:"sender_address"`
	RecipientAddress string            `json:"recipient_address"`
	Amount           decimal.Decimal   `json:"amount"`
	Type             TransactionType   `json:"transaction_type"`
	Status           TransactionStatus `json:"status"`
	Timestamp        time.Time         `json:"timestamp"`
	Metadata         map[string]string `json:"metadata"`
}

func upper(s string) string { return strings.ToUpper(s) }
