package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the client-side projection of a ledger wallet.
// Balances are decimals; the server owns the authoritative value.
type Wallet struct {
	Address     string          `json:"address"`
	Balance     decimal.Decimal `json:"balance"`
	PublicKey   string          `json:"public_key"`
	CreatedAt   time.Time       `json:"-"`
	LastUpdated time.Time       `json:"-"`
}
