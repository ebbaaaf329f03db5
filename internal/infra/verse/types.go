package verse

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/FabianB14/InterverseSDK/internal/codec"
	"github.com/FabianB14/InterverseSDK/internal/domain"
)

// apiEnvelope is the node's uniform response shape.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// wireWallet is the wallet/create and balance response body.
type wireWallet struct {
	Address   string          `json:"address"`
	PublicKey string          `json:"public_key"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt codec.FlexTime  `json:"created_at"`
}

func (w wireWallet) domain() domain.Wallet {
	return domain.Wallet{
		Address:   w.Address,
		PublicKey: w.PublicKey,
		Balance:   w.Balance,
		CreatedAt: w.CreatedAt.Time(),
	}
}

// BalanceResult is the wallet/{addr}/balance response.
type BalanceResult struct {
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}

// TransferResult is the assets/transfer response.
type TransferResult struct {
	AssetID       string `json:"asset_id"`
	TransactionID string `json:"transaction_id"`
	FromAddress   string `json:"from_address"`
	ToAddress     string `json:"to_address"`
}

// wireTransaction is one entry of the transactions/{addr} response. Type
// and status arrive in whatever casing the node emits; timestamps as epoch
// numbers or RFC 3339 strings.
type wireTransaction struct {
	ID               string            `json:"id"`
	SenderAddress    string            `json:"sender_address"`
	RecipientAddress string            `json:"recipient_address"`
	Amount           decimal.Decimal   `json:"amount"`
	Type             string            `json:"transaction_type"`
	Status           string            `json:"status"`
	Timestamp        codec.FlexTime    `json:"timestamp"`
	Metadata         map[string]string `json:"metadata"`
}

func (t wireTransaction) domain() domain.Transaction {
	return domain.Transaction{
		ID:               t.ID,
		SenderAddress:    t.SenderAddress,
		RecipientAddress: t.RecipientAddress,
		Amount:           t.Amount,
		Type:             domain.ParseTransactionType(t.Type),
		Status:           domain.ParseTransactionStatus(t.Status),
		Timestamp:        t.Timestamp.Time(),
		Metadata:         t.Metadata,
	}
}

// GameInfo is the games/verify response.
type GameInfo struct {
	GameID   string `json:"game_id"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

type mintRequest struct {
	Owner            string               `json:"owner"`
	GameID           string               `json:"game_id"`
	AssetType        string               `json:"asset_type"`
	Properties       codec.WireProperties `json:"properties"`
	CustomProperties map[string]string    `json:"custom_properties,omitempty"`
}

type transferRequest struct {
	AssetID     string `json:"asset_id"`
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
}

type createWalletRequest struct {
	GameID string `json:"game_id"`
}

type verifyGameRequest struct {
	GameID string `json:"game_id"`
}
