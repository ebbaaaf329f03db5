package domain

import "time"

// Asset is the client-side projection of a ledger asset.
// AssetID is assigned by the server; the client never fabricates one.
type Asset struct {
	AssetID       string            `json:"asset_id"`
	Owner         string            `json:"owner"`
	OwnerGlobalID string            `json:"owner_global_id"`
	Category      ItemCategory      `json:"category"`
	Rarity        Rarity            `json:"rarity"`
	Metadata      map[string]string `json:"metadata"`
	GameID        string            `json:"game_id"`
	CreatedAt     time.Time         `json:"created_at"`
	ModifiedAt    time.Time         `json:"modified_at"`
}
