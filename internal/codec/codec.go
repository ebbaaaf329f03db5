// Package codec converts between the engine-native asset representation and
// the ledger wire format. All transforms are pure: inputs are never mutated
// and no I/O happens here.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/FabianB14/InterverseSDK/internal/domain"
)

// ErrMalformedPayload marks a response or frame body that cannot be decoded
// into the expected shape. Always wrapped with detail; match with errors.Is.
var ErrMalformedPayload = errors.New("malformed payload")

// WireProperties is the wire serialization of domain.AssetProperties.
// Enums travel as their declared names so server-side enum additions do not
// break older clients.
type WireProperties struct {
	Category          string             `json:"category"`
	Rarity            string             `json:"rarity"`
	Level             int                `json:"level"`
	ModelIdentifier   string             `json:"model_identifier"`
	PrimaryColor      domain.Color       `json:"primary_color"`
	SecondaryColor    domain.Color       `json:"secondary_color"`
	NumericProperties map[string]float64 `json:"numeric_properties"`
	StringProperties  map[string]string  `json:"string_properties"`
	Tags              []string           `json:"tags"`
	OwnerGlobalID     string             `json:"owner_global_id"`
	TargetPlayerID    string             `json:"target_player_id,omitempty"`
}

// WireAsset is the wire shape of a server-created asset.
type WireAsset struct {
	AssetID       string            `json:"asset_id"`
	Owner         string            `json:"owner"`
	OwnerGlobalID string            `json:"owner_global_id"`
	Category      string            `json:"category"`
	Rarity        string            `json:"rarity"`
	Metadata      map[string]string `json:"metadata"`
	GameID        string            `json:"game_id"`
	CreatedAt     FlexTime          `json:"created_at"`
	ModifiedAt    FlexTime          `json:"modified_at"`
}

// EncodeProperties converts engine-native properties to their wire form.
// The input's maps and tags are copied, never aliased.
func EncodeProperties(p domain.AssetProperties) WireProperties {
	return WireProperties{
		Category:          p.Category.String(),
		Rarity:            p.Rarity.String(),
		Level:             p.Level,
		ModelIdentifier:   p.ModelIdentifier,
		PrimaryColor:      p.PrimaryColor,
		SecondaryColor:    p.SecondaryColor,
		NumericProperties: copyMap(p.NumericProperties),
		StringProperties:  copyMap(p.StringProperties),
		Tags:              append([]string(nil), p.Tags...),
		OwnerGlobalID:     p.OwnerGlobalID,
		TargetPlayerID:    p.TargetPlayerID,
	}
}

// DecodeProperties is the inverse of EncodeProperties.
// Fails if model_identifier is missing: such a record is unusable in-engine.
func DecodeProperties(data []byte) (domain.AssetProperties, error) {
	var w WireProperties
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.AssetProperties{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if w.ModelIdentifier == "" {
		return domain.AssetProperties{}, fmt.Errorf("%w: missing model_identifier", ErrMalformedPayload)
	}

	return domain.AssetProperties{
		Category:          domain.ParseItemCategory(w.Category),
		Rarity:            domain.ParseRarity(w.Rarity),
		Level:             w.Level,
		ModelIdentifier:   w.ModelIdentifier,
		PrimaryColor:      w.PrimaryColor,
		SecondaryColor:    w.SecondaryColor,
		NumericProperties: copyMap(w.NumericProperties),
		StringProperties:  copyMap(w.StringProperties),
		Tags:              append([]string(nil), w.Tags...),
		OwnerGlobalID:     w.OwnerGlobalID,
		TargetPlayerID:    w.TargetPlayerID,
	}, nil
}

// DecodeAsset decodes an inbound asset confirmation.
// Fails if asset_id is missing: the server owns asset identity and a record
// without one cannot be correlated to anything.
func DecodeAsset(data []byte) (domain.Asset, error) {
	var w WireAsset
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.Asset{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if w.AssetID == "" {
		return domain.Asset{}, fmt.Errorf("%w: missing asset_id", ErrMalformedPayload)
	}

	return domain.Asset{
		AssetID:       w.AssetID,
		Owner:         w.Owner,
		OwnerGlobalID: w.OwnerGlobalID,
		Category:      domain.ParseItemCategory(w.Category),
		Rarity:        domain.ParseRarity(w.Rarity),
		Metadata:      copyMap(w.Metadata),
		GameID:        w.GameID,
		CreatedAt:     w.CreatedAt.Time(),
		ModifiedAt:    w.ModifiedAt.Time(),
	}, nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
