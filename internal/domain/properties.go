package domain

import "strings"

// ItemCategory classifies an asset across all games on the ledger.
type ItemCategory int

const (
	CategoryWeapon ItemCategory = iota
	CategoryArmor
	CategoryAccessory
	CategoryConsumable
	CategoryCurrency
	CategoryCosmetic
	CategoryMount
	CategoryPet
)

func (c ItemCategory) String() string {
	switch c {
	case CategoryWeapon:
		return "Weapon"
	case CategoryArmor:
		return "Armor"
	case CategoryAccessory:
		return "Accessory"
	case CategoryConsumable:
		return "Consumable"
	case CategoryCurrency:
		return "Currency"
	case CategoryCosmetic:
		return "Cosmetic"
	case CategoryMount:
		return "Mount"
	case CategoryPet:
		return "Pet"
	default:
		return "Cosmetic"
	}
}

// ParseItemCategory converts a wire string to a category.
// Unknown values fall back to Cosmetic, matching server behavior.
func ParseItemCategory(s string) ItemCategory {
	switch lower(s) {
	case "weapon":
		return CategoryWeapon
	case "armor":
		return CategoryArmor
	case "accessory":
		return CategoryAccessory
	case "consumable":
		return CategoryConsumable
	case "currency":
		return CategoryCurrency
	case "cosmetic":
		return CategoryCosmetic
	case "mount":
		return CategoryMount
	case "pet":
		return CategoryPet
	default:
		return CategoryCosmetic
	}
}

// Rarity is the standard rarity ladder shared across games.
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
	RarityMythic
)

func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "Common"
	case RarityUncommon:
		return "Uncommon"
	case RarityRare:
		return "Rare"
	case RarityEpic:
		return "Epic"
	case RarityLegendary:
		return "Legendary"
	case RarityMythic:
		return "Mythic"
	default:
		return "Common"
	}
}

// ParseRarity converts a wire string to a rarity, defaulting to Common.
func ParseRarity(s string) Rarity {
	switch lower(s) {
	case "common":
		return RarityCommon
	case "uncommon":
		return RarityUncommon
	case "rare":
		return RarityRare
	case "epic":
		return RarityEpic
	case "legendary":
		return RarityLegendary
	case "mythic":
		return RarityMythic
	default:
		return RarityCommon
	}
}

// AssetProperties is the engine-native description of an asset to mint.
// ModelIdentifier is the only required field.
type AssetProperties struct {
	Category          ItemCategory
	Rarity            Rarity
	Level             int
	ModelIdentifier   string
	PrimaryColor      Color
	SecondaryColor    Color
	NumericProperties map[string]float64
	StringProperties  map[string]string
	Tags              []string
	OwnerGlobalID     string
	TargetPlayerID    string // only set for transfers
}

// IsValid reports whether the properties can be submitted to the ledger.
func (p AssetProperties) IsValid() bool {
	return p.ModelIdentifier != ""
}

func lower(s string) string { return strings.ToLower(s) }
