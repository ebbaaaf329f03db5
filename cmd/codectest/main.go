// Codec smoke test: runs a sample asset through the wire codec both ways
// and prints every stage, so a wire format change is visible at a glance.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/FabianB14/InterverseSDK/internal/codec"
	"github.com/FabianB14/InterverseSDK/internal/domain"
)

func main() {
	fmt.Println("=== Interverse Wire Codec Check ===")
	fmt.Println()

	props := domain.AssetProperties{
		Category:        domain.CategoryWeapon,
		Rarity:          domain.RarityLegendary,
		Level:           42,
		ModelIdentifier: "sword_flamebrand",
		PrimaryColor:    mustColor("#FF4500"),
		SecondaryColor:  mustColor("#FFD70080"), // translucent gold
		NumericProperties: map[string]float64{
			"damage":       120.5,
			"attack_speed": 1.4,
		},
		StringProperties: map[string]string{
			"element": "fire",
		},
		Tags:          []string{"two-handed", "quest-reward"},
		OwnerGlobalID: "player-001",
	}

	wire := codec.EncodeProperties(props)
	encoded, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		fail("encode", err)
	}
	fmt.Println("Engine -> wire:")
	fmt.Println(string(encoded))
	fmt.Println()

	decoded, err := codec.DecodeProperties(encoded)
	if err != nil {
		fail("decode", err)
	}

	fmt.Println("Wire -> engine:")
	fmt.Printf("  category:  %s\n", decoded.Category)
	fmt.Printf("  rarity:    %s\n", decoded.Rarity)
	fmt.Printf("  model:     %s\n", decoded.ModelIdentifier)
	fmt.Printf("  primary:   %s\n", decoded.PrimaryColor.Hex())
	fmt.Printf("  secondary: %s\n", decoded.SecondaryColor.HexAlpha())
	fmt.Printf("  numeric:   %v\n", decoded.NumericProperties)
	fmt.Println()

	if decoded.Category != props.Category || decoded.Rarity != props.Rarity ||
		decoded.ModelIdentifier != props.ModelIdentifier ||
		len(decoded.NumericProperties) != len(props.NumericProperties) {
		fail("round-trip", fmt.Errorf("decoded properties diverge from input"))
	}

	// Unknown enum names must degrade, not error.
	lenient, err := codec.DecodeProperties([]byte(`{"model_identifier":"m","category":"Starship","rarity":"Artifact"}`))
	if err != nil {
		fail("lenient decode", err)
	}
	fmt.Printf("Unknown enums degrade to: %s / %s\n", lenient.Category, lenient.Rarity)
	fmt.Println()
	fmt.Println("Codec round trip OK")
}

func mustColor(hex string) domain.Color {
	c, err := domain.ParseHexColor(hex)
	if err != nil {
		fail("color", err)
	}
	return c
}

func fail(stage string, err error) {
	fmt.Fprintf(os.Stderr, "FAIL at %s: %v\n", stage, err)
	os.Exit(1)
}
