package domain

import (
	"fmt"

	"github.com/FabianB14/InterverseSDK/pkg/safe"
)

// Color is an RGBA color with channels in [0,1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// White is the default used when a color is unspecified.
var White = Color{R: 1, G: 1, B: 1, A: 1}

// ParseHexColor parses "#RGB", "#RRGGBB" or "#RRGGBBAA" (leading '#' optional).
func ParseHexColor(s string) (Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}

	switch len(s) {
	case 3:
		var ch [3]float64
		for i := 0; i < 3; i++ {
			v, ok := safe.ParseHexByte(s[i], s[i])
			if !ok {
				return Color{}, fmt.Errorf("invalid hex color %q", s)
			}
			ch[i] = safe.ByteToChannel(v)
		}
		return Color{R: ch[0], G: ch[1], B: ch[2], A: 1}, nil
	case 6, 8:
		var ch [4]float64
		ch[3] = 1
		for i := 0; i*2 < len(s); i++ {
			v, ok := safe.ParseHexByte(s[i*2], s[i*2+1])
			if !ok {
				return Color{}, fmt.Errorf("invalid hex color %q", s)
			}
			ch[i] = safe.ByteToChannel(v)
		}
		return Color{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
	default:
		return Color{}, fmt.Errorf("invalid hex color length %d", len(s))
	}
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x",
		safe.ChannelToByte(c.R), safe.ChannelToByte(c.G), safe.ChannelToByte(c.B))
}

// HexAlpha formats the color as "#rrggbbaa".
func (c Color) HexAlpha() string {
	return fmt.Sprintf("#%02x%02x%02x%02x",
		safe.ChannelToByte(c.R), safe.ChannelToByte(c.G), safe.ChannelToByte(c.B), safe.ChannelToByte(c.A))
}

// Clamped returns the color with every channel forced into [0,1].
func (c Color) Clamped() Color {
	return Color{
		R: safe.Clamp01(c.R),
		G: safe.Clamp01(c.G),
		B: safe.Clamp01(c.B),
		A: safe.Clamp01(c.A),
	}
}
