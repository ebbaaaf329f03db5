package safe

// Clamp01 clamps a float channel value into the [0,1] range.
// NaN is treated as 0 so a corrupt wire value can never poison a color.
func Clamp01(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ChannelToByte converts a [0,1] color channel to its 0-255 byte value.
// Out-of-range inputs are clamped first.
func ChannelToByte(v float64) uint8 {
	return uint8(Clamp01(v)*255 + 0.5)
}

// ByteToChannel converts a 0-255 byte value to a [0,1] color channel.
func ByteToChannel(b uint8) float64 {
	return float64(b) / 255
}

// ParseHexByte parses a two-character hex pair ("ff" -> 255).
// Returns ok=false for any non-hex input instead of panicking.
func ParseHexByte(hi, lo byte) (uint8, bool) {
	h, ok := hexNibble(hi)
	if !ok {
		return 0, false
	}
	l, ok := hexNibble(lo)
	if !ok {
		return 0, false
	}
	return h<<4 | l, true
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
