package codec

import (
	"strconv"
	"strings"
	"time"
)

// FlexTime is a timestamp that tolerates both wire encodings the ledger has
// shipped: RFC3339 strings and numeric unix seconds (integer or fractional).
// Marshals back as RFC3339 UTC.
type FlexTime time.Time

// Time returns the underlying time.Time.
func (t FlexTime) Time() time.Time { return time.Time(t) }

// IsZero reports whether the timestamp is unset.
func (t FlexTime) IsZero() bool { return time.Time(t).IsZero() }

func (t FlexTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Time(t).UTC().Format(time.RFC3339))), nil
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*t = FlexTime{}
		return nil
	}

	if len(s) >= 2 && s[0] == '"' {
		str, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		// The service emits both "Z" and "+00:00" suffixes.
		parsed, err := time.Parse(time.RFC3339, str)
		if err != nil {
			return err
		}
		*t = FlexTime(parsed)
		return nil
	}

	// Numeric unix seconds, possibly fractional.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * float64(time.Second))
	*t = FlexTime(time.Unix(sec, nsec).UTC())
	return nil
}
