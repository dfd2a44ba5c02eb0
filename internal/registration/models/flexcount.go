package models

import (
	"bytes"
	"strconv"
	"strings"
)

// FlexCount is a non-negative integer that tolerates sloppy client input.
// Browsers and spreadsheet paste jobs send counts as numbers, numeric strings,
// floats, empty strings, or null; anything that does not parse as a
// non-negative integer becomes 0 rather than failing the whole submission.
type FlexCount int

func (f *FlexCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		*f = 0
		return nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		*f = FlexCount(clampCount(n))
		return nil
	}
	if x, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexCount(clampCount(int(x)))
		return nil
	}

	*f = 0
	return nil
}

func (f FlexCount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(f))), nil
}
