package loader

import (
	"math"
	"strconv"
	"strings"

	"nwszones/internal/types"
)

// parseFloat accepts finite decimals only; NaN and infinities have no JSON
// encoding.
func parseFloat(raw string) any {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// parseValue types a raw DBF cell using its column definition. Cells that
// are blank or do not parse become nil.
func parseValue(f types.Field, raw string) any {
	raw = strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	switch f.Type {
	case 'N':
		if raw == "" {
			return nil
		}
		if f.Precision == 0 {
			if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return v
			}
		}
		return parseFloat(raw)
	case 'F':
		return parseFloat(raw)
	case 'L':
		switch raw {
		case "T", "t", "Y", "y":
			return true
		case "F", "f", "N", "n":
			return false
		}
		return nil
	case 'D':
		if len(raw) != 8 {
			return nil
		}
		if _, err := strconv.Atoi(raw); err != nil {
			return nil
		}
		return raw[0:4] + "-" + raw[4:6] + "-" + raw[6:8]
	default:
		return raw
	}
}
