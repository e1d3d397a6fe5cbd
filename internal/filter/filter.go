// Package filter keeps the records of a collection whose attribute matches a
// value.
package filter

import (
	"nwszones/internal/types"
)

// Equal returns the records whose field formats to exactly value, in input
// order. The records are shared with c. A field absent from c's layout is a
// schema error even when c has no records; no matches is not an error.
func Equal(c *types.Collection, field, value string) (*types.Collection, error) {
	if !c.HasField(field) {
		return nil, types.MissingField(field, c.Source)
	}

	out := c.Derive()
	for _, r := range c.Records {
		if types.FormatValue(r.Attrs[field]) == value {
			out.Records = append(out.Records, r)
		}
	}
	return out, nil
}
