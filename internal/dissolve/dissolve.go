// Package dissolve merges the geometries of records that share a key value.
//
// Unions are computed by GEOS, so shared boundaries between members vanish
// from the result instead of being kept as overlapping shapes.
package dissolve

import (
	"errors"
	"fmt"
	"strings"

	"nwszones/internal/logger"
	"nwszones/internal/types"
)

// Keep selects which attributes survive on a dissolved record.
type Keep int

const (
	// KeepFirst carries every column of the group's first record.
	KeepFirst Keep = iota
	// KeepKey carries only the grouping column.
	KeepKey
)

func (k Keep) String() string {
	if k == KeepKey {
		return "key"
	}
	return "first"
}

// ParseKeep maps "first" or "key" to a Keep mode.
func ParseKeep(s string) (Keep, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return KeepFirst, nil
	case "key":
		return KeepKey, nil
	default:
		return KeepFirst, fmt.Errorf("unknown dissolve keep mode %q (want first or key)", s)
	}
}

// Options tunes a dissolve.
type Options struct {
	Keep Keep
	// CountField, when set, adds a column holding the number of members.
	CountField string
	// Repair runs invalid members through a zero-width buffer before the
	// union instead of failing.
	Repair bool
}

var errNullGeometry = errors.New("null geometry")

type group struct {
	key     string
	members []types.Record
}

// Dissolve groups c by the key column in first-occurrence order and returns
// one record per group whose geometry is the union of the members.
func Dissolve(c *types.Collection, key string, opts Options) (*types.Collection, error) {
	if !c.HasField(key) {
		return nil, types.MissingField(key, c.Source)
	}

	var groups []*group
	byKey := make(map[string]*group)
	for _, r := range c.Records {
		k := types.FormatValue(r.Attrs[key])
		g, ok := byKey[k]
		if !ok {
			g = &group{key: k}
			byKey[k] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, r)
	}

	out := &types.Collection{
		Fields:     outputFields(c.Fields, key, opts),
		Projection: c.Projection,
		Source:     c.Source,
		Records:    make([]types.Record, 0, len(groups)),
	}
	for i, g := range groups {
		geom, err := union(g.key, g.members, opts.Repair)
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, types.Record{
			Index:    i,
			Attrs:    reduce(g.members, key, opts),
			Geometry: geom,
		})
		logger.Log.Debug().Str("key", g.key).Int("members", len(g.members)).Msg("group dissolved")
	}
	return out, nil
}

// outputFields puts the key column first, followed by the rest of the source
// layout when the whole first row is kept.
func outputFields(in []types.Field, key string, opts Options) []types.Field {
	var out []types.Field
	for _, f := range in {
		if f.Name == key {
			out = append(out, f)
		}
	}
	if opts.Keep == KeepFirst {
		for _, f := range in {
			if f.Name != key && f.Name != opts.CountField {
				out = append(out, f)
			}
		}
	}
	if opts.CountField != "" && opts.CountField != key {
		out = append(out, types.Field{Name: opts.CountField, Type: 'N', Size: 10})
	}
	return out
}

func reduce(members []types.Record, key string, opts Options) map[string]any {
	first := members[0]
	attrs := make(map[string]any, len(first.Attrs)+1)
	if opts.Keep == KeepFirst {
		for k, v := range first.Attrs {
			attrs[k] = v
		}
	}
	attrs[key] = first.Attrs[key]
	if opts.CountField != "" && opts.CountField != key {
		attrs[opts.CountField] = int64(len(members))
	}
	return attrs
}
