package dissolve

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulsmith/gogeos/geos"

	"nwszones/internal/logger"
	"nwszones/internal/types"
)

// union folds the members' geometries into one polygonal geometry. Members
// failing validate are an error unless repair is set, in which case they are
// buffered first. A single member is unioned with itself so that it goes
// through the same overlay as larger groups.
func union(key string, members []types.Record, repair bool) (orb.Geometry, error) {
	var acc *geos.Geometry
	for _, r := range members {
		invalid := validate(r.Geometry)
		if invalid != nil && (!repair || errors.Is(invalid, errNullGeometry) || errors.Is(invalid, errNotPolygonal)) {
			return nil, &types.GeometryError{Index: r.Index, Key: key, Err: invalid}
		}
		g, err := toGEOS(r.Geometry)
		if err != nil {
			return nil, &types.GeometryError{Index: r.Index, Key: key, Err: err}
		}
		if invalid != nil {
			logger.Log.Debug().Int("record", r.Index).Str("key", key).Err(invalid).Msg("repairing member")
			if g, err = repairGeometry(g); err != nil {
				return nil, &types.GeometryError{Index: r.Index, Key: key, Err: err}
			}
		}
		if acc == nil {
			acc = g
			if len(members) > 1 {
				continue
			}
		}
		if acc, err = acc.Union(g); err != nil {
			return nil, &types.GeometryError{Index: r.Index, Key: key, Err: fmt.Errorf("union: %w", err)}
		}
	}

	geom, err := fromGEOS(acc)
	if err != nil {
		return nil, &types.GeometryError{Index: members[0].Index, Key: key, Err: err}
	}
	return geom, nil
}

func toGEOS(g orb.Geometry) (*geos.Geometry, error) {
	if g == nil {
		return nil, errNullGeometry
	}
	b, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}
	out, err := geos.FromWKB(b)
	if err != nil {
		return nil, fmt.Errorf("malformed %s: %w", g.GeoJSONType(), err)
	}
	return out, nil
}

func fromGEOS(g *geos.Geometry) (orb.Geometry, error) {
	b, err := g.WKB()
	if err != nil {
		return nil, fmt.Errorf("decode union: %w", err)
	}
	geom, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("decode union: %w", err)
	}
	return polygonal(geom)
}

// repairGeometry applies a zero-width buffer, which rebuilds a polygon's
// rings from its noded boundary.
func repairGeometry(g *geos.Geometry) (*geos.Geometry, error) {
	fixed, err := g.Buffer(0)
	if err != nil {
		return nil, fmt.Errorf("repair: %w", err)
	}
	empty, err := fixed.IsEmpty()
	if err != nil {
		return nil, fmt.Errorf("repair: %w", err)
	}
	if empty {
		return nil, errors.New("repair: geometry collapsed to empty")
	}
	return fixed, nil
}

// polygonal keeps the areal part of a union result. GEOS may hand back a
// collection when a union degenerates.
func polygonal(g orb.Geometry) (orb.Geometry, error) {
	var mp orb.MultiPolygon
	switch t := g.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{t}
	case orb.MultiPolygon:
		mp = t
	case orb.Collection:
		for _, m := range t {
			switch x := m.(type) {
			case orb.Polygon:
				mp = append(mp, x)
			case orb.MultiPolygon:
				mp = append(mp, x...)
			}
		}
	default:
		return nil, fmt.Errorf("union produced %s", g.GeoJSONType())
	}

	kept := mp[:0]
	for _, p := range mp {
		if len(p) > 0 && len(p[0]) > 0 {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil, errors.New("union is empty")
	case 1:
		return kept[0], nil
	default:
		return kept, nil
	}
}
