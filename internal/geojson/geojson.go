// Package geojson writes collections as RFC 7946 FeatureCollections and reads
// them back.
package geojson

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/paulmach/orb"
	gj "github.com/paulmach/orb/geojson"

	"nwszones/internal/types"
)

// Encode renders c as a FeatureCollection document: one Feature per record,
// properties from the record attributes and geometry rewound to the RFC 7946
// winding order.
func Encode(c *types.Collection) ([]byte, error) {
	fc := gj.NewFeatureCollection()
	for _, r := range c.Records {
		f := gj.NewFeature(Rewind(r.Geometry))
		for k, v := range r.Attrs {
			f.Properties[k] = v
		}
		fc.Append(f)
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode feature collection: %w", err)
	}
	return append(b, '\n'), nil
}

// EncodeGeometry renders a single geometry object with RFC 7946 winding.
func EncodeGeometry(g orb.Geometry) ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	b, err := gj.NewGeometry(Rewind(g)).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	return b, nil
}

// Write encodes c to path. The document goes to a temporary file in the same
// directory first and is renamed over path once complete, so a failed write
// leaves no output behind.
func Write(c *types.Collection, path string) error {
	b, err := Encode(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", types.ErrIO, path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", types.ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: write %s: %v", types.ErrIO, path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", types.ErrIO, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename to %s: %v", types.ErrIO, path, err)
	}
	return nil
}

// Read loads a FeatureCollection document into a collection. Column names are
// the union of all property keys, sorted; numbers decode as float64.
func Read(path string) (*types.Collection, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", types.ErrIO, path, err)
	}
	fc, err := gj.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", types.ErrIO, path, err)
	}

	c := &types.Collection{Source: path}
	kinds := make(map[string]byte)
	for i, f := range fc.Features {
		attrs := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			attrs[k] = v
			if _, seen := kinds[k]; !seen || kinds[k] == 0 {
				kinds[k] = kindOf(v)
			}
		}
		c.Records = append(c.Records, types.Record{Index: i, Attrs: attrs, Geometry: f.Geometry})
	}

	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		t := kinds[n]
		if t == 0 {
			t = 'C'
		}
		c.Fields = append(c.Fields, types.Field{Name: n, Type: t})
	}
	return c, nil
}

func kindOf(v any) byte {
	switch v.(type) {
	case string:
		return 'C'
	case float64:
		return 'F'
	case bool:
		return 'L'
	default:
		return 0
	}
}

// Rewind returns a copy of g whose exterior rings run counter-clockwise and
// whose holes run clockwise. Other geometry types are returned unchanged.
func Rewind(g orb.Geometry) orb.Geometry {
	switch t := g.(type) {
	case orb.Polygon:
		return rewindPolygon(t)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(t))
		for i, p := range t {
			out[i] = rewindPolygon(p)
		}
		return out
	default:
		return g
	}
}

func rewindPolygon(p orb.Polygon) orb.Polygon {
	out := p.Clone()
	for i, r := range out {
		want := orb.CW
		if i == 0 {
			want = orb.CCW
		}
		if o := r.Orientation(); o != 0 && o != want {
			r.Reverse()
		}
	}
	return out
}
