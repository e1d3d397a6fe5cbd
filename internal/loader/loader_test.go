package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nwszones/internal/testutil"
	"nwszones/internal/types"
)

func TestLoadBundle(t *testing.T) {
	path := testutil.WriteSample(t, t.TempDir())

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"STATE", "CWA", "ZONE", "NAME", "LAT"}, c.FieldNames())
	assert.Equal(t, path, c.Source)
	assert.Equal(t, testutil.NAD83, c.Projection)
	require.Len(t, c.Records, 5)

	first := c.Records[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "MI", first.Attrs["STATE"])
	assert.Equal(t, "APX", first.Attrs["CWA"])
	assert.Equal(t, "Charlevoix", first.Attrs["NAME"])
	assert.InDelta(t, 45.2, first.Attrs["LAT"], 1e-9)

	poly, ok := first.Geometry.(orb.Polygon)
	require.True(t, ok, "got %T", first.Geometry)
	require.Len(t, poly, 1)
	assert.InDelta(t, 1.0, planar.Area(poly), 1e-9)

	var states []string
	for _, r := range c.Records {
		states = append(states, r.Attrs["STATE"].(string))
	}
	assert.Equal(t, []string{"MI", "MI", "OH", "MI", "IN"}, states)
}

func TestLoadZip(t *testing.T) {
	dir := t.TempDir()
	shpPath := testutil.WriteSample(t, dir)
	zipPath := testutil.ZipBundle(t, shpPath, filepath.Join(dir, "z_18mr25.zip"))

	c, err := Load(zipPath)
	require.NoError(t, err)
	require.Len(t, c.Records, 5)
	assert.Equal(t, "GRR", c.Records[3].Attrs["CWA"])
	assert.Equal(t, testutil.NAD83, c.Projection)
}

func TestLoadUpperCaseExtensions(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteSample(t, dir)
	base := path[:len(path)-4]
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		require.NoError(t, os.Rename(base+ext, base+strings.ToUpper(ext)))
	}

	for _, p := range []string{base + ".SHP", base + ".shp"} {
		c, err := Load(p)
		require.NoError(t, err, p)
		assert.Len(t, c.Records, 5)
		assert.Equal(t, "APX", c.Records[0].Attrs["CWA"])
		assert.Equal(t, testutil.NAD83, c.Projection)
	}
}

func TestLoadHolesAndMultiPart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lakes.shp")
	testutil.WriteShapefile(t, path, []shp.Field{shp.StringField("CWA", 3)}, []testutil.Feature{
		{
			Parts: [][]shp.Point{
				testutil.Rect(0, 0, 10, 10),
				testutil.Hole(2, 2, 4, 4),
				testutil.Rect(20, 0, 22, 2),
			},
			Values: []any{"MQT"},
		},
	})

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Records, 1)

	mp, ok := c.Records[0].Geometry.(orb.MultiPolygon)
	require.True(t, ok, "got %T", c.Records[0].Geometry)
	require.Len(t, mp, 2)
	assert.Len(t, mp[0], 2, "hole attached to the containing shell")
	assert.Len(t, mp[1], 1)
	assert.InDelta(t, 100.0-4.0+4.0, planar.Area(mp), 1e-9)
}

func TestLoadMissingSibling(t *testing.T) {
	path := testutil.WriteSample(t, t.TempDir())
	require.NoError(t, os.Remove(path[:len(path)-4]+".dbf"))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
	assert.Contains(t, err.Error(), ".dbf")
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.shp"))
	assert.ErrorIs(t, err, types.ErrIO)

	_, err = Load(filepath.Join(t.TempDir(), "nope.zip"))
	assert.ErrorIs(t, err, types.ErrIO)
}

func TestLoadNotAShapefile(t *testing.T) {
	dir := t.TempDir()
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "junk"+ext), []byte("not a shapefile at all"), 0o644))
	}
	_, err := Load(filepath.Join(dir, "junk.shp"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
	assert.Contains(t, err.Error(), "not a shapefile")
}

func TestToGeometry(t *testing.T) {
	g, err := toGeometry(&shp.Null{})
	require.NoError(t, err)
	assert.Nil(t, g)

	_, err = toGeometry(&shp.Point{X: 1, Y: 2})
	assert.Error(t, err)

	pz := &shp.PolygonZ{Parts: []int32{0}, Points: testutil.Rect(0, 0, 2, 2)}
	g, err = toGeometry(pz)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, planar.Area(g), 1e-9)
}

func TestBuildPolygonClosesRings(t *testing.T) {
	open := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}}
	g := buildPolygon([]int32{0}, open)
	poly, ok := g.(orb.Polygon)
	require.True(t, ok)
	assert.True(t, poly[0].Closed())
	assert.Len(t, poly[0], 5)
}

func TestParseValue(t *testing.T) {
	num := types.Field{Type: 'N'}
	dec := types.Field{Type: 'N', Precision: 5}
	assert.Equal(t, int64(42), parseValue(num, " 42"))
	assert.Nil(t, parseValue(num, ""))
	assert.Nil(t, parseValue(num, "***"))
	assert.Equal(t, 45.25, parseValue(dec, "45.25000"))
	assert.Equal(t, 1.5, parseValue(types.Field{Type: 'F'}, "1.5"))
	for _, raw := range []string{"nan", "NaN", "inf", "-Infinity", "+Inf"} {
		assert.Nil(t, parseValue(dec, raw), raw)
		assert.Nil(t, parseValue(types.Field{Type: 'F'}, raw), raw)
	}
	assert.Equal(t, true, parseValue(types.Field{Type: 'L'}, "T"))
	assert.Equal(t, false, parseValue(types.Field{Type: 'L'}, "n"))
	assert.Nil(t, parseValue(types.Field{Type: 'L'}, "?"))
	assert.Equal(t, "2025-03-18", parseValue(types.Field{Type: 'D'}, "20250318"))
	assert.Nil(t, parseValue(types.Field{Type: 'D'}, "2025"))
	assert.Equal(t, "Lake Huron", parseValue(types.Field{Type: 'C'}, "Lake Huron   "))
}
