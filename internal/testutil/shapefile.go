// Package testutil writes small shapefile fixtures for tests.
package testutil

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// NAD83 is the .prj text NWS ships with its zone shapefiles.
const NAD83 = `GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// Feature is one fixture row: polygon parts plus values in field order.
type Feature struct {
	Parts  [][]shp.Point
	Values []any
}

// Rect returns a closed clockwise ring, the shapefile winding for shells.
func Rect(minX, minY, maxX, maxY float64) []shp.Point {
	return []shp.Point{
		{X: minX, Y: minY},
		{X: minX, Y: maxY},
		{X: maxX, Y: maxY},
		{X: maxX, Y: minY},
		{X: minX, Y: minY},
	}
}

// Hole returns a closed counter-clockwise ring.
func Hole(minX, minY, maxX, maxY float64) []shp.Point {
	r := Rect(minX, minY, maxX, maxY)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return r
}

// ZoneFields mirrors the columns of the NWS public forecast zone layer.
func ZoneFields() []shp.Field {
	return []shp.Field{
		shp.StringField("STATE", 2),
		shp.StringField("CWA", 9),
		shp.StringField("ZONE", 3),
		shp.StringField("NAME", 40),
		shp.FloatField("LAT", 9, 5),
	}
}

// MichiganSample is the five-zone layer used across the pipeline tests:
// three MI zones (two APX, one GRR), one OH and one IN. The two APX squares
// share an edge.
func MichiganSample() []Feature {
	return []Feature{
		{Parts: [][]shp.Point{Rect(0, 0, 1, 1)}, Values: []any{"MI", "APX", "016", "Charlevoix", 45.2}},
		{Parts: [][]shp.Point{Rect(1, 0, 2, 1)}, Values: []any{"MI", "APX", "017", "Emmet", 45.5}},
		{Parts: [][]shp.Point{Rect(10, 10, 11, 12)}, Values: []any{"OH", "CLE", "003", "Lucas", 41.6}},
		{Parts: [][]shp.Point{Rect(0, -3, 2, -2)}, Values: []any{"MI", "GRR", "037", "Kent", 42.9}},
		{Parts: [][]shp.Point{Rect(20, 20, 21, 21)}, Values: []any{"IN", "IWX", "005", "Allen", 41.1}},
	}
}

// WriteShapefile creates path (a .shp name) with its .shx, .dbf and .prj
// siblings and returns path.
func WriteShapefile(t testing.TB, path string, fields []shp.Field, feats []Feature) string {
	t.Helper()

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields(fields))
	for _, f := range feats {
		poly := shp.Polygon(*shp.NewPolyLine(f.Parts))
		row := int(w.Write(&poly))
		for i, v := range f.Values {
			require.NoError(t, w.WriteAttribute(row, i, v))
		}
	}
	w.Close()

	base := strings.TrimSuffix(path, filepath.Ext(path))
	// go-shp v0.1.1 names the table "<base>dbf" without the dot.
	if _, err := os.Stat(base + "dbf"); err == nil {
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	}
	require.NoError(t, os.WriteFile(base+".prj", []byte(NAD83), 0o644))
	return path
}

// WriteSample writes MichiganSample into dir and returns the .shp path.
func WriteSample(t testing.TB, dir string) string {
	t.Helper()
	return WriteShapefile(t, filepath.Join(dir, "z_18mr25.shp"), ZoneFields(), MichiganSample())
}

// ZipBundle packs the bundle next to shpPath into zipPath.
func ZipBundle(t testing.TB, shpPath, zipPath string) string {
	t.Helper()

	out, err := os.Create(zipPath)
	require.NoError(t, err)
	defer out.Close()

	zw := zip.NewWriter(out)
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		in, err := os.Open(base + ext)
		if os.IsNotExist(err) {
			continue
		}
		require.NoError(t, err)
		dst, err := zw.Create(filepath.Base(base + ext))
		require.NoError(t, err)
		_, err = io.Copy(dst, in)
		in.Close()
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return zipPath
}
