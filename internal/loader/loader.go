// Package loader reads a shapefile bundle (or a zip holding one) into a
// types.Collection.
package loader

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"nwszones/internal/logger"
	"nwszones/internal/types"
)

const fileCode = 9994

// Load reads every record of the shapefile at path. path may name the .shp
// member of a bundle or a .zip archive containing exactly one shapefile.
func Load(path string) (*types.Collection, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return loadZip(path)
	}
	return loadBundle(path)
}

func loadBundle(path string) (*types.Collection, error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	files := make(map[string]string, 3)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		p, err := sibling(base, ext)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", types.ErrIO, base+ext, err)
		}
		files[ext] = p
	}
	shpPath := files[".shp"]
	if err := checkHeader(shpPath); err != nil {
		return nil, err
	}

	shpFile, err := os.Open(shpPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", types.ErrIO, shpPath, err)
	}
	dbfFile, err := os.Open(files[".dbf"])
	if err != nil {
		shpFile.Close()
		return nil, fmt.Errorf("%w: open %s: %v", types.ErrIO, files[".dbf"], err)
	}
	r := shp.SequentialReaderFromExt(shpFile, dbfFile)
	defer r.Close()

	c, err := readAll(r, path)
	if err != nil {
		return nil, err
	}
	if prjPath, err := sibling(base, ".prj"); err == nil {
		if prj, err := os.ReadFile(prjPath); err == nil {
			c.Projection = strings.TrimSpace(string(prj))
		}
	}
	warnProjected(c)
	return c, nil
}

// sibling finds base+ext, matching the extension case-insensitively so that
// bundles named ZONES.SHP/ZONES.DBF load on case-sensitive filesystems.
func sibling(base, ext string) (string, error) {
	p := base + ext
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	dir, name := filepath.Split(base)
	lookIn := dir
	if lookIn == "" {
		lookIn = "."
	}
	entries, err := os.ReadDir(lookIn)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), name+ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", os.ErrNotExist
}

func loadZip(path string) (*types.Collection, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", types.ErrIO, path, err)
	}
	names, err := shp.ShapesInZip(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", types.ErrIO, path, err)
	}
	if len(names) != 1 {
		return nil, fmt.Errorf("%w: %s holds %d shapefiles, want 1", types.ErrIO, path, len(names))
	}

	r, err := shp.OpenZip(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", types.ErrIO, path, err)
	}
	defer r.Close()

	if len(r.Fields()) == 0 {
		return nil, fmt.Errorf("%w: %s: missing attribute table for %s", types.ErrIO, path, names[0])
	}
	c, err := readAll(r, path)
	if err != nil {
		return nil, err
	}
	c.Projection = readZipMember(path, strings.TrimSuffix(names[0], filepath.Ext(names[0]))+".prj")
	warnProjected(c)
	return c, nil
}

// readAll drains r into a collection, converting each shape and typing each
// attribute by its DBF column definition.
func readAll(r shp.SequentialReader, source string) (*types.Collection, error) {
	fields := convertFields(r.Fields())
	c := &types.Collection{Fields: fields, Source: source}

	for r.Next() {
		idx, shape := r.Shape()
		geom, err := toGeometry(shape)
		if err != nil {
			return nil, &types.GeometryError{Index: idx, Err: err}
		}

		attrs := make(map[string]any, len(fields))
		for i, f := range fields {
			attrs[f.Name] = parseValue(f, r.Attribute(i))
		}

		c.Records = append(c.Records, types.Record{
			Index:    idx,
			Attrs:    attrs,
			Geometry: geom,
		})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", types.ErrIO, source, err)
	}
	return c, nil
}

func convertFields(in []shp.Field) []types.Field {
	out := make([]types.Field, len(in))
	for i, f := range in {
		out[i] = types.Field{
			Name:      f.String(),
			Type:      f.Fieldtype,
			Size:      f.Size,
			Precision: f.Precision,
		}
	}
	return out
}

// toGeometry converts polygon shapes into orb geometry. Null shapes map to a
// nil geometry.
func toGeometry(shape shp.Shape) (orb.Geometry, error) {
	switch s := shape.(type) {
	case *shp.Null, nil:
		return nil, nil
	case *shp.Polygon:
		return buildPolygon(s.Parts, s.Points), nil
	case *shp.PolygonZ:
		return buildPolygon(s.Parts, s.Points), nil
	case *shp.PolygonM:
		return buildPolygon(s.Parts, s.Points), nil
	default:
		return nil, fmt.Errorf("unsupported shape type %T", shape)
	}
}

// buildPolygon splits the flat point slice into rings and groups them into
// polygons. Shapefile shells wind clockwise and holes counter-clockwise.
func buildPolygon(partIdx []int32, points []shp.Point) orb.Geometry {
	numParts := len(partIdx)
	if numParts == 0 || len(points) == 0 {
		return nil
	}

	rings := make([]orb.Ring, 0, numParts)
	for i := 0; i < numParts; i++ {
		start := partIdx[i]
		end := int32(len(points))
		if i+1 < numParts {
			end = partIdx[i+1]
		}
		if start < 0 || end > int32(len(points)) || start >= end {
			continue
		}
		ring := make(orb.Ring, 0, end-start+1)
		for _, pt := range points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		rings = append(rings, ring)
	}

	var polys []orb.Polygon
	var holes []orb.Ring
	for _, ring := range rings {
		if ring.Orientation() == orb.CCW {
			holes = append(holes, ring)
			continue
		}
		polys = append(polys, orb.Polygon{ring})
	}

	for _, hole := range holes {
		best, bestArea := -1, math.MaxFloat64
		for i, p := range polys {
			if !p[0].Bound().Contains(hole[0]) || !planar.RingContains(p[0], hole[0]) {
				continue
			}
			if a := math.Abs(planar.Area(p[0])); a < bestArea {
				best, bestArea = i, a
			}
		}
		if best < 0 {
			// counter-clockwise shell from a writer that ignored the winding rule
			polys = append(polys, orb.Polygon{hole})
			continue
		}
		polys[best] = append(polys[best], hole)
	}

	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	default:
		return orb.MultiPolygon(polys)
	}
}

// checkHeader rejects files that do not start with the shapefile file code.
func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", types.ErrIO, path, err)
	}
	defer f.Close()

	var code int32
	if err := binary.Read(f, binary.BigEndian, &code); err != nil || code != fileCode {
		return fmt.Errorf("%w: %s is not a shapefile", types.ErrIO, path)
	}
	return nil
}

func readZipMember(path, name string) string {
	z, err := zip.OpenReader(path)
	if err != nil {
		return ""
	}
	defer z.Close()
	for _, f := range z.File {
		if !strings.EqualFold(f.Name, name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return strings.TrimSpace(string(b))
	}
	return ""
}

func warnProjected(c *types.Collection) {
	if strings.HasPrefix(strings.ToUpper(c.Projection), "PROJCS") {
		logger.Log.Warn().Str("source", c.Source).Msg("projected CRS; GeoJSON output expects longitude/latitude")
	}
}
