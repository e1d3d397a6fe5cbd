package dissolve

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var errNotPolygonal = errors.New("geometry is not a polygon")

// validate checks every ring of a polygonal geometry: closed, at least
// three distinct vertices, non-zero area and no self-intersection.
// Crossings between different rings are left to GEOS.
func validate(g orb.Geometry) error {
	switch t := g.(type) {
	case nil:
		return errNullGeometry
	case orb.Polygon:
		return validatePolygon(t)
	case orb.MultiPolygon:
		for i, p := range t {
			if err := validatePolygon(p); err != nil {
				return fmt.Errorf("part %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", errNotPolygonal, g.GeoJSONType())
	}
}

func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return errors.New("polygon has no rings")
	}
	for i, r := range p {
		if err := validateRing(r); err != nil {
			return fmt.Errorf("ring %d: %w", i, err)
		}
	}
	return nil
}

func validateRing(r orb.Ring) error {
	pts := make([]orb.Point, 0, len(r))
	for _, pt := range r {
		if n := len(pts); n > 0 && pts[n-1] == pt {
			continue
		}
		pts = append(pts, pt)
	}
	if len(pts) < 2 || pts[0] != pts[len(pts)-1] {
		return errors.New("ring is not closed")
	}
	if len(pts) < 4 {
		return fmt.Errorf("ring has %d distinct vertices, need 3", len(pts)-1)
	}
	if at, ok := selfIntersection(pts); ok {
		return fmt.Errorf("ring self-intersects near (%g, %g)", at[0], at[1])
	}
	if planar.Area(orb.Ring(pts)) == 0 {
		return errors.New("ring has zero area")
	}
	return nil
}

type segment struct {
	i    int
	a, b orb.Point
	minX float64
	maxX float64
}

// selfIntersection sweeps the ring's edges by x extent and reports the first
// pair of non-adjacent edges that touch or cross.
func selfIntersection(pts []orb.Point) (orb.Point, bool) {
	n := len(pts) - 1
	segs := make([]segment, n)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[i+1]
		segs[i] = segment{i: i, a: a, b: b, minX: math.Min(a[0], b[0]), maxX: math.Max(a[0], b[0])}
	}
	sort.Slice(segs, func(x, y int) bool { return segs[x].minX < segs[y].minX })

	var active []segment
	for _, s := range segs {
		kept := active[:0]
		for _, o := range active {
			if o.maxX >= s.minX {
				kept = append(kept, o)
			}
		}
		active = kept

		for _, o := range active {
			if adjacent(s.i, o.i, n) {
				continue
			}
			if segmentsTouch(s.a, s.b, o.a, o.b) {
				return s.a, true
			}
		}
		active = append(active, s)
	}
	return orb.Point{}, false
}

func adjacent(i, j, n int) bool {
	d := i - j
	if d < 0 {
		d = -d
	}
	return d == 1 || d == n-1
}

func segmentsTouch(p1, p2, p3, p4 orb.Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(p3, p4, p1)) ||
		(d2 == 0 && onSegment(p3, p4, p2)) ||
		(d3 == 0 && onSegment(p1, p2, p3)) ||
		(d4 == 0 && onSegment(p1, p2, p4))
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}
