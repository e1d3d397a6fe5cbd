package types

import (
	"strconv"

	"github.com/paulmach/orb"
)

// Field describes one column of the attribute table. Type is the DBF type
// byte (C, N, F, L or D); Size and Precision come straight from the header.
type Field struct {
	Name      string
	Type      byte
	Size      uint8
	Precision uint8
}

// Record is one row of a loaded layer: its attribute values keyed by column
// name plus a polygon or multi-polygon geometry. Geometry is nil for null
// shapes.
type Record struct {
	Index    int
	Attrs    map[string]any
	Geometry orb.Geometry
}

// Collection is the working set passed between pipeline stages. Stages build
// a new Collection rather than editing the one they were given.
type Collection struct {
	Fields     []Field
	Records    []Record
	Projection string
	Source     string
}

// HasField reports whether the collection carries a column with this name.
func (c *Collection) HasField(name string) bool {
	for _, f := range c.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// FieldNames returns the column names in source order.
func (c *Collection) FieldNames() []string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.Records)
}

// Derive returns an empty collection sharing c's layout metadata.
func (c *Collection) Derive() *Collection {
	return &Collection{
		Fields:     c.Fields,
		Projection: c.Projection,
		Source:     c.Source,
	}
}

// FormatValue renders an attribute value as the string used for equality
// comparisons and grouping keys. nil renders as the empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
