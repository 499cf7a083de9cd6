package export

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ── Record ─────────────────────────────────────────────────
// Common intermediate data format.
// All sources emit RawRecords; the normalizer turns them into Records,
// which every encoder consumes.

// Field describes a single attribute column of a feature class.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "number" | "boolean" | "datetime"
}

// Schema describes the shape of records coming from a source.
// Field order is whatever the source reports; it becomes the column
// order for every output format.
type Schema struct {
	Fields         []Field `json:"fields"`
	GeometryColumn string  `json:"geometryColumn,omitempty"`
	SRID           int     `json:"srid,omitempty"`
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// RawRecord is a single row as read from the source cursor: attribute
// values aligned with the schema's field order, plus an optional
// geometry handle in the source's coordinate reference system.
type RawRecord struct {
	Values   []any
	Geometry orb.Geometry // nil when the row has no shape
	SRID     int          // CRS of Geometry; sources that reproject server-side report 4326
}

// FieldValue is one (name, value) pair of a normalized record.
type FieldValue struct {
	Name  string
	Value any
}

// Record is a serialization-ready row. Fields keep the schema order and
// hold only JSON-safe values (string, float64, int64, bool, nil); the
// geometry entry is always last and may be nil.
type Record struct {
	Fields   []FieldValue
	Geometry *geojson.Geometry
}

// Lookup returns the value of the named field.
func (r Record) Lookup(name string) (any, bool) {
	for _, fv := range r.Fields {
		if fv.Name == name {
			return fv.Value, true
		}
	}
	return nil, false
}

// timestampLayout is ISO-8601 date+time with no timezone designator —
// whatever the source returns is formatted directly, no zone inference.
const timestampLayout = "2006-01-02T15:04:05"

// NormalizeRecord converts one raw row into a Record. It is pure and
// deterministic: identical input yields an identical record. Keys are
// never dropped or renamed; the geometry entry is appended last.
func NormalizeRecord(schema *Schema, raw RawRecord) (Record, error) {
	geom, err := NormalizeGeometry(raw.Geometry, raw.SRID)
	if err != nil {
		return Record{}, err
	}

	fields := make([]FieldValue, len(schema.Fields))
	for i, f := range schema.Fields {
		var v any
		if i < len(raw.Values) {
			v = raw.Values[i]
		}
		fields[i] = FieldValue{Name: f.Name, Value: normalizeValue(v)}
	}
	return Record{Fields: fields, Geometry: geom}, nil
}

// normalizeValue maps a driver value to its JSON-safe form.
// Timestamps become ISO-8601 strings; byte slices become strings;
// everything else passes through unchanged.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(timestampLayout)
	case []byte:
		return string(val)
	default:
		return val
	}
}
