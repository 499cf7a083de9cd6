package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func sampleRecords() []Record {
	return []Record{
		{
			Fields: []FieldValue{
				{Name: "id", Value: int64(1)},
				{Name: "name", Value: "Alpha"},
				{Name: "created", Value: "2024-01-01T00:00:00"},
			},
			Geometry: geojson.NewGeometry(orb.Point{51.5, 25.3}),
		},
		{
			Fields: []FieldValue{
				{Name: "id", Value: int64(2)},
				{Name: "name", Value: "Café Corniche"},
				{Name: "created", Value: nil},
			},
			Geometry: nil,
		},
	}
}

func encode(t *testing.T, format Format, records []Record) []byte {
	t.Helper()
	enc, err := EncoderFor(format)
	if err != nil {
		t.Fatalf("EncoderFor(%s): %v", format, err)
	}
	data, err := enc.Encode(records)
	if err != nil {
		t.Fatalf("Encode(%s): %v", format, err)
	}
	return data
}

func TestEncodersRejectEmpty(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatJSON, FormatGeoJSON} {
		enc, err := EncoderFor(format)
		if err != nil {
			t.Fatalf("EncoderFor(%s): %v", format, err)
		}
		if _, err := enc.Encode(nil); !errors.Is(err, ErrNoRecords) {
			t.Errorf("%s: err = %v, want ErrNoRecords", format, err)
		}
	}
}

func TestCSVEncoder(t *testing.T) {
	data := encode(t, FormatCSV, sampleRecords())

	if !strings.HasPrefix(string(data), "\ufeff") {
		t.Fatal("CSV output missing UTF-8 BOM")
	}

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\ufeff")))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}

	wantHeader := []string{"id", "name", "created", "geometry"}
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], h)
		}
	}

	if rows[1][0] != "1" || rows[1][1] != "Alpha" || rows[1][2] != "2024-01-01T00:00:00" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if !strings.Contains(rows[1][3], `"type":"Point"`) {
		t.Errorf("geometry cell = %q, want JSON stringification", rows[1][3])
	}
	// Null timestamp and null geometry render as empty cells.
	if rows[2][2] != "" || rows[2][3] != "" {
		t.Errorf("row 2 nulls = %q, %q, want empty cells", rows[2][2], rows[2][3])
	}
	if rows[2][1] != "Café Corniche" {
		t.Errorf("row 2 name = %q", rows[2][1])
	}
}

func TestJSONEncoder(t *testing.T) {
	data := encode(t, FormatJSON, sampleRecords())
	out := string(data)

	var parsed []map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("got %d objects, want 2", len(parsed))
	}
	if parsed[0]["name"] != "Alpha" {
		t.Errorf("name = %v", parsed[0]["name"])
	}
	if parsed[1]["geometry"] != nil {
		t.Errorf("geometry = %v, want null", parsed[1]["geometry"])
	}

	// Source field order survives; geometry is always last.
	idIdx := strings.Index(out, `"id"`)
	nameIdx := strings.Index(out, `"name"`)
	geomIdx := strings.Index(out, `"geometry"`)
	if !(idIdx < nameIdx && nameIdx < geomIdx) {
		t.Errorf("field order lost: id@%d name@%d geometry@%d", idIdx, nameIdx, geomIdx)
	}

	// 4-space indentation, non-ASCII kept literal.
	if !strings.Contains(out, "\n    {") {
		t.Error("output is not indented with 4 spaces")
	}
	if !strings.Contains(out, "Café Corniche") {
		t.Error("non-ASCII characters were escaped")
	}
	if strings.Contains(out, `\u00e9`) {
		t.Error("found unicode escape in output")
	}
}

func TestGeoJSONEncoder(t *testing.T) {
	data := encode(t, FormatGeoJSON, sampleRecords())
	out := string(data)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Type       string          `json:"type"`
			Geometry   json.RawMessage `json:"geometry"`
			Properties map[string]any  `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if fc.Type != "FeatureCollection" {
		t.Errorf("type = %q, want FeatureCollection", fc.Type)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(fc.Features))
	}
	if fc.Features[0].Type != "Feature" {
		t.Errorf("feature type = %q", fc.Features[0].Type)
	}

	var geom struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(fc.Features[0].Geometry, &geom); err != nil {
		t.Fatalf("parse feature geometry: %v", err)
	}
	if geom.Type != "Point" || geom.Coordinates[0] != 51.5 || geom.Coordinates[1] != 25.3 {
		t.Errorf("geometry = %+v", geom)
	}

	// Geometry lives on the feature, not in properties.
	props := fc.Features[0].Properties
	if _, ok := props["geometry"]; ok {
		t.Error("geometry leaked into properties")
	}
	if props["id"] != float64(1) || props["name"] != "Alpha" || props["created"] != "2024-01-01T00:00:00" {
		t.Errorf("properties = %v", props)
	}

	// Null shape → "geometry": null per RFC 7946.
	if string(fc.Features[1].Geometry) != "null" {
		t.Errorf("feature 2 geometry = %s, want null", fc.Features[1].Geometry)
	}

	// Property order follows the source field order.
	idIdx := strings.Index(out, `"id"`)
	nameIdx := strings.Index(out, `"name"`)
	if !(idIdx >= 0 && idIdx < nameIdx) {
		t.Errorf("property order lost: id@%d name@%d", idIdx, nameIdx)
	}
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"csv", "json", "geojson"} {
		if _, err := ParseFormat(valid); err != nil {
			t.Errorf("ParseFormat(%q): %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "xml", "shapefile", "CSV"} {
		if _, err := ParseFormat(invalid); err == nil {
			t.Errorf("ParseFormat(%q): expected error", invalid)
		}
	}
}
