package sources

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"fcexport/internal/export"
)

// gpkgBlob builds a GeoPackage binary geometry: "GP" magic, version 0,
// little-endian flags with no envelope, SRID, then WKB.
func gpkgBlob(t *testing.T, g orb.Geometry, srid int) []byte {
	t.Helper()
	data, err := wkb.Marshal(g)
	if err != nil {
		t.Fatalf("marshal WKB: %v", err)
	}
	blob := []byte{'G', 'P', 0, 0x01}
	blob = binary.LittleEndian.AppendUint32(blob, uint32(srid))
	return append(blob, data...)
}

// writeTestGeoPackage creates a minimal GeoPackage with one feature
// layer and returns its path.
func writeTestGeoPackage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.gpkg")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE gpkg_geometry_columns (
			table_name TEXT NOT NULL,
			column_name TEXT NOT NULL,
			geometry_type_name TEXT NOT NULL,
			srs_id INTEGER NOT NULL,
			z TINYINT NOT NULL,
			m TINYINT NOT NULL
		)`,
		`INSERT INTO gpkg_geometry_columns VALUES ('landmarks', 'geom', 'POINT', 4326, 0, 0)`,
		`CREATE TABLE landmarks (
			id INTEGER PRIMARY KEY,
			name TEXT,
			rating REAL,
			geom BLOB
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s[:30], err)
		}
	}

	insert := `INSERT INTO landmarks (id, name, rating, geom) VALUES (?, ?, ?, ?)`
	if _, err := db.Exec(insert, 1, "Souq Waqif", 4.7, gpkgBlob(t, orb.Point{51.5, 25.3}, 4326)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.Exec(insert, 2, "Unplaced", nil, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return path
}

func TestGeoPackageDiscover(t *testing.T) {
	path := writeTestGeoPackage(t)

	schema, err := geopackageSource{}.Discover(context.Background(), path, "landmarks")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if schema.GeometryColumn != "geom" {
		t.Errorf("geometry column = %q, want geom", schema.GeometryColumn)
	}
	if schema.SRID != 4326 {
		t.Errorf("srid = %d, want 4326", schema.SRID)
	}

	wantFields := []export.Field{
		{Name: "id", Type: "number"},
		{Name: "name", Type: "text"},
		{Name: "rating", Type: "number"},
	}
	if len(schema.Fields) != len(wantFields) {
		t.Fatalf("fields = %+v, want %+v", schema.Fields, wantFields)
	}
	for i, want := range wantFields {
		if schema.Fields[i] != want {
			t.Errorf("field[%d] = %+v, want %+v", i, schema.Fields[i], want)
		}
	}
}

func TestGeoPackageDiscoverMissingFile(t *testing.T) {
	_, err := geopackageSource{}.Discover(context.Background(),
		filepath.Join(t.TempDir(), "absent.gpkg"), "landmarks")
	if !errors.Is(err, export.ErrLayerNotFound) {
		t.Fatalf("err = %v, want ErrLayerNotFound", err)
	}
}

func TestGeoPackageDiscoverMissingLayer(t *testing.T) {
	path := writeTestGeoPackage(t)
	_, err := geopackageSource{}.Discover(context.Background(), path, "no_such_layer")
	if !errors.Is(err, export.ErrLayerNotFound) {
		t.Fatalf("err = %v, want ErrLayerNotFound", err)
	}
}

func TestGeoPackageRead(t *testing.T) {
	path := writeTestGeoPackage(t)
	src := geopackageSource{}
	ctx := context.Background()

	schema, err := src.Discover(ctx, path, "landmarks")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	recCh, errCh := src.Read(ctx, path, "landmarks", schema)
	var rows []export.RawRecord
	for r := range recCh {
		rows = append(rows, r)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("read: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	p, ok := rows[0].Geometry.(orb.Point)
	if !ok {
		t.Fatalf("geometry is %T, want orb.Point", rows[0].Geometry)
	}
	if p[0] != 51.5 || p[1] != 25.3 {
		t.Errorf("point = %v, want [51.5 25.3]", p)
	}
	if rows[0].SRID != 4326 {
		t.Errorf("srid = %d, want 4326", rows[0].SRID)
	}

	// NULL shape column stays a nil geometry.
	if rows[1].Geometry != nil {
		t.Errorf("row 2 geometry = %v, want nil", rows[1].Geometry)
	}
}

func TestParseGeoPackageBlob(t *testing.T) {
	blob := gpkgBlob(t, orb.Point{10, 20}, 3857)
	g, srid, err := parseGeoPackageBlob(blob)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if srid != 3857 {
		t.Errorf("srid = %d, want 3857", srid)
	}
	if p := g.(orb.Point); p[0] != 10 || p[1] != 20 {
		t.Errorf("point = %v", p)
	}

	// Envelope bytes between header and WKB are skipped.
	withEnv := []byte{'G', 'P', 0, 0x03} // LE + envelope indicator 1
	withEnv = binary.LittleEndian.AppendUint32(withEnv, 4326)
	withEnv = append(withEnv, make([]byte, 32)...) // XY envelope
	wkbBytes, _ := wkb.Marshal(orb.Point{1, 2})
	withEnv = append(withEnv, wkbBytes...)

	g, srid, err = parseGeoPackageBlob(withEnv)
	if err != nil {
		t.Fatalf("parse with envelope: %v", err)
	}
	if srid != 4326 {
		t.Errorf("srid = %d, want 4326", srid)
	}
	if p := g.(orb.Point); p[0] != 1 || p[1] != 2 {
		t.Errorf("point = %v", p)
	}

	// Empty-geometry flag yields nil without touching WKB.
	empty := []byte{'G', 'P', 0, 0x11}
	empty = binary.LittleEndian.AppendUint32(empty, 4326)
	empty = append(empty, wkbBytes...)
	g, _, err = parseGeoPackageBlob(empty)
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if g != nil {
		t.Errorf("empty geometry = %v, want nil", g)
	}

	if _, _, err := parseGeoPackageBlob([]byte("not a blob")); err == nil {
		t.Error("expected error for junk input")
	}
}

func TestSQLiteFieldType(t *testing.T) {
	tests := map[string]string{
		"INTEGER":      "number",
		"int":          "number",
		"REAL":         "number",
		"NUMERIC(9,2)": "number",
		"BOOLEAN":      "boolean",
		"DATETIME":     "datetime",
		"DATE":         "datetime",
		"TEXT":         "text",
		"VARCHAR(50)":  "text",
		"BLOB":         "text",
	}
	for declared, want := range tests {
		if got := sqliteFieldType(declared); got != want {
			t.Errorf("sqliteFieldType(%q) = %q, want %q", declared, got, want)
		}
	}
}
