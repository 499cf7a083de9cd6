package sources

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite"

	"fcexport/internal/export"
)

// ── GeoPackage Source ──────────────────────────────────────
// Reads feature layers from an OGC GeoPackage (or plain SQLite) file.
// Layer catalog comes from gpkg_geometry_columns; geometry blobs carry
// their own SRID in the GeoPackage binary header.

type geopackageSource struct{}

func init() { export.RegisterSource(geopackageSource{}) }

func (geopackageSource) Spec() export.SourceSpec {
	return export.SourceSpec{
		Type:    "geopackage",
		Label:   "GeoPackage / SQLite file",
		Example: "/data/layers.gpkg",
	}
}

func (geopackageSource) Discover(ctx context.Context, location, layer string) (*export.Schema, error) {
	if _, err := os.Stat(location); err != nil {
		return nil, fmt.Errorf("%w: source file %q", export.ErrLayerNotFound, location)
	}

	db, err := openGeoPackage(location)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	geomCol, srid, err := gpkgLayerInfo(ctx, db, layer)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLite(layer)))
	if err != nil {
		return nil, fmt.Errorf("read layer columns: %w", err)
	}
	defer rows.Close()

	schema := &export.Schema{GeometryColumn: geomCol, SRID: srid}
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan column info: %w", err)
		}
		if name == geomCol {
			continue
		}
		schema.Fields = append(schema.Fields, export.Field{Name: name, Type: sqliteFieldType(colType)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schema, nil
}

func (geopackageSource) Read(ctx context.Context, location, layer string, schema *export.Schema) (<-chan export.RawRecord, <-chan error) {
	out := make(chan export.RawRecord, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		db, err := openGeoPackage(location)
		if err != nil {
			errCh <- err
			return
		}
		defer db.Close()

		cols := make([]string, 0, len(schema.Fields)+1)
		for _, f := range schema.Fields {
			cols = append(cols, quoteSQLite(f.Name))
		}
		hasGeom := schema.GeometryColumn != ""
		if hasGeom {
			cols = append(cols, quoteSQLite(schema.GeometryColumn))
		}

		query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteSQLite(layer))
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			errCh <- fmt.Errorf("query layer: %w", err)
			return
		}
		defer rows.Close()

		numCols := len(cols)
		for rows.Next() {
			values := make([]any, numCols)
			ptrs := make([]any, numCols)
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				errCh <- fmt.Errorf("scan row: %w", err)
				return
			}

			raw := export.RawRecord{Values: values[:len(schema.Fields)]}
			if hasGeom && values[numCols-1] != nil {
				blob, ok := values[numCols-1].([]byte)
				if !ok {
					errCh <- fmt.Errorf("geometry column %q: unexpected type %T", schema.GeometryColumn, values[numCols-1])
					return
				}
				g, blobSRID, err := parseGeoPackageBlob(blob)
				if err != nil {
					errCh <- fmt.Errorf("decode geometry: %w", err)
					return
				}
				raw.Geometry = g
				raw.SRID = blobSRID
			}

			select {
			case out <- raw:
			case <-ctx.Done():
				return
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- fmt.Errorf("iterate: %w", err)
		}
	}()

	return out, errCh
}

func openGeoPackage(location string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", location+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open geopackage: %w", err)
	}
	// SQLite only supports one writer — single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return db, nil
}

// gpkgLayerInfo resolves the geometry column and SRID for a layer.
// Plain SQLite files without GeoPackage metadata yield a geometry-less
// schema as long as the table itself exists.
func gpkgLayerInfo(ctx context.Context, db *sql.DB, layer string) (string, int, error) {
	var geomCol string
	var srid int
	err := db.QueryRowContext(ctx,
		`SELECT column_name, srs_id FROM gpkg_geometry_columns WHERE table_name = ?`, layer,
	).Scan(&geomCol, &srid)
	if err == nil {
		return geomCol, srid, nil
	}
	if !errors.Is(err, sql.ErrNoRows) && !strings.Contains(err.Error(), "no such table") {
		return "", 0, fmt.Errorf("read geopackage catalog: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, layer,
	).Scan(&count); err != nil {
		return "", 0, fmt.Errorf("check layer existence: %w", err)
	}
	if count == 0 {
		return "", 0, fmt.Errorf("%w: %q", export.ErrLayerNotFound, layer)
	}
	return "", 0, nil
}

// parseGeoPackageBlob decodes the GeoPackage binary geometry format:
// magic "GP", version, flags, SRID, optional envelope, then WKB.
func parseGeoPackageBlob(b []byte) (orb.Geometry, int, error) {
	if len(b) < 8 || b[0] != 'G' || b[1] != 'P' {
		return nil, 0, fmt.Errorf("not a GeoPackage geometry blob")
	}
	flags := b[3]

	var order binary.ByteOrder = binary.BigEndian
	if flags&0x01 != 0 {
		order = binary.LittleEndian
	}
	srid := int(int32(order.Uint32(b[4:8])))

	envLen := 0
	switch (flags >> 1) & 0x07 {
	case 0:
		envLen = 0
	case 1:
		envLen = 32
	case 2, 3:
		envLen = 48
	case 4:
		envLen = 64
	default:
		return nil, srid, fmt.Errorf("invalid envelope indicator in geometry header")
	}

	// Empty geometry flag: row has a header but no shape.
	if flags&0x10 != 0 {
		return nil, srid, nil
	}

	wkbStart := 8 + envLen
	if len(b) <= wkbStart {
		return nil, srid, fmt.Errorf("geometry blob truncated")
	}
	g, err := wkb.Unmarshal(b[wkbStart:])
	if err != nil {
		return nil, srid, fmt.Errorf("decode WKB: %w", err)
	}
	return g, srid, nil
}

func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqliteFieldType maps a declared SQLite column type to a field type.
func sqliteFieldType(declared string) string {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "INT"), strings.Contains(t, "REAL"),
		strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"),
		strings.Contains(t, "NUM"), strings.Contains(t, "DEC"):
		return "number"
	case strings.Contains(t, "BOOL"):
		return "boolean"
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return "datetime"
	default:
		return "text"
	}
}
