package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

// TargetSRID is the fixed coordinate reference system of every export:
// WGS84 longitude/latitude. Exporting in the source datum is not supported.
const TargetSRID = 4326

// webMercatorSRID is the only CRS reprojected client-side. Sources backed
// by a spatial database reproject server-side and deliver 4326 directly.
const webMercatorSRID = 3857

// NormalizeGeometry reprojects a native geometry into EPSG:4326 and wraps
// it in the portable GeoJSON structure (type + nested coordinates).
// A nil geometry is legal and passes through as nil. An unknown or
// undefined source CRS is fatal for the whole export — silently passing
// un-reprojected coordinates through as WGS84 would corrupt the output.
func NormalizeGeometry(g orb.Geometry, srid int) (*geojson.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	switch srid {
	case TargetSRID:
		return geojson.NewGeometry(g), nil
	case webMercatorSRID:
		return geojson.NewGeometry(project.Geometry(g, project.Mercator.ToWGS84)), nil
	default:
		return nil, fmt.Errorf("unsupported source CRS (SRID %d): cannot reproject to EPSG:%d", srid, TargetSRID)
	}
}
