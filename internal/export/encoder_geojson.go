package export

import "bytes"

// ── GeoJSON Encoder ────────────────────────────────────────
// RFC-7946-shaped output: a FeatureCollection whose features hold the
// normalized geometry (or null) and every other record key as
// properties, in original field order. Coordinates are always EPSG:4326
// by the time records reach an encoder.

type geojsonEncoder struct{}

func init() { RegisterEncoder(geojsonEncoder{}) }

func (geojsonEncoder) Format() Format { return FormatGeoJSON }

func (geojsonEncoder) Encode(records []Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	var compact bytes.Buffer
	compact.WriteString(`{"type":"FeatureCollection","features":[`)
	for i, rec := range records {
		if i > 0 {
			compact.WriteByte(',')
		}
		if err := writeFeature(&compact, rec); err != nil {
			return nil, err
		}
	}
	compact.WriteString(`]}`)

	return indentJSON(compact.Bytes())
}

func writeFeature(buf *bytes.Buffer, rec Record) error {
	buf.WriteString(`{"type":"Feature",`)
	if err := writePair(buf, "geometry", geometryValue(rec)); err != nil {
		return err
	}
	buf.WriteByte(',')

	props, err := recordJSON(rec, false)
	if err != nil {
		return err
	}
	buf.WriteString(`"properties":`)
	buf.Write(props)
	buf.WriteByte('}')
	return nil
}
