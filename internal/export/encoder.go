package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// ── Encoder ────────────────────────────────────────────────
// One encoder per output format, behind a common interface. Encoders
// consume the full in-memory record sequence and produce file bytes;
// all of them refuse an empty sequence (ErrNoRecords).

// Format is the closed set of supported output formats. Its string
// value doubles as the output file extension.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatGeoJSON Format = "geojson"
)

// ParseFormat validates a format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON, FormatGeoJSON:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported export format: %q (want csv, json, or geojson)", s)
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string { return string(f) }

// Encoder turns an ordered record sequence into output file bytes.
type Encoder interface {
	Format() Format
	Encode(records []Record) ([]byte, error)
}

var (
	encodersMu sync.RWMutex
	encoders   = map[Format]Encoder{}
)

// RegisterEncoder registers an encoder by its format.
func RegisterEncoder(e Encoder) {
	encodersMu.Lock()
	defer encodersMu.Unlock()
	encoders[e.Format()] = e
}

// EncoderFor returns the encoder for the given format.
func EncoderFor(f Format) (Encoder, error) {
	encodersMu.RLock()
	defer encodersMu.RUnlock()
	e, ok := encoders[f]
	if !ok {
		return nil, fmt.Errorf("no encoder registered for format %q", f)
	}
	return e, nil
}

// ── Ordered JSON helpers ───────────────────────────────────
// encoding/json marshals maps in sorted key order, so records are
// rendered as hand-built objects to keep the schema's field order.

// marshalJSONValue encodes a single value without HTML escaping, so
// non-ASCII and punctuation survive literally.
func marshalJSONValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// recordJSON renders one record as a compact JSON object, preserving
// field order and, when includeGeometry is set, appending the geometry
// entry last.
func recordJSON(r Record, includeGeometry bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fv := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writePair(&buf, fv.Name, fv.Value); err != nil {
			return nil, err
		}
	}
	if includeGeometry {
		if len(r.Fields) > 0 {
			buf.WriteByte(',')
		}
		if err := writePair(&buf, "geometry", geometryValue(r)); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writePair(buf *bytes.Buffer, key string, value any) error {
	k, err := marshalJSONValue(key)
	if err != nil {
		return err
	}
	v, err := marshalJSONValue(value)
	if err != nil {
		return fmt.Errorf("marshal field %q: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// geometryValue returns the record's geometry as a marshalable value,
// typed nil mapped to JSON null.
func geometryValue(r Record) any {
	if r.Geometry == nil {
		return nil
	}
	return r.Geometry
}

// indentJSON pretty-prints compact JSON with the fixed 4-space
// indentation shared by the JSON and GeoJSON encoders.
func indentJSON(compact []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "    "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
