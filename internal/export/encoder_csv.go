package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// ── CSV Encoder ────────────────────────────────────────────
// UTF-8 with a byte-order mark — spreadsheet tools mis-detect the
// encoding without it. Header row comes from the first record's keys
// (every record in one export shares the same key set), with the
// geometry column last. The geometry cell is the structural JSON
// stringification of the geometry, not a flattened form.

type csvEncoder struct{}

func init() { RegisterEncoder(csvEncoder{}) }

func (csvEncoder) Format() Format { return FormatCSV }

func (csvEncoder) Encode(records []Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(records[0].Fields)+1)
	for _, fv := range records[0].Fields {
		header = append(header, fv.Name)
	}
	header = append(header, "geometry")
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, rec := range records {
		row := make([]string, 0, len(header))
		for _, fv := range rec.Fields {
			row = append(row, csvCell(fv.Value))
		}
		geomCell := ""
		if rec.Geometry != nil {
			b, err := marshalJSONValue(rec.Geometry)
			if err != nil {
				return nil, fmt.Errorf("stringify geometry: %w", err)
			}
			geomCell = string(b)
		}
		row = append(row, geomCell)
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// csvCell stringifies a normalized value using the format's default
// textual representation. Nulls become empty cells.
func csvCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}
