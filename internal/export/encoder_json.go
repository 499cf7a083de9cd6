package export

import "bytes"

// ── JSON Encoder ───────────────────────────────────────────
// Top-level array of objects, 4-space indentation, UTF-8 with non-ASCII
// characters preserved literally. Each object carries the schema fields
// in source order plus a trailing geometry entry.

type jsonEncoder struct{}

func init() { RegisterEncoder(jsonEncoder{}) }

func (jsonEncoder) Format() Format { return FormatJSON }

func (jsonEncoder) Encode(records []Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, rec := range records {
		if i > 0 {
			compact.WriteByte(',')
		}
		obj, err := recordJSON(rec, true)
		if err != nil {
			return nil, err
		}
		compact.Write(obj)
	}
	compact.WriteByte(']')

	return indentJSON(compact.Bytes())
}
