package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ── Engine ─────────────────────────────────────────────────
// Orchestrates one export end-to-end:
// validate → discover → read/normalize → encode → write.
// Linear and single-pass; no component feeds back into an earlier one.

// Request is the immutable input of one export.
type Request struct {
	Location  string `json:"location"`  // path or connection descriptor
	Layer     string `json:"layer"`     // qualified feature-class name
	OutputDir string `json:"outputDir"` // created if missing
	Format    Format `json:"format"`
	Name      string `json:"name,omitempty"` // output file name, no extension; derived when empty
}

func (r Request) validate() error {
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"location", r.Location},
		{"layer", r.Layer},
		{"output directory", r.OutputDir},
		{"format", string(r.Format)},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required fields missing: %s", strings.Join(missing, ", "))
	}
	if _, err := ParseFormat(string(r.Format)); err != nil {
		return err
	}
	return nil
}

// Status is the terminal state of one export.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusNoData    Status = "no_data" // informational, not a failure: no file written
	StatusFailed    Status = "failed"
)

// Result is the single outcome of one Request: either a written file,
// a no-data notice, or a classified fault.
type Result struct {
	Status     Status        `json:"status"`
	OutputPath string        `json:"outputPath,omitempty"` // absolute
	Records    int           `json:"records"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`

	Fault *Fault `json:"-"`
}

// Engine runs export requests against the registered sources and encoders.
type Engine struct {
	// Now supplies the timestamp for derived file names; nil means time.Now.
	Now func() time.Time
}

// Run executes one export. All faults are caught here and folded into
// the Result; the returned error is the same fault, for callers that
// propagate with %w. Nothing is retried.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{Status: StatusFailed}
	fail := func(kind FaultKind, err error) (*Result, error) {
		f := &Fault{Kind: kind, Err: err}
		res.Fault = f
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res, f
	}

	// Validation happens before any I/O.
	if err := req.validate(); err != nil {
		return fail(FaultMissingInput, err)
	}

	source, schema, err := e.open(ctx, req.Location, req.Layer)
	if err != nil {
		if errors.Is(err, ErrLayerNotFound) {
			return fail(FaultNotFound, err)
		}
		return fail(FaultSourceRead, err)
	}

	records, err := collect(ctx, source, req.Location, req.Layer, schema, 0)
	if err != nil {
		return fail(FaultSourceRead, err)
	}

	if len(records) == 0 {
		res.Status = StatusNoData
		res.Duration = time.Since(start)
		return res, nil
	}

	enc, err := EncoderFor(req.Format)
	if err != nil {
		return fail(FaultMissingInput, err)
	}
	data, err := enc.Encode(records)
	if err != nil {
		return fail(FaultWrite, err)
	}

	outPath, err := e.writeOutput(req, data)
	if err != nil {
		return fail(FaultWrite, err)
	}

	res.Status = StatusSucceeded
	res.OutputPath = outPath
	res.Records = len(records)
	res.Duration = time.Since(start)
	return res, nil
}

// Preview reads up to maxRows normalized records without writing a file.
func (e *Engine) Preview(ctx context.Context, location, layer string, maxRows int) ([]Record, *Schema, error) {
	source, schema, err := e.open(ctx, location, layer)
	if err != nil {
		return nil, nil, err
	}
	records, err := collect(ctx, source, location, layer, schema, maxRows)
	if err != nil {
		return nil, schema, err
	}
	return records, schema, nil
}

// open resolves the source type from the location and discovers the
// layer's schema. Existence is checked before any row is read.
func (e *Engine) open(ctx context.Context, location, layer string) (Source, *Schema, error) {
	srcType, err := ResolveSourceType(location)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrLayerNotFound, err)
	}
	source, err := GetSource(srcType)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrLayerNotFound, err)
	}
	schema, err := source.Discover(ctx, location, layer)
	if err != nil {
		return nil, nil, err
	}
	return source, schema, nil
}

// collect drains the source cursor and normalizes every row. Any
// normalization fault aborts the whole export; there is no per-record
// skip. maxRows <= 0 means unbounded.
func collect(ctx context.Context, source Source, location, layer string, schema *Schema, maxRows int) ([]Record, error) {
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	recCh, errCh := source.Read(readCtx, location, layer, schema)

	var records []Record
	for raw := range recCh {
		rec, err := NormalizeRecord(schema, raw)
		if err != nil {
			cancel()
			drain(recCh)
			<-errCh
			return nil, err
		}
		records = append(records, rec)
		if maxRows > 0 && len(records) >= maxRows {
			cancel()
			drain(recCh)
			<-errCh
			return records, nil
		}
	}
	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("read %s: %w", layer, err)
	}
	return records, nil
}

func drain(ch <-chan RawRecord) {
	for range ch {
	}
}

// writeOutput creates the output directory if absent and writes the
// encoded bytes. Returns the absolute output path.
func (e *Engine) writeOutput(req Request, data []byte) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		now := time.Now
		if e.Now != nil {
			now = e.Now
		}
		name = DerivedFileName(req.Layer, now())
	}

	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	outPath := filepath.Join(req.OutputDir, name+"."+req.Format.Extension())
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}

	abs, err := filepath.Abs(outPath)
	if err != nil {
		return outPath, nil
	}
	return abs, nil
}

// DerivedFileName builds the default output name from the layer
// identifier (dots replaced by underscores) and a second-resolution
// timestamp, so repeated default-named runs never collide silently.
func DerivedFileName(layer string, t time.Time) string {
	return strings.ReplaceAll(layer, ".", "_") + "_" + t.Format("20060102_150405")
}
