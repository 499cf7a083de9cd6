package export

import (
	"errors"
	"fmt"
)

// ── Faults ─────────────────────────────────────────────────
// Every failure is caught at the engine boundary and classified into
// exactly one of these kinds; nothing escapes uncaught and nothing is
// retried. A zero-record source is a status, not a fault.

// FaultKind classifies an export failure.
type FaultKind string

const (
	// FaultMissingInput — a required request field is blank; caught before any I/O.
	FaultMissingInput FaultKind = "missing_input"
	// FaultNotFound — the layer does not resolve within the given location.
	FaultNotFound FaultKind = "not_found"
	// FaultSourceRead — the cursor or geometry reprojection failed mid-iteration.
	FaultSourceRead FaultKind = "source_read"
	// FaultWrite — filesystem error while creating the directory or writing the file.
	FaultWrite FaultKind = "write"
)

// Fault wraps an underlying error with its classification.
type Fault struct {
	Kind FaultKind
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// FaultKindOf returns the classification of err, or "" if err is not a
// pipeline fault.
func FaultKindOf(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// ErrLayerNotFound is wrapped by sources when the layer (or the source
// location itself) does not exist. The engine maps it to FaultNotFound.
var ErrLayerNotFound = errors.New("layer not found")

// ErrNoRecords is returned by every encoder when asked to encode an
// empty sequence; the engine never writes a degenerate file.
var ErrNoRecords = errors.New("no records to encode")
