package export

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ── Source ─────────────────────────────────────────────────
// A Source reads feature records from one kind of backing store.
// Implementations live in export/sources/ — one file per driver.

// SourceSpec describes a source type for listings.
type SourceSpec struct {
	Type    string `json:"type"`
	Label   string `json:"label"`
	Example string `json:"example"` // example location string
}

// Source is the interface every feature source must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Discover verifies that the layer exists within the location and
	// returns its schema. A missing location or layer yields an error
	// wrapping ErrLayerNotFound, before any row is read.
	Discover(ctx context.Context, location, layer string) (*Schema, error)

	// Read streams raw records from the layer into a channel: a
	// forward-only, single-pass cursor. The record channel is closed
	// when the cursor is exhausted or ctx is cancelled; errors are sent
	// on the error channel (buffered size 1). The underlying connection
	// is released on every exit path.
	Read(ctx context.Context, location, layer string, schema *Schema) (<-chan RawRecord, <-chan error)
}

// ── Source Registry ────────────────────────────────────────
// Compile-time registration via init() in each source file.

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource registers a source by its spec type.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type, or an error if not found.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %q", typ)
	}
	return s, nil
}

// ListSources returns the specs of all registered sources, sorted by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}

// ResolveSourceType infers the source type from a location string:
// a URL scheme for connection descriptors, a file extension for
// file-backed geodatabases.
func ResolveSourceType(location string) (string, error) {
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Scheme != "file" {
		switch u.Scheme {
		case "postgres", "postgresql":
			return "postgis", nil
		case "mysql":
			return "mysql", nil
		case "mongodb", "mongodb+srv":
			return "mongodb", nil
		default:
			// A registered source type may be used as a scheme directly.
			registryMu.RLock()
			_, ok := registry[u.Scheme]
			registryMu.RUnlock()
			if ok {
				return u.Scheme, nil
			}
			return "", fmt.Errorf("unknown source scheme %q in %q", u.Scheme, location)
		}
	}

	switch strings.ToLower(filepath.Ext(location)) {
	case ".gpkg", ".sqlite", ".db":
		return "geopackage", nil
	}
	return "", fmt.Errorf("cannot determine source type from location %q", location)
}
