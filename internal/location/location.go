// Package location canonicalises stock locations (the central warehouse or a
// single outlet) into stable ledger keys and display labels.
package location

import (
	"errors"
	"fmt"
	"strings"
)

// Kind enumerates the supported location kinds.
type Kind string

const (
	// KindCentral is the single central warehouse.
	KindCentral Kind = "central"
	// KindOutlet is a branch outlet with its own sparse ledger.
	KindOutlet Kind = "outlet"
)

const (
	// CentralKey is the ledger partition key of the central warehouse.
	CentralKey = "central"
	// CentralLabel is the display label of the central warehouse.
	CentralLabel = "Gudang Pusat"

	outletKeyPrefix = "outlet:"
)

var (
	// ErrOutletRequired is returned when an outlet location has no id.
	ErrOutletRequired = errors.New("location: outlet id required")
	// ErrUnknownKind is returned for kinds other than central and outlet.
	ErrUnknownKind = errors.New("location: unknown location kind")
	// ErrInvalidKey is returned when a location key cannot be parsed.
	ErrInvalidKey = errors.New("location: invalid location key")
)

// Location identifies one ledger partition.
type Location struct {
	Kind     Kind   `json:"kind"`
	OutletID string `json:"outlet_id,omitempty"`
}

// Central returns the central warehouse location.
func Central() Location {
	return Location{Kind: KindCentral}
}

// Outlet returns the location of the given outlet.
func Outlet(id string) Location {
	return Location{Kind: KindOutlet, OutletID: strings.TrimSpace(id)}
}

// Validate reports whether the location is complete.
func (l Location) Validate() error {
	switch l.Kind {
	case KindCentral:
		return nil
	case KindOutlet:
		if strings.TrimSpace(l.OutletID) == "" {
			return ErrOutletRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, l.Kind)
	}
}

// IsCentral reports whether the location is the central warehouse.
func (l Location) IsCentral() bool {
	return l.Kind == KindCentral
}

// Key returns the canonical ledger key. Invalid locations yield an empty key.
func (l Location) Key() string {
	switch l.Kind {
	case KindCentral:
		return CentralKey
	case KindOutlet:
		if l.OutletID == "" {
			return ""
		}
		return outletKeyPrefix + l.OutletID
	default:
		return ""
	}
}

func (l Location) String() string {
	return l.Key()
}

// ParseKey is the inverse of Location.Key.
func ParseKey(key string) (Location, error) {
	key = strings.TrimSpace(key)
	if key == CentralKey {
		return Central(), nil
	}
	if id, ok := strings.CutPrefix(key, outletKeyPrefix); ok && strings.TrimSpace(id) != "" {
		return Outlet(id), nil
	}
	return Location{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
}

// Directory resolves outlet names for labels.
type Directory interface {
	OutletName(id string) (string, bool)
}

// DirectoryFunc adapts a function to Directory.
type DirectoryFunc func(id string) (string, bool)

// OutletName implements Directory.
func (f DirectoryFunc) OutletName(id string) (string, bool) {
	return f(id)
}

// MapDirectory is a Directory backed by an id -> name map.
type MapDirectory map[string]string

// OutletName implements Directory.
func (m MapDirectory) OutletName(id string) (string, bool) {
	name, ok := m[id]
	return name, ok
}

// Resolved is the result of resolving a location.
type Resolved struct {
	Location Location
	Key      string
	Label    string
}

// Resolver turns (kind, outlet id) pairs into keys and labels. It holds no
// state besides the outlet directory and never mutates anything.
type Resolver struct {
	directory Directory
}

// NewResolver constructs a Resolver. A nil directory yields fallback labels
// for every outlet.
func NewResolver(directory Directory) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve validates the location and returns its key and label.
func (r *Resolver) Resolve(kind Kind, outletID string) (Resolved, error) {
	loc := Location{Kind: kind, OutletID: strings.TrimSpace(outletID)}
	if err := loc.Validate(); err != nil {
		return Resolved{}, err
	}
	return Resolved{Location: loc, Key: loc.Key(), Label: r.Label(loc)}, nil
}

// Label returns the display label. Unknown outlets get a fallback label
// since labels are display-only.
func (r *Resolver) Label(loc Location) string {
	if loc.IsCentral() {
		return CentralLabel
	}
	if r != nil && r.directory != nil {
		if name, ok := r.directory.OutletName(loc.OutletID); ok && strings.TrimSpace(name) != "" {
			return name
		}
	}
	return FallbackLabel(loc.OutletID)
}

// FallbackLabel is the label used for outlets missing from the directory.
func FallbackLabel(outletID string) string {
	if outletID == "" {
		return "Outlet"
	}
	return "Outlet " + outletID
}
