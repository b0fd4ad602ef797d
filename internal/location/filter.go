package location

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FilterAll is the textual form of the all-locations filter.
const FilterAll = "all"

// ErrOutOfScope is returned when a filter or location is outside the
// caller's accessible set.
var ErrOutOfScope = errors.New("location: outside accessible scope")

// Filter narrows queries to all locations or one location.
type Filter struct {
	All      bool
	Location Location
}

// AllLocations matches every location.
func AllLocations() Filter {
	return Filter{All: true}
}

// Only matches a single location.
func Only(loc Location) Filter {
	return Filter{Location: loc}
}

// ParseFilter accepts "all", "central" or "outlet:<id>". Empty means all.
func ParseFilter(raw string) (Filter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == FilterAll {
		return AllLocations(), nil
	}
	loc, err := ParseKey(raw)
	if err != nil {
		return Filter{}, err
	}
	return Only(loc), nil
}

func (f Filter) String() string {
	if f.All {
		return FilterAll
	}
	return f.Location.Key()
}

// Matches reports whether loc passes the filter.
func (f Filter) Matches(loc Location) bool {
	if f.All {
		return true
	}
	if f.Location.Kind != loc.Kind {
		return false
	}
	return loc.IsCentral() || f.Location.OutletID == loc.OutletID
}

// Scope is the set of locations a caller may read or act upon. It is
// supplied by the access-control collaborator.
type Scope struct {
	Unrestricted bool
	Central      bool
	outlets      map[string]struct{}
}

// FullScope grants access to every location.
func FullScope() Scope {
	return Scope{Unrestricted: true, Central: true}
}

// NewScope grants access to the listed outlets and optionally to central.
func NewScope(central bool, outletIDs ...string) Scope {
	s := Scope{Central: central, outlets: make(map[string]struct{}, len(outletIDs))}
	for _, id := range outletIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			s.outlets[id] = struct{}{}
		}
	}
	return s
}

// Allows reports whether the location is accessible.
func (s Scope) Allows(loc Location) bool {
	if s.Unrestricted {
		return true
	}
	if loc.IsCentral() {
		return s.Central
	}
	_, ok := s.outlets[loc.OutletID]
	return ok
}

// AllowsOutlet is shorthand for Allows(Outlet(id)).
func (s Scope) AllowsOutlet(id string) bool {
	return s.Allows(Outlet(id))
}

// Check returns ErrOutOfScope when the filter names an inaccessible
// location. The all-locations filter is always accepted; results are
// narrowed to the scope instead.
func (s Scope) Check(f Filter) error {
	if f.All || s.Allows(f.Location) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrOutOfScope, f.Location.Key())
}

// Visible reports whether loc is both accessible and matched by f.
func (s Scope) Visible(f Filter, loc Location) bool {
	return f.Matches(loc) && s.Allows(loc)
}

// OutletIDs lists the explicitly granted outlets in sorted order.
func (s Scope) OutletIDs() []string {
	ids := make([]string, 0, len(s.outlets))
	for id := range s.outlets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Token is a stable representation used in cache keys.
func (s Scope) Token() string {
	if s.Unrestricted {
		return "*"
	}
	parts := s.OutletIDs()
	if s.Central {
		parts = append([]string{CentralKey}, parts...)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}
