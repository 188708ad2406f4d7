package profile

import (
	"path/filepath"
	"strings"

	"github.com/nullpilot/retainsync/internal/errs"
)

// Registry is a plain map of known profiles, passed explicitly into the
// config validator rather than held as a process-global or a back-pointer
// from each Profile. See spec §9 "Dynamic dispatch over profile instances":
// overlap checking is a function of the set of known profiles, not a method
// any one profile instance owns.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry returns an empty profile registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]*Profile)}
}

// Register adds p to the registry under its name, for future overlap
// checks against profiles validated afterward.
func (r *Registry) Register(p *Profile) {
	r.profiles[p.Name] = p
}

// CheckOverlap rejects candidate if its LocalDir contains, or is contained
// by, another known profile's LocalDir. Two profiles pointed at the same
// or nested local directories would race to materialize/demote each
// other's files.
func (r *Registry) CheckOverlap(candidate *Profile) error {
	for name, existing := range r.profiles {
		if name == candidate.Name {
			continue
		}

		if pathsOverlap(candidate.LocalDir, existing.LocalDir) {
			return errs.NewInput(
				"profile %q: LocalDir %q overlaps with profile %q's LocalDir %q",
				candidate.Name, candidate.LocalDir, name, existing.LocalDir)
		}
	}

	return nil
}

// pathsOverlap reports whether a and b are the same directory or one is
// nested inside the other.
func pathsOverlap(a, b string) bool {
	a = filepath.Clean(a)
	b = filepath.Clean(b)

	if a == b {
		return true
	}

	return strings.HasPrefix(a, b+string(filepath.Separator)) ||
		strings.HasPrefix(b, a+string(filepath.Separator))
}
