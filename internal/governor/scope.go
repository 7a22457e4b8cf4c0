package governor

import (
	"fmt"
	"time"

	"github.com/gobwas/glob"

	"github.com/phantomos/governor/internal/types"
)

// ScopeMax bounds the scope table.
const ScopeMax = 32

// Scope is a standing grant: the listed capabilities are pre-approved for
// paths matching the glob, optionally bounded by size and expiry.
type Scope struct {
	ID         string               `json:"id" yaml:"id"`
	Caps       types.CapabilityMask `json:"caps" yaml:"caps"`
	PathGlob   string               `json:"path_glob" yaml:"path_glob"`
	MaxBytes   uint64               `json:"max_bytes" yaml:"max_bytes"` // 0 means unbounded
	ValidUntil time.Time            `json:"valid_until" yaml:"valid_until"`
	Active     bool                 `json:"active" yaml:"active"`

	matcher glob.Glob
}

func (s *Scope) expired(now time.Time) bool {
	return !s.ValidUntil.IsZero() && now.After(s.ValidUntil)
}

// scopeTable is the bounded list of active scopes. Expired scopes are
// deactivated lazily when a check walks past them; Cleanup compacts the
// inactive entries away.
type scopeTable struct {
	scopes []*Scope
}

func newScopeTable() *scopeTable {
	return &scopeTable{scopes: make([]*Scope, 0, ScopeMax)}
}

// Add admits a scope after compiling its glob. Duplicate IDs replace the
// existing entry in place rather than consuming a slot.
func (t *scopeTable) Add(s Scope) error {
	if s.ID == "" || s.PathGlob == "" {
		return fmt.Errorf("%w: scope needs id and path glob", ErrInvalidRequest)
	}
	m, err := glob.Compile(s.PathGlob)
	if err != nil {
		return fmt.Errorf("%w: bad glob %q: %v", ErrInvalidRequest, s.PathGlob, err)
	}
	s.matcher = m
	s.Active = true
	for i, existing := range t.scopes {
		if existing.ID == s.ID {
			t.scopes[i] = &s
			return nil
		}
	}
	if len(t.scopes) >= ScopeMax {
		return fmt.Errorf("%w: scope table full (%d)", ErrCapacityExceeded, ScopeMax)
	}
	t.scopes = append(t.scopes, &s)
	return nil
}

// Remove deletes the scope with the given ID.
func (t *scopeTable) Remove(id string) error {
	for i, s := range t.scopes {
		if s.ID == id {
			t.scopes = append(t.scopes[:i], t.scopes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: scope %q", ErrNotFound, id)
}

// Check reports whether the capability is permitted for the given path and
// size. With no scope covering the capability the operation is allowed by
// default; once any scope claims the capability, only a path match inside
// the size bound allows it. Expired scopes encountered during the walk are
// deactivated.
func (t *scopeTable) Check(cap types.CapabilityMask, path string, size uint64, now time.Time) bool {
	relevant := 0
	for _, s := range t.scopes {
		if !s.Active {
			continue
		}
		if s.expired(now) {
			s.Active = false
			continue
		}
		if !s.Caps.Has(cap) {
			continue
		}
		relevant++
		if path != "" && !s.matcher.Match(path) {
			continue
		}
		if s.MaxBytes != 0 && size > s.MaxBytes {
			return false
		}
		return true
	}
	return relevant == 0
}

// Cleanup deactivates expired scopes and compacts inactive ones out of the
// table, returning the number removed.
func (t *scopeTable) Cleanup(now time.Time) int {
	kept := t.scopes[:0]
	removed := 0
	for _, s := range t.scopes {
		if s.expired(now) {
			s.Active = false
		}
		if s.Active {
			kept = append(kept, s)
		} else {
			removed++
		}
	}
	t.scopes = kept
	return removed
}

// List returns a copy of the current scopes.
func (t *scopeTable) List() []Scope {
	out := make([]Scope, len(t.scopes))
	for i, s := range t.scopes {
		out[i] = *s
	}
	return out
}

// Count returns the number of entries, active or not.
func (t *scopeTable) Count() int {
	return len(t.scopes)
}
