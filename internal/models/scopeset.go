package models

import (
	"sort"
	"strings"
)

// Reserved scope values the service itself depends on.
const (
	// AdminScope grants administration of the service and implies every other scope.
	AdminScope = "admin"
	// SelfScope grants access to the caller's own account.
	SelfScope = "me"
)

// ScopeSet is an unordered set of scope string values.
// The zero value is an empty set ready to use for reads.
type ScopeSet map[string]struct{}

// NewScopeSet builds a set from values, skipping empty strings.
func NewScopeSet(values ...string) ScopeSet {
	s := make(ScopeSet, len(values))
	for _, v := range values {
		if v != "" {
			s[v] = struct{}{}
		}
	}
	return s
}

// ParseScope splits an OAuth2 scope parameter ("a b c") into a set.
func ParseScope(raw string) ScopeSet {
	return NewScopeSet(strings.Fields(raw)...)
}

// Contains reports whether value is in the set.
func (s ScopeSet) Contains(value string) bool {
	_, ok := s[value]
	return ok
}

// IsSubsetOf reports whether every value of s is also in other.
func (s ScopeSet) IsSubsetOf(other ScopeSet) bool {
	for v := range s {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// Union returns a new set with the values of both sets.
func (s ScopeSet) Union(other ScopeSet) ScopeSet {
	out := make(ScopeSet, len(s)+len(other))
	for v := range s {
		out[v] = struct{}{}
	}
	for v := range other {
		out[v] = struct{}{}
	}
	return out
}

// Missing returns the values of s that are absent from other, sorted.
func (s ScopeSet) Missing(other ScopeSet) []string {
	var missing []string
	for v := range s {
		if !other.Contains(v) {
			missing = append(missing, v)
		}
	}
	sort.Strings(missing)
	return missing
}

// Equal reports set equality.
func (s ScopeSet) Equal(other ScopeSet) bool {
	return len(s) == len(other) && s.IsSubsetOf(other)
}

// Values returns the sorted values of the set.
func (s ScopeSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// String renders the set as an OAuth2 scope parameter.
func (s ScopeSet) String() string {
	return strings.Join(s.Values(), " ")
}

// Authorizes is the single policy deciding whether a granted scope set
// satisfies a required one. Holding AdminScope satisfies any requirement.
func Authorizes(granted, required ScopeSet) bool {
	if granted.Contains(AdminScope) {
		return true
	}
	return required.IsSubsetOf(granted)
}
