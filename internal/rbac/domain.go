package rbac

import "sort"

// PermissionSet is the effective permission set resolved for a user. It is
// recomputed per authorization check and never persisted.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from the given names, collapsing duplicates.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, n := range names {
		set.Add(n)
	}
	return set
}

// Add inserts a permission name into the set.
func (s PermissionSet) Add(name string) {
	if name == "" {
		return
	}
	s[name] = struct{}{}
}

// Has reports membership.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the sorted permission names.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
