package dismissal

import "sort"

// Set is a set of medicine identifiers
type Set map[string]struct{}

// NewSet builds a set from ids, skipping empty identifiers
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Has reports membership
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id and reports whether the set grew
func (s Set) Add(id string) bool {
	if id == "" || s.Has(id) {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Union adds every id and returns how many were new
func (s Set) Union(ids ...string) int {
	added := 0
	for _, id := range ids {
		if s.Add(id) {
			added++
		}
	}
	return added
}

// Clone returns an independent copy
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Sorted returns the members in ascending order
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
