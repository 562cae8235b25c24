package layout

import (
	"sort"
	"strings"
)

// PrimaryPolicy picks the resource type whose display name labels a sheet
// shared by several related types.
type PrimaryPolicy struct {
	// Preferred types win outright, earliest entry first.
	Preferred []string
	// ExcludedSuffixes mark join/attachment style types that should not
	// name a sheet while a better candidate exists.
	ExcludedSuffixes []string
	// ExcludedSubstrings exclude types containing any of them anywhere.
	ExcludedSubstrings []string
}

func (p PrimaryPolicy) excluded(rt string) bool {
	rt = strings.TrimSpace(rt)
	if rt == "" {
		return true
	}
	for _, suffix := range p.ExcludedSuffixes {
		if strings.HasSuffix(rt, suffix) {
			return true
		}
	}
	for _, sub := range p.ExcludedSubstrings {
		if sub != "" && strings.Contains(rt, sub) {
			return true
		}
	}
	return false
}

// Pick chooses the primary type among types. Excluded types are only
// considered when nothing else is left; then the first preferred type
// present wins, else the most frequent type with ties broken by name.
func (p PrimaryPolicy) Pick(types []string, counts map[string]int) string {
	if len(types) == 0 {
		return ""
	}

	var candidates []string
	for _, rt := range types {
		if !p.excluded(rt) {
			candidates = append(candidates, rt)
		}
	}
	if len(candidates) == 0 {
		candidates = append(candidates, types...)
	}

	present := make(map[string]bool, len(candidates))
	for _, rt := range candidates {
		present[rt] = true
	}
	for _, rt := range p.Preferred {
		if present[rt] {
			return rt
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := counts[candidates[i]], counts[candidates[j]]
		if ci != cj {
			return ci > cj
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}
