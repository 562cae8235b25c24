// Package inventory enumerates the attribute paths that every resource type
// exposes in a snapshot, and whether any instance of that type carries a
// value at each path.
package inventory

import (
	"sort"

	"github.com/vk/parasheet/internal/tfstate"
	"github.com/vk/parasheet/internal/tfvalue"
	"github.com/zclconf/go-cty/cty"
)

// Entry is one (resource type, attribute path) pair.
type Entry struct {
	ResourceType  string
	AttributePath string
	// Effective is true when at least one instance of the type has an
	// effective value at this path.
	Effective bool
}

type key struct {
	resourceType  string
	attributePath string
}

// Inventory is the deduplicated union of attribute paths per resource type.
type Inventory struct {
	entries []Entry
	index   map[key]int
	types   []string
}

// Build walks every resource in snapshot order. Each resource contributes its
// leaf paths in lexicographic order; a pair already seen is not added again.
func Build(resources []tfstate.Resource) *Inventory {
	inv := &Inventory{index: make(map[key]int)}
	seenType := make(map[string]bool)

	for _, res := range resources {
		if !seenType[res.Type] {
			seenType[res.Type] = true
			inv.types = append(inv.types, res.Type)
		}

		leaves := make(map[string]cty.Value)
		tfvalue.Leaves(res.Values, func(path string, v cty.Value) {
			leaves[path] = v
		})
		paths := make([]string, 0, len(leaves))
		for p := range leaves {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		for _, p := range paths {
			k := key{res.Type, p}
			effective := tfvalue.IsEffective(leaves[p])
			if i, ok := inv.index[k]; ok {
				if effective {
					inv.entries[i].Effective = true
				}
				continue
			}
			inv.index[k] = len(inv.entries)
			inv.entries = append(inv.entries, Entry{
				ResourceType:  res.Type,
				AttributePath: p,
				Effective:     effective,
			})
		}
	}
	return inv
}

// Entries returns the pairs in discovery order.
func (inv *Inventory) Entries() []Entry {
	out := make([]Entry, len(inv.entries))
	copy(out, inv.entries)
	return out
}

// Effective reports whether any instance had an effective value for the pair.
func (inv *Inventory) Effective(resourceType, attributePath string) bool {
	i, ok := inv.index[key{resourceType, attributePath}]
	return ok && inv.entries[i].Effective
}

// Types lists resource types in first-seen order.
func (inv *Inventory) Types() []string {
	return append([]string(nil), inv.types...)
}

// Len is the number of distinct pairs.
func (inv *Inventory) Len() int { return len(inv.entries) }
