// Package layout owns the layout definition: the CSV that maps each
// (resource type, attribute path) pair to a sheet, a column header, an
// inclusion flag and a column order. It reads and writes that CSV, merges a
// fresh attribute inventory into a previously edited layout, and filters a
// layout down to the columns that should be rendered.
package layout

import (
	"strconv"
	"strings"
)

// RequiredFlag is the only value of Row.Required that includes a column.
const RequiredFlag = "1"

// Key identifies a layout row.
type Key struct {
	ResourceType  string
	AttributePath string
}

// Row is one line of the layout definition. All fields are kept as the
// strings found in (or written to) the CSV so hand edits survive untouched.
type Row struct {
	ResourceType  string
	AttributePath string
	SheetName     string
	Header        string
	Required      string
	Order         string

	// isNew marks rows synthesised by the current merge; never persisted.
	isNew bool
}

// Key returns the row identity with surrounding whitespace removed.
func (r Row) Key() Key {
	return Key{
		ResourceType:  strings.TrimSpace(r.ResourceType),
		AttributePath: strings.TrimSpace(r.AttributePath),
	}
}

// IsRequired reports whether the row is flagged for output.
func (r Row) IsRequired() bool {
	return strings.TrimSpace(r.Required) == RequiredFlag
}

// IsNew reports whether the row was created by the merge that produced it.
func (r Row) IsNew() bool { return r.isNew }

// OrderValue parses Order as an integer.
func (r Row) OrderValue() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(r.Order))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Layout is an ordered set of rows. Functions in this package never modify
// a Layout they are given; they return a new one.
type Layout []Row

// Clone returns a copy that can be modified freely.
func (l Layout) Clone() Layout {
	if l == nil {
		return nil
	}
	out := make(Layout, len(l))
	copy(out, l)
	return out
}

// Keys indexes the layout by row key. Rows with a blank type or path are
// left out and the first row for a key wins.
func (l Layout) Keys() map[Key]Row {
	out := make(map[Key]Row, len(l))
	for _, r := range l {
		k := r.Key()
		if k.ResourceType == "" || k.AttributePath == "" {
			continue
		}
		if _, dup := out[k]; dup {
			continue
		}
		out[k] = r
	}
	return out
}

// NewRows returns the rows created by the merge that produced l.
func (l Layout) NewRows() Layout {
	var out Layout
	for _, r := range l {
		if r.isNew {
			out = append(out, r)
		}
	}
	return out
}
