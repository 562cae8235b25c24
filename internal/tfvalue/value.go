// Package tfvalue holds the helpers that treat a resource's attribute values
// as a tree of cty values: decoding from state JSON, enumerating leaf paths,
// resolving a dot-delimited path and rendering a leaf as sheet text.
package tfvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Kind is the coarse shape of a value node.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// KindOf classifies v. Unknown values never come out of state JSON and are
// reported as null.
func KindOf(v cty.Value) Kind {
	if v.IsNull() || !v.IsKnown() {
		return KindNull
	}
	ty := v.Type()
	switch {
	case ty.IsObjectType() || ty.IsMapType():
		return KindMapping
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		return KindSequence
	default:
		return KindScalar
	}
}

// FromJSON decodes an arbitrary JSON document into a cty value, inferring
// the type from the document itself.
func FromJSON(raw []byte) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to infer value type: %w", err)
	}
	v, err := ctyjson.Unmarshal(raw, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to decode value: %w", err)
	}
	return v, nil
}

// length returns the element count of a sequence or mapping.
func length(v cty.Value) int {
	if v.Type().IsObjectType() {
		return len(v.Type().AttributeTypes())
	}
	return v.LengthInt()
}

// IsEffective reports whether v counts as "set": null, the empty string and
// empty sequences or mappings do not, everything else (0 and false included)
// does.
func IsEffective(v cty.Value) bool {
	switch KindOf(v) {
	case KindNull:
		return false
	case KindSequence, KindMapping:
		return length(v) > 0
	}
	if v.Type() == cty.String {
		return v.AsString() != ""
	}
	return true
}

// Leaves calls fn for every leaf path below v. Non-empty mappings expand into
// "parent.child" paths in key order; sequences, scalars, nulls and empty
// mappings end the path. The root itself is never reported.
func Leaves(v cty.Value, fn func(path string, leaf cty.Value)) {
	walk("", v, fn)
}

func walk(prefix string, v cty.Value, fn func(string, cty.Value)) {
	if KindOf(v) == KindMapping && length(v) > 0 {
		for it := v.ElementIterator(); it.Next(); {
			k, child := it.Element()
			walk(joinPath(prefix, k.AsString()), child, fn)
		}
		return
	}
	if prefix != "" {
		fn(prefix, v)
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Lookup resolves a dot-delimited attribute path. When a single segment does
// not match a key, runs of following segments are joined back with "." so
// that keys which themselves contain dots still resolve.
func Lookup(v cty.Value, path string) (cty.Value, bool) {
	if path == "" {
		return cty.NilVal, false
	}
	return lookup(v, strings.Split(path, "."))
}

func lookup(v cty.Value, parts []string) (cty.Value, bool) {
	if len(parts) == 0 {
		return v, true
	}
	for n := 1; n <= len(parts); n++ {
		next, ok := child(v, strings.Join(parts[:n], "."))
		if !ok {
			continue
		}
		if found, ok := lookup(next, parts[n:]); ok {
			return found, true
		}
	}
	return cty.NilVal, false
}

func child(v cty.Value, name string) (cty.Value, bool) {
	if KindOf(v) != KindMapping {
		return cty.NilVal, false
	}
	ty := v.Type()
	if ty.IsObjectType() {
		if !ty.HasAttribute(name) {
			return cty.NilVal, false
		}
		return v.GetAttr(name), true
	}
	key := cty.StringVal(name)
	if !v.HasIndex(key).True() {
		return cty.NilVal, false
	}
	return v.Index(key), true
}

// Format renders v as cell text. Null renders empty, strings verbatim,
// numbers in their shortest decimal form and structured values as compact
// JSON.
func Format(v cty.Value) string {
	switch KindOf(v) {
	case KindNull:
		return ""
	case KindSequence, KindMapping:
		return marshalCompact(toNative(v))
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		return formatNumber(v)
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	}
	return ""
}

func formatNumber(v cty.Value) string {
	return v.AsBigFloat().Text('f', -1)
}

// toNative converts v into the encoding/json data model.
func toNative(v cty.Value) any {
	switch KindOf(v) {
	case KindNull:
		return nil
	case KindMapping:
		m := make(map[string]any, length(v))
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			m[k.AsString()] = toNative(ev)
		}
		return m
	case KindSequence:
		s := make([]any, 0, length(v))
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			s = append(s, toNative(ev))
		}
		return s
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		return json.Number(formatNumber(v))
	case cty.Bool:
		return v.True()
	}
	return nil
}

func marshalCompact(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
