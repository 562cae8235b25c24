// Package tfstate reads the JSON produced by `terraform show -json` (or
// `tofu show -json`) for a state and flattens its module tree into a list of
// resources.
package tfstate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/vk/parasheet/internal/ctxlog"
	"github.com/vk/parasheet/internal/tfvalue"
	"github.com/zclconf/go-cty/cty"
)

// ErrInvalidInputKind is returned when the input does not look like a state
// snapshot: the "values" -> "root_module" structure is missing, or nothing
// resembling a resource could be found in it.
var ErrInvalidInputKind = errors.New("input is not a recognised state snapshot (expected `terraform show -json` output)")

// Resource is one resource instance taken from the snapshot.
type Resource struct {
	Address      string
	Mode         string
	Type         string
	Name         string
	ProviderName string
	Values       cty.Value
}

// Snapshot is a parsed state export. Only the parts needed to reach the
// resource tree are decoded eagerly.
type Snapshot struct {
	FormatVersion    string
	TerraformVersion string

	rootModule json.RawMessage
}

type document struct {
	FormatVersion    string          `json:"format_version"`
	TerraformVersion string          `json:"terraform_version"`
	Values           json.RawMessage `json:"values"`
}

type stateValues struct {
	RootModule json.RawMessage `json:"root_module"`
}

// module keeps its lists raw so that one malformed field does not hide the
// rest of the module.
type module struct {
	Resources    json.RawMessage `json:"resources"`
	ChildModules json.RawMessage `json:"child_modules"`
}

// Load reads and parses a snapshot file.
func Load(fs afero.Fs, path string) (*Snapshot, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}
	snap, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Parse decodes a snapshot and checks that it carries a root module.
func Parse(data []byte) (*Snapshot, error) {
	if !isObject(data) {
		return nil, ErrInvalidInputKind
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode state JSON: %w", err)
	}
	if !isObject(doc.Values) {
		return nil, fmt.Errorf("%w: missing \"values\"", ErrInvalidInputKind)
	}
	var values stateValues
	if err := json.Unmarshal(doc.Values, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInputKind, err)
	}
	if !isObject(values.RootModule) {
		return nil, fmt.Errorf("%w: missing \"values.root_module\"", ErrInvalidInputKind)
	}
	return &Snapshot{
		FormatVersion:    doc.FormatVersion,
		TerraformVersion: doc.TerraformVersion,
		rootModule:       values.RootModule,
	}, nil
}

// Resources walks the root module and every nested child module, returning
// resources in declaration order with a module's own resources ahead of its
// children. Entries that are not objects are skipped.
func (s *Snapshot) Resources(ctx context.Context) ([]Resource, error) {
	logger := ctxlog.FromContext(ctx)

	var out []Resource
	var walk func(raw json.RawMessage)
	walk = func(raw json.RawMessage) {
		var mod module
		if err := json.Unmarshal(raw, &mod); err != nil {
			logger.Debug("Skipping undecodable module.", "error", err)
			return
		}
		for _, rawRes := range rawList(ctx, "resources", mod.Resources) {
			res, ok := decodeResource(ctx, rawRes)
			if ok {
				out = append(out, res)
			}
		}
		for _, child := range rawList(ctx, "child_modules", mod.ChildModules) {
			if isObject(child) {
				walk(child)
			}
		}
	}
	walk(s.rootModule)

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no resources found under values.root_module", ErrInvalidInputKind)
	}
	logger.Debug("Resources extracted from snapshot.", "count", len(out))
	return out, nil
}

// rawList splits a JSON array into its elements. Anything else, null
// included, reads as an empty list.
func rawList(ctx context.Context, field string, raw json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var items []json.RawMessage
	if trimmed[0] != '[' || json.Unmarshal(trimmed, &items) != nil {
		ctxlog.FromContext(ctx).Debug("Ignoring non-array module field.", "field", field)
		return nil
	}
	return items
}

func decodeResource(ctx context.Context, raw json.RawMessage) (Resource, bool) {
	if !isObject(raw) {
		return Resource{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		ctxlog.FromContext(ctx).Warn("Skipping malformed resource entry.", "error", err)
		return Resource{}, false
	}

	res := Resource{
		Address:      stringField(fields, "address"),
		Mode:         stringField(fields, "mode"),
		Type:         stringField(fields, "type"),
		Name:         stringField(fields, "name"),
		ProviderName: stringField(fields, "provider_name"),
		Values:       cty.EmptyObjectVal,
	}
	if rawValues := fields["values"]; isObject(rawValues) {
		v, err := tfvalue.FromJSON(rawValues)
		if err != nil {
			ctxlog.FromContext(ctx).Warn("Ignoring undecodable resource values.", "address", res.Address, "error", err)
		} else {
			res.Values = v
		}
	}
	return res, true
}

// stringField returns the string under key, or "" when it is absent or of
// another JSON type.
func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if err := json.Unmarshal(fields[key], &s); err != nil {
		return ""
	}
	return s
}

// TypeCounts tallies resource instances per type, ignoring blank types.
func TypeCounts(resources []Resource) map[string]int {
	counts := make(map[string]int)
	for _, r := range resources {
		if r.Type == "" {
			continue
		}
		counts[r.Type]++
	}
	return counts
}

// GroupByType returns resources of each type in extraction order.
func GroupByType(resources []Resource) map[string][]Resource {
	out := make(map[string][]Resource)
	for _, r := range resources {
		out[r.Type] = append(out[r.Type], r)
	}
	return out
}

func isObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
