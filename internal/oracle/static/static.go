// Package static answers layout suggestions from a YAML file instead of a
// language model. It lets analyze runs stay offline and reproducible:
//
//	headers:
//	  - resource_type: aws_vpc
//	    attribute_path: cidr_block
//	    header: CIDR block
//	orders:
//	  - resource_type: aws_vpc
//	    attribute_path: cidr_block
//	    order: 1
//	sheets:
//	  - resource_type: aws_vpc
//	    group_key: network
//	    display_name: Network
package static

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/vk/parasheet/internal/layout"
	"gopkg.in/yaml.v3"
)

// ErrUnknownSection is returned for top-level keys other than headers,
// orders and sheets.
var ErrUnknownSection = errors.New("unknown suggestions section")

type headerEntry struct {
	ResourceType  string `yaml:"resource_type"`
	AttributePath string `yaml:"attribute_path"`
	Header        string `yaml:"header"`
}

type orderEntry struct {
	ResourceType  string `yaml:"resource_type"`
	AttributePath string `yaml:"attribute_path"`
	Order         int    `yaml:"order"`
}

type sheetEntry struct {
	ResourceType string `yaml:"resource_type"`
	GroupKey     string `yaml:"group_key"`
	DisplayName  string `yaml:"display_name"`
}

// Oracle serves suggestions loaded from a file. The zero value answers
// nothing.
type Oracle struct {
	headers map[layout.Key]string
	orders  map[layout.Key]int
	sheets  map[string]layout.SheetSuggestion
}

// Load reads the suggestions file at path.
func Load(fs afero.Fs, path string) (*Oracle, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	o, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return o, nil
}

// Parse decodes a suggestions document. Entries with a blank key are
// ignored; for repeated keys the last entry wins.
func Parse(data []byte) (*Oracle, error) {
	var sections map[string]yaml.Node
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, err
	}

	var (
		headers []headerEntry
		orders  []orderEntry
		sheets  []sheetEntry
	)
	for name, node := range sections {
		var err error
		switch name {
		case "headers":
			err = node.Decode(&headers)
		case "orders":
			err = node.Decode(&orders)
		case "sheets":
			err = node.Decode(&sheets)
		default:
			return nil, fmt.Errorf("%w %q", ErrUnknownSection, name)
		}
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", name, err)
		}
	}

	o := &Oracle{
		headers: make(map[layout.Key]string, len(headers)),
		orders:  make(map[layout.Key]int, len(orders)),
		sheets:  make(map[string]layout.SheetSuggestion, len(sheets)),
	}
	for _, h := range headers {
		k := key(h.ResourceType, h.AttributePath)
		if k.ResourceType == "" || k.AttributePath == "" || strings.TrimSpace(h.Header) == "" {
			continue
		}
		o.headers[k] = strings.TrimSpace(h.Header)
	}
	for _, e := range orders {
		k := key(e.ResourceType, e.AttributePath)
		if k.ResourceType == "" || k.AttributePath == "" {
			continue
		}
		o.orders[k] = e.Order
	}
	for _, s := range sheets {
		rt := strings.TrimSpace(s.ResourceType)
		if rt == "" {
			continue
		}
		o.sheets[rt] = layout.SheetSuggestion{
			GroupKey:    strings.TrimSpace(s.GroupKey),
			DisplayName: strings.TrimSpace(s.DisplayName),
		}
	}
	return o, nil
}

func key(resourceType, attributePath string) layout.Key {
	return layout.Key{
		ResourceType:  strings.TrimSpace(resourceType),
		AttributePath: strings.TrimSpace(attributePath),
	}
}

// SuggestHeaders returns the configured header of every requested row that
// has one.
func (o *Oracle) SuggestHeaders(_ context.Context, requests []layout.HeaderRequest) (map[layout.Key]string, error) {
	out := make(map[layout.Key]string)
	for _, r := range requests {
		k := key(r.ResourceType, r.AttributePath)
		if h, ok := o.headers[k]; ok {
			out[k] = h
		}
	}
	return out, nil
}

// SuggestOrders returns the configured order of every requested column that
// has one.
func (o *Oracle) SuggestOrders(_ context.Context, columns map[string][]layout.OrderColumn) (map[layout.Key]int, error) {
	out := make(map[layout.Key]int)
	for rt, cols := range columns {
		for _, c := range cols {
			k := key(rt, c.AttributePath)
			if n, ok := o.orders[k]; ok {
				out[k] = n
			}
		}
	}
	return out, nil
}

// SuggestSheets returns the configured grouping of every requested type that
// has one.
func (o *Oracle) SuggestSheets(_ context.Context, resourceTypes []string) (map[string]layout.SheetSuggestion, error) {
	out := make(map[string]layout.SheetSuggestion)
	for _, rt := range resourceTypes {
		rt = strings.TrimSpace(rt)
		if s, ok := o.sheets[rt]; ok {
			out[rt] = s
		}
	}
	return out, nil
}
