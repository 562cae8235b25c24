package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/parasheet/internal/ctxlog"
	"github.com/vk/parasheet/internal/layout"
)

const headerPrompt = `You are a cloud engineer who knows the wording of the AWS Management Console.
For each resource_type and attribute_path you receive, choose the column header used in a parameter sheet.

Requirements:
- Prefer the names shown in the AWS Management Console (%[1]s UI).
- If no good %[1]s name exists, use the last segment of attribute_path as is.
- Always return the same header for the same resource_type and attribute_path.
- Keep headers short.
- Output only a JSON array whose elements look like
  {"resource_type": "...", "attribute_path": "...", "header": "..."}
  and nothing else.`

const orderPrompt = `You are a cloud engineer who knows AWS infrastructure well.
You receive the attributes of several Terraform resource types. Decide the column order of the parameter sheet for each resource type.

Rules:
- Put the attribute that identifies the resource first, such as its ID or name. Prefer an ID or name over an ARN; use the ARN only when nothing else identifies it.
- Next come the basic settings and the settings reviewers check most often in operations or security reviews. Other details go last.
- Orders are consecutive integers starting at 1.
- Assign an order to every attribute_path in the input.
- Output only a JSON array whose elements look like
  {"resource_type": "...", "orders": [{"attribute_path": "...", "order": 1}, ...]}
  and nothing else.`

const sheetPrompt = `You are a cloud engineer who knows both the AWS Management Console and Terraform resource types.
You receive a list of Terraform resource types. The goal is to decide which sheet of a parameter sheet each type belongs to.

Requirements:
- Put strongly related resource types on the same sheet (for example VPC, subnets, route tables, internet gateways and NAT gateways).
- For every resource type decide:
  1) group_key: identifier of the sheet it belongs to (letters, digits and underscores, e.g. network_vpc)
  2) display_name: the short name the AWS Management Console (%s UI) uses for the resource
- Related types must always share the same group_key.
- Output only a JSON array whose elements look like
  {"resource_type": "...", "group_key": "...", "display_name": "..."}
  and nothing else.`

type headerItem struct {
	ResourceType  string `json:"resource_type"`
	AttributePath string `json:"attribute_path"`
	CurrentHeader string `json:"current_header,omitempty"`
	Header        string `json:"header,omitempty"`
}

// SuggestHeaders asks for a header per requested row.
func (c *Client) SuggestHeaders(ctx context.Context, requests []layout.HeaderRequest) (map[layout.Key]string, error) {
	if len(requests) == 0 {
		return map[layout.Key]string{}, nil
	}
	payload := make([]headerItem, len(requests))
	for i, r := range requests {
		payload[i] = headerItem{ResourceType: r.ResourceType, AttributePath: r.AttributePath, CurrentHeader: r.CurrentHeader}
	}

	items, err := c.complete(ctx, fmt.Sprintf(headerPrompt, c.language), payload)
	if err != nil {
		return nil, err
	}

	out := make(map[layout.Key]string, len(items))
	for _, raw := range items {
		var it headerItem
		if json.Unmarshal(raw, &it) != nil {
			continue
		}
		k := key(it.ResourceType, it.AttributePath)
		h := strings.TrimSpace(it.Header)
		if k.ResourceType == "" || k.AttributePath == "" || h == "" {
			continue
		}
		out[k] = h
	}
	ctxlog.FromContext(ctx).Debug("Header suggestions parsed.", "requested", len(requests), "received", len(out))
	return out, nil
}

type orderColumn struct {
	AttributePath string `json:"attribute_path"`
	Header        string `json:"header"`
	Required      string `json:"required"`
	ParentLink    string `json:"link_to_parent_attr"`
}

type orderGroup struct {
	ResourceType string        `json:"resource_type"`
	Columns      []orderColumn `json:"columns"`
}

type orderItem struct {
	ResourceType string            `json:"resource_type"`
	Orders       []json.RawMessage `json:"orders"`
}

type orderEntry struct {
	AttributePath string          `json:"attribute_path"`
	Order         json.RawMessage `json:"order"`
}

// SuggestOrders asks for a column order per resource type.
func (c *Client) SuggestOrders(ctx context.Context, columns map[string][]layout.OrderColumn) (map[layout.Key]int, error) {
	if len(columns) == 0 {
		return map[layout.Key]int{}, nil
	}
	types := make([]string, 0, len(columns))
	for rt := range columns {
		types = append(types, rt)
	}
	sort.Strings(types)

	payload := make([]orderGroup, 0, len(types))
	for _, rt := range types {
		g := orderGroup{ResourceType: rt, Columns: make([]orderColumn, 0, len(columns[rt]))}
		for _, col := range columns[rt] {
			g.Columns = append(g.Columns, orderColumn{
				AttributePath: col.AttributePath,
				Header:        col.Header,
				Required:      col.Required,
				ParentLink:    col.ParentLink,
			})
		}
		payload = append(payload, g)
	}

	items, err := c.complete(ctx, orderPrompt, payload)
	if err != nil {
		return nil, err
	}

	out := make(map[layout.Key]int)
	for _, raw := range items {
		var it orderItem
		if json.Unmarshal(raw, &it) != nil || strings.TrimSpace(it.ResourceType) == "" {
			continue
		}
		for _, rawEntry := range it.Orders {
			var e orderEntry
			if json.Unmarshal(rawEntry, &e) != nil {
				continue
			}
			k := key(it.ResourceType, e.AttributePath)
			n, ok := parseOrder(e.Order)
			if k.AttributePath == "" || !ok {
				continue
			}
			out[k] = n
		}
	}
	ctxlog.FromContext(ctx).Debug("Order suggestions parsed.", "types", len(types), "received", len(out))
	return out, nil
}

// parseOrder accepts a JSON number or a string holding an integer.
// Fractional numbers are truncated.
func parseOrder(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return int(f), true
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}
	return 0, false
}

type sheetItem struct {
	ResourceType string `json:"resource_type"`
	GroupKey     string `json:"group_key,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
}

// SuggestSheets asks for a sheet group and display name per resource type.
// Answers missing either value are dropped.
func (c *Client) SuggestSheets(ctx context.Context, resourceTypes []string) (map[string]layout.SheetSuggestion, error) {
	seen := make(map[string]bool, len(resourceTypes))
	var payload []sheetItem
	for _, rt := range resourceTypes {
		rt = strings.TrimSpace(rt)
		if rt == "" || seen[rt] {
			continue
		}
		seen[rt] = true
		payload = append(payload, sheetItem{ResourceType: rt})
	}
	if len(payload) == 0 {
		return map[string]layout.SheetSuggestion{}, nil
	}
	sort.Slice(payload, func(i, j int) bool { return payload[i].ResourceType < payload[j].ResourceType })

	items, err := c.complete(ctx, fmt.Sprintf(sheetPrompt, c.language), payload)
	if err != nil {
		return nil, err
	}

	out := make(map[string]layout.SheetSuggestion, len(items))
	for _, raw := range items {
		var it sheetItem
		if json.Unmarshal(raw, &it) != nil {
			continue
		}
		rt := strings.TrimSpace(it.ResourceType)
		gk := strings.TrimSpace(it.GroupKey)
		name := strings.TrimSpace(it.DisplayName)
		if rt == "" || gk == "" || name == "" {
			continue
		}
		out[rt] = layout.SheetSuggestion{GroupKey: gk, DisplayName: name}
	}
	ctxlog.FromContext(ctx).Debug("Sheet suggestions parsed.", "types", len(payload), "received", len(out))
	return out, nil
}

func key(resourceType, attributePath string) layout.Key {
	return layout.Key{
		ResourceType:  strings.TrimSpace(resourceType),
		AttributePath: strings.TrimSpace(attributePath),
	}
}
