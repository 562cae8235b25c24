package layout

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vk/parasheet/internal/ctxlog"
	"github.com/vk/parasheet/internal/inventory"
	"github.com/vk/parasheet/internal/tfstate"
)

// defaultSheetName is used for rows whose resource type is blank.
const defaultSheetName = "Sheet1"

// Merger reconciles a fresh attribute inventory with a previously persisted
// layout. The oracles are optional; a nil oracle skips its enrichment.
type Merger struct {
	Headers HeaderOracle
	Orders  OrderOracle
	Sheets  SheetOracle
	Primary PrimaryPolicy
	// Timeout bounds each oracle call. Zero means no limit.
	Timeout time.Duration
}

// Result is the outcome of a merge.
type Result struct {
	Layout Layout
	// NewRows counts rows without a previous layout entry.
	NewRows int
	// OrderTargets lists the resource types whose orders were renumbered.
	OrderTargets []string
}

// Merge builds the new layout. Every phase works on its own copy of the
// layout; oracle failures are logged and leave the phase's input as is.
func (m *Merger) Merge(ctx context.Context, resources []tfstate.Resource, inv *inventory.Inventory, prev map[Key]Row) Result {
	logger := ctxlog.FromContext(ctx)

	base := discover(inv, prev)
	newRows := len(base.NewRows())
	logger.Debug("Layout rows discovered.", "rows", len(base), "new", newRows, "previous", len(prev))

	l := m.enrichSheets(ctx, base, resources)
	l = m.enrichHeaders(ctx, l)
	l, targets := m.enrichOrders(ctx, l, prev)

	return Result{Layout: l, NewRows: newRows, OrderTargets: targets}
}

// discover produces one row per inventory entry, inheriting every editable
// field from prev where the key already exists.
func discover(inv *inventory.Inventory, prev map[Key]Row) Layout {
	entries := inv.Entries()
	out := make(Layout, 0, len(entries))
	for _, e := range entries {
		k := Key{ResourceType: e.ResourceType, AttributePath: e.AttributePath}
		if p, ok := prev[k]; ok {
			out = append(out, Row{
				ResourceType:  e.ResourceType,
				AttributePath: e.AttributePath,
				SheetName:     p.SheetName,
				Header:        p.Header,
				Required:      p.Required,
				Order:         p.Order,
			})
			continue
		}

		sheet := e.ResourceType
		if sheet == "" {
			sheet = defaultSheetName
		}
		required := ""
		if e.Effective {
			required = RequiredFlag
		}
		out = append(out, Row{
			ResourceType:  e.ResourceType,
			AttributePath: e.AttributePath,
			SheetName:     sheet,
			Header:        e.AttributePath,
			Required:      required,
			isNew:         true,
		})
	}
	return out
}

func (m *Merger) oracleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.Timeout > 0 {
		return context.WithTimeout(ctx, m.Timeout)
	}
	return context.WithCancel(ctx)
}

// enrichSheets moves related resource types onto a shared sheet named after
// the group's primary type. Rows whose sheet name was edited by hand keep it.
func (m *Merger) enrichSheets(ctx context.Context, l Layout, resources []tfstate.Resource) Layout {
	if m.Sheets == nil {
		return l
	}
	logger := ctxlog.FromContext(ctx)

	counts := tfstate.TypeCounts(resources)
	types := make([]string, 0, len(counts))
	for rt := range counts {
		types = append(types, strings.TrimSpace(rt))
	}
	sort.Strings(types)

	octx, cancel := m.oracleContext(ctx)
	suggestions, err := m.Sheets.SuggestSheets(octx, types)
	cancel()
	if err != nil {
		logger.Warn("Sheet suggestion failed; keeping sheet names as they are.", "error", err)
		return l
	}

	groups := make(map[string][]string)
	for _, rt := range types {
		gk := strings.TrimSpace(suggestions[rt].GroupKey)
		if gk == "" {
			continue
		}
		groups[gk] = append(groups[gk], rt)
	}

	sheetByGroup := make(map[string]string, len(groups))
	for gk, members := range groups {
		primary := m.Primary.Pick(members, counts)
		name := strings.TrimSpace(suggestions[primary].DisplayName)
		if name == "" {
			name = primary
		}
		sheetByGroup[gk] = name
		logger.Debug("Sheet group resolved.", "group", gk, "primary", primary, "sheet", name, "members", members)
	}

	out := l.Clone()
	for i := range out {
		rt := strings.TrimSpace(out[i].ResourceType)
		if rt == "" {
			continue
		}
		target := sheetByGroup[strings.TrimSpace(suggestions[rt].GroupKey)]
		if target == "" {
			continue
		}
		if out[i].isNew || strings.TrimSpace(out[i].SheetName) == rt {
			out[i].SheetName = target
		}
	}
	return out
}

// enrichHeaders applies suggested headers to new rows only.
func (m *Merger) enrichHeaders(ctx context.Context, l Layout) Layout {
	if m.Headers == nil {
		return l
	}
	var requests []HeaderRequest
	for _, r := range l {
		if r.isNew {
			requests = append(requests, HeaderRequest{
				ResourceType:  r.ResourceType,
				AttributePath: r.AttributePath,
				CurrentHeader: r.Header,
			})
		}
	}
	if len(requests) == 0 {
		return l
	}

	octx, cancel := m.oracleContext(ctx)
	suggestions, err := m.Headers.SuggestHeaders(octx, requests)
	cancel()
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Header suggestion failed; keeping default headers.", "error", err)
		return l
	}

	out := l.Clone()
	applied := 0
	for i := range out {
		if !out[i].isNew {
			continue
		}
		if h := strings.TrimSpace(suggestions[out[i].Key()]); h != "" {
			out[i].Header = h
			applied++
		}
	}
	ctxlog.FromContext(ctx).Debug("Header suggestions applied.", "requested", len(requests), "applied", applied)
	return out
}

// enrichOrders assigns orders to every resource type that is new to the
// layout or gained new rows, then renumbers those types to 1..N.
func (m *Merger) enrichOrders(ctx context.Context, l Layout, prev map[Key]Row) (Layout, []string) {
	logger := ctxlog.FromContext(ctx)

	var typeOrder []string
	byType := make(map[string][]int)
	for i, r := range l {
		rt := r.ResourceType
		if _, ok := byType[rt]; !ok {
			typeOrder = append(typeOrder, rt)
		}
		byType[rt] = append(byType[rt], i)
	}

	prevTypes := make(map[string]bool)
	for k := range prev {
		prevTypes[k.ResourceType] = true
	}

	var targets []string
	for _, rt := range typeOrder {
		if rt == "" {
			continue
		}
		needs := len(prev) == 0 || !prevTypes[rt]
		if !needs {
			for _, i := range byType[rt] {
				if l[i].isNew {
					needs = true
					break
				}
			}
		}
		if needs {
			targets = append(targets, rt)
		}
	}
	if len(targets) == 0 {
		return l, nil
	}

	out := l.Clone()

	if m.Orders != nil {
		columns := make(map[string][]OrderColumn, len(targets))
		for _, rt := range targets {
			for _, i := range byType[rt] {
				columns[rt] = append(columns[rt], OrderColumn{
					AttributePath: out[i].AttributePath,
					Header:        out[i].Header,
					Required:      out[i].Required,
				})
			}
		}

		octx, cancel := m.oracleContext(ctx)
		suggestions, err := m.Orders.SuggestOrders(octx, columns)
		cancel()
		if err != nil {
			logger.Warn("Order suggestion failed; falling back to discovery order.", "error", err)
		} else {
			for _, rt := range targets {
				for _, i := range byType[rt] {
					if o, ok := suggestions[out[i].Key()]; ok {
						out[i].Order = strconv.Itoa(o)
					}
				}
			}
		}
	} else {
		logger.Debug("No order oracle configured; using discovery order for new types.")
	}

	for _, rt := range targets {
		idx := byType[rt]
		if allBlankOrders(out, idx) {
			for pos, i := range idx {
				out[i].Order = strconv.Itoa(pos + 1)
			}
		}
		renumber(out, idx)
	}
	return out, targets
}

func allBlankOrders(l Layout, idx []int) bool {
	for _, i := range idx {
		if strings.TrimSpace(l[i].Order) != "" {
			return false
		}
	}
	return true
}

// renumber rewrites the orders of the rows at idx to a dense 1..N sequence.
// Rows with a numeric order come first, sorted by that number (stable);
// the rest follow in their current relative order.
func renumber(l Layout, idx []int) {
	type ranked struct {
		i     int
		order int
	}
	var numbered []ranked
	var rest []int
	for _, i := range idx {
		if n, ok := l[i].OrderValue(); ok {
			numbered = append(numbered, ranked{i: i, order: n})
		} else {
			rest = append(rest, i)
		}
	}
	sort.SliceStable(numbered, func(a, b int) bool { return numbered[a].order < numbered[b].order })

	rank := 1
	for _, n := range numbered {
		l[n.i].Order = strconv.Itoa(rank)
		rank++
	}
	for _, i := range rest {
		l[i].Order = strconv.Itoa(rank)
		rank++
	}
}
