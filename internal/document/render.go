package document

import (
	"sort"
	"strings"

	"github.com/vk/parasheet/internal/layout"
	"github.com/vk/parasheet/internal/tfstate"
	"github.com/vk/parasheet/internal/tfvalue"
)

// column is a required layout row with its position in the layout.
type column struct {
	row   layout.Row
	index int
}

// Render builds the document for an already filtered layout. Sheets appear
// in first-seen order and rows with a blank sheet name are ignored. Within a
// sheet, blocks follow the order in which each resource type first appears
// on a required row; columns are sorted by numeric order, with unparseable
// orders after them in layout order. Each instance of the type yields one
// data row.
func Render(l layout.Layout, resources []tfstate.Resource) *Document {
	byType := tfstate.GroupByType(resources)

	var sheetOrder []string
	bySheet := make(map[string][]column)
	for i, r := range l {
		sheet := strings.TrimSpace(r.SheetName)
		if sheet == "" {
			continue
		}
		if _, ok := bySheet[sheet]; !ok {
			sheetOrder = append(sheetOrder, sheet)
		}
		bySheet[sheet] = append(bySheet[sheet], column{row: r, index: i})
	}

	doc := &Document{}
	for _, name := range sheetOrder {
		cols := bySheet[name]
		sheet := Sheet{Name: name}
		for _, rt := range blockTypes(cols) {
			sheet.Blocks = append(sheet.Blocks, renderBlock(rt, cols, byType[rt]))
		}
		doc.Sheets = append(doc.Sheets, sheet)
	}
	return doc
}

func blockTypes(cols []column) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range cols {
		if !c.row.IsRequired() {
			continue
		}
		rt := strings.TrimSpace(c.row.ResourceType)
		if rt == "" || seen[rt] {
			continue
		}
		seen[rt] = true
		out = append(out, rt)
	}
	return out
}

func renderBlock(rt string, cols []column, instances []tfstate.Resource) Block {
	var visible []column
	for _, c := range cols {
		if c.row.IsRequired() && strings.TrimSpace(c.row.ResourceType) == rt {
			visible = append(visible, c)
		}
	}
	sortColumns(visible)

	b := Block{Title: rt, Header: make([]string, len(visible))}
	for i, c := range visible {
		b.Header[i] = c.row.Header
	}
	for _, res := range instances {
		cells := make([]string, len(visible))
		for i, c := range visible {
			if v, ok := tfvalue.Lookup(res.Values, strings.TrimSpace(c.row.AttributePath)); ok {
				cells[i] = tfvalue.Format(v)
			}
		}
		b.Rows = append(b.Rows, cells)
	}
	return b
}

// sortColumns orders columns by numeric order; columns without one follow
// in layout order.
func sortColumns(cols []column) {
	sort.SliceStable(cols, func(i, j int) bool {
		oi, okI := cols[i].row.OrderValue()
		oj, okJ := cols[j].row.OrderValue()
		switch {
		case okI && okJ:
			return oi < oj
		case okI != okJ:
			return okI
		default:
			return cols[i].index < cols[j].index
		}
	})
}
