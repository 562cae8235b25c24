package layout

import "strings"

// Filter keeps only the rows flagged required and drops sheets that have
// none. Surviving rows are grouped by sheet in first-seen sheet order, each
// sheet keeping its rows' relative order.
//
// When nothing would survive, the input is returned unchanged and the second
// result is true, so a broken layout never produces an empty document.
func Filter(l Layout) (Layout, bool) {
	if len(l) == 0 {
		return l, false
	}

	var sheetOrder []string
	bySheet := make(map[string][]Row)
	for _, r := range l {
		sheet := strings.TrimSpace(r.SheetName)
		if _, ok := bySheet[sheet]; !ok {
			sheetOrder = append(sheetOrder, sheet)
		}
		bySheet[sheet] = append(bySheet[sheet], r)
	}

	var out Layout
	for _, sheet := range sheetOrder {
		for _, r := range bySheet[sheet] {
			if r.IsRequired() {
				out = append(out, r)
			}
		}
	}

	if len(out) == 0 {
		return l, true
	}
	return out, false
}
