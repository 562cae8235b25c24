// Package document holds the rendered parameter sheet: an ordered list of
// sheets, each holding resource-type blocks with a header row and data rows.
// It renders a document from a layout and a set of resources, and encodes it
// to (and decodes it from) the Markdown intermediate format.
package document

// Document is an ordered sequence of sheets.
type Document struct {
	Sheets []Sheet
}

// Sheet is a named group of blocks.
type Sheet struct {
	Name   string
	Blocks []Block
}

// Block is one table. Title is the resource type; an empty title marks a
// table that had no resource-type marker.
type Block struct {
	Title  string
	Header []string
	Rows   [][]string
}

// IsEmpty reports whether the document has no table at all.
func (d *Document) IsEmpty() bool {
	if d == nil {
		return true
	}
	for _, s := range d.Sheets {
		if len(s.Blocks) > 0 {
			return false
		}
	}
	return true
}

// sheet returns the sheet called name, appending it when missing.
func (d *Document) sheet(name string) *Sheet {
	for i := range d.Sheets {
		if d.Sheets[i].Name == name {
			return &d.Sheets[i]
		}
	}
	d.Sheets = append(d.Sheets, Sheet{Name: name})
	return &d.Sheets[len(d.Sheets)-1]
}
