// Package xlsx writes a rendered document to an Excel workbook: one tab per
// sheet, block titles in large bold type, dark green header rows, bordered
// data cells, columns sized to their content and gridlines hidden.
package xlsx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/vk/parasheet/internal/document"
	"github.com/xuri/excelize/v2"
)

// EmptyNotice is written to A1 when the document has no sheets.
const EmptyNotice = "No tables were found in the document."

const (
	maxSheetNameLen = 31
	maxColumnWidth  = 255
	invalidSheetChr = `[]:*?/\`
	headerFillColor = "006400"
	noticeFillColor = "CCFFCC"
)

type styles struct {
	title  int
	header int
	data   int
	notice int
}

// Write renders doc as a workbook and writes it to w.
func Write(w io.Writer, doc *document.Document) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	const defaultSheet = "Sheet1"
	if doc.IsEmpty() {
		if err := writeNotice(f, defaultSheet, st); err != nil {
			return err
		}
	} else {
		names := SheetNames(doc)
		for i, s := range doc.Sheets {
			if i == 0 {
				if strings.EqualFold(names[0], defaultSheet) {
					names[0] = defaultSheet
				} else if err := f.SetSheetName(defaultSheet, names[0]); err != nil {
					return fmt.Errorf("renaming first sheet to %q: %w", names[0], err)
				}
			} else if _, err := f.NewSheet(names[i]); err != nil {
				return fmt.Errorf("creating sheet %q: %w", names[i], err)
			}
			if err := writeSheet(f, names[i], s, st); err != nil {
				return fmt.Errorf("writing sheet %q: %w", names[i], err)
			}
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// WriteFile writes the workbook for doc to path on fs.
func WriteFile(fs afero.Fs, path string, doc *document.Document) error {
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		return err
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	top := &excelize.Alignment{Vertical: "top", WrapText: true}

	var st styles
	var err error
	if st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Vertical: "top"},
	}); err != nil {
		return styles{}, fmt.Errorf("creating title style: %w", err)
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
		Border:    border,
		Alignment: top,
	}); err != nil {
		return styles{}, fmt.Errorf("creating header style: %w", err)
	}
	if st.data, err = f.NewStyle(&excelize.Style{Border: border, Alignment: top}); err != nil {
		return styles{}, fmt.Errorf("creating data style: %w", err)
	}
	if st.notice, err = f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{noticeFillColor}, Pattern: 1},
		Border: border,
	}); err != nil {
		return styles{}, fmt.Errorf("creating notice style: %w", err)
	}
	return st, nil
}

func writeNotice(f *excelize.File, sheet string, st styles) error {
	if err := f.SetCellStr(sheet, "A1", EmptyNotice); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", st.notice); err != nil {
		return err
	}
	widths := map[int]int{1: utf8.RuneCountInString(EmptyNotice)}
	return finishSheet(f, sheet, widths)
}

// writeSheet lays out blocks top to bottom with one blank row between them.
func writeSheet(f *excelize.File, sheet string, s document.Sheet, st styles) error {
	widths := make(map[int]int)
	row := 1
	put := func(col int, value string, style int) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, value); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
		if n := longestLine(value); n > widths[col] {
			widths[col] = n
		}
		return nil
	}

	for i, b := range s.Blocks {
		if i > 0 {
			row++
		}
		if b.Title != "" {
			if err := put(1, b.Title, st.title); err != nil {
				return err
			}
			row++
		}
		if len(b.Header) == 0 {
			continue
		}
		for c, h := range b.Header {
			if err := put(c+1, h, st.header); err != nil {
				return err
			}
		}
		row++
		for _, cells := range b.Rows {
			for c, v := range cells {
				if pretty, ok := prettyObjectList(v); ok {
					v = pretty
				}
				if err := put(c+1, v, st.data); err != nil {
					return err
				}
			}
			row++
		}
	}
	return finishSheet(f, sheet, widths)
}

func finishSheet(f *excelize.File, sheet string, widths map[int]int) error {
	for col, n := range widths {
		if n == 0 {
			continue
		}
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		width := float64(min(n+2, maxColumnWidth))
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}
	hide := false
	return f.SetSheetView(sheet, 0, &excelize.ViewOptions{ShowGridLines: &hide})
}

func longestLine(s string) int {
	longest := 0
	for _, line := range strings.Split(s, "\n") {
		if n := utf8.RuneCountInString(line); n > longest {
			longest = n
		}
	}
	return longest
}

// prettyObjectList re-indents s when it is a JSON array whose elements are
// all objects. Anything else is left alone.
func prettyObjectList(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return "", false
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil || len(items) == 0 {
		return "", false
	}
	for _, it := range items {
		if _, ok := it.(map[string]any); !ok {
			return "", false
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return "", false
	}
	return strings.TrimSuffix(buf.String(), "\n"), true
}

// SheetNames returns the tab name used for each sheet of doc: invalid
// characters removed, truncated to the Excel limit, blank names replaced by
// SheetN and case-insensitive duplicates suffixed with " (2)", " (3)" and so on.
func SheetNames(doc *document.Document) []string {
	out := make([]string, len(doc.Sheets))
	used := make(map[string]bool, len(doc.Sheets))
	for i, s := range doc.Sheets {
		base := sanitize(s.Name)
		if base == "" {
			base = fmt.Sprintf("Sheet%d", i+1)
		}
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			suffix := fmt.Sprintf(" (%d)", n)
			name = truncate(base, maxSheetNameLen-utf8.RuneCountInString(suffix)) + suffix
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func sanitize(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidSheetChr, r) {
			return -1
		}
		return r
	}, name)
	cleaned = strings.TrimSpace(cleaned)
	// A leading or trailing apostrophe is rejected by Excel.
	cleaned = strings.Trim(cleaned, "'")
	return strings.TrimSpace(truncate(cleaned, maxSheetNameLen))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
