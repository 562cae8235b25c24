package document

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const (
	// TypeMarker prefixes the line naming a block's resource type.
	TypeMarker = "@resource_type"
	// DefaultSheet receives tables that appear before any heading.
	DefaultSheet = "Sheet1"

	maxLineSize = 16 << 20
)

var (
	cellEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	sepCleaner  = strings.NewReplacer(":", "", " ", "")
)

// EncodeMarkdown serialises doc. Each sheet becomes a level-two heading and
// each block a marker line followed by a pipe table.
func EncodeMarkdown(doc *Document) string {
	var sb strings.Builder
	if doc == nil {
		return ""
	}
	for _, s := range doc.Sheets {
		fmt.Fprintf(&sb, "## %s\n\n", s.Name)
		for _, b := range s.Blocks {
			if b.Title != "" {
				fmt.Fprintf(&sb, "%s %s\n\n", TypeMarker, b.Title)
			}
			if len(b.Header) == 0 {
				continue
			}
			writeTableRow(&sb, b.Header)
			sep := make([]string, len(b.Header))
			for i := range sep {
				sep[i] = "---"
			}
			sb.WriteString("| " + strings.Join(sep, " | ") + " |\n")
			for _, row := range b.Rows {
				writeTableRow(&sb, row)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func writeTableRow(sb *strings.Builder, cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = escapeCell(c)
	}
	sb.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
}

// escapeCell escapes the pipe table metacharacters of c. Whitespace at
// either end is spelled out as \s or \uXXXX so that the padding trimmed on
// decode cannot take it along.
func escapeCell(c string) string {
	c = cellEscaper.Replace(c)
	body := strings.TrimLeftFunc(c, unicode.IsSpace)
	lead := c[:len(c)-len(body)]
	inner := strings.TrimRightFunc(body, unicode.IsSpace)
	trail := body[len(inner):]
	if lead == "" && trail == "" {
		return c
	}
	return escapeSpaces(lead) + inner + escapeSpaces(trail)
}

func escapeSpaces(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r == ' ' {
			sb.WriteString(`\s`)
			continue
		}
		fmt.Fprintf(&sb, `\u%04X`, r)
	}
	return sb.String()
}

// DecodeMarkdown parses text produced by EncodeMarkdown, tolerating the
// looser Markdown a person might write by hand. Lines starting with "#" open
// a sheet, marker lines open a block, and runs of lines starting with "|"
// form a table whose first row is the header. A dash separator directly
// below the header is dropped.
func DecodeMarkdown(text string) (*Document, error) {
	doc := &Document{}
	current := DefaultSheet
	var pending *Block
	var table [][]string
	tableLines := 0

	flush := func() {
		if table == nil {
			return
		}
		b := Block{}
		if pending != nil {
			b.Title = pending.Title
			pending = nil
		}
		b.Header = table[0]
		if len(table) > 1 {
			b.Rows = table[1:]
		}
		s := doc.sheet(current)
		s.Blocks = append(s.Blocks, b)
		table = nil
		tableLines = 0
	}
	flushMarker := func() {
		if pending != nil {
			s := doc.sheet(current)
			s.Blocks = append(s.Blocks, *pending)
			pending = nil
		}
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "|") {
			tableLines++
			cells := splitCells(trimmed)
			if tableLines == 2 && isSeparator(cells) {
				continue
			}
			table = append(table, cells)
			continue
		}
		flush()

		switch {
		case strings.HasPrefix(line, "#"):
			name := strings.TrimSpace(strings.TrimLeft(line, "#"))
			if name == "" {
				continue
			}
			flushMarker()
			current = name
			doc.sheet(current)
		case trimmed == TypeMarker || strings.HasPrefix(trimmed, TypeMarker+" "):
			flushMarker()
			pending = &Block{Title: strings.TrimSpace(strings.TrimPrefix(trimmed, TypeMarker))}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading markdown line %d: %w", lineNo+1, err)
	}
	flush()
	flushMarker()
	return doc, nil
}

// splitCells splits a pipe table line on unescaped "|" and unescapes each
// trimmed cell. The leading pipe is required; the trailing one is optional.
func splitCells(line string) []string {
	body := strings.TrimPrefix(line, "|")

	var cells []string
	var cur strings.Builder
	escaped := false
	closed := false
	for _, r := range body {
		closed = false
		if escaped {
			cur.WriteByte('\\')
			cur.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '|':
			cells = append(cells, unescapeCell(strings.TrimSpace(cur.String())))
			cur.Reset()
			closed = true
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteByte('\\')
	}
	if !closed {
		cells = append(cells, unescapeCell(strings.TrimSpace(cur.String())))
	}
	return cells
}

func unescapeCell(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '\\':
			sb.WriteByte('\\')
		case '|':
			sb.WriteByte('|')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 's':
			sb.WriteByte(' ')
		case 'u':
			if i+5 <= len(s) {
				if code, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
					sb.WriteRune(rune(code))
					i += 4
					continue
				}
			}
			sb.WriteString(`\u`)
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

func isSeparator(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		s := sepCleaner.Replace(c)
		if s == "" || strings.Trim(s, "-") != "" {
			return false
		}
	}
	return true
}
