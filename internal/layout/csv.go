package layout

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/vk/parasheet/internal/ctxlog"
	"github.com/vk/parasheet/internal/textenc"
)

// Column names of the layout CSV, in file order.
const (
	ColumnResourceType  = "resource_type"
	ColumnAttributePath = "attribute_path"
	ColumnSheetName     = "sheet_name"
	ColumnHeader        = "header"
	ColumnRequired      = "required"
	ColumnOrder         = "order"
)

// Columns is the header row written to every layout CSV.
var Columns = []string{
	ColumnResourceType,
	ColumnAttributePath,
	ColumnSheetName,
	ColumnHeader,
	ColumnRequired,
	ColumnOrder,
}

const utf8BOM = "\uFEFF"

// Write serialises l as UTF-8 CSV with a byte order mark and CRLF line
// endings so spreadsheet tools open it without mangling non-ASCII text.
func Write(w io.Writer, l Layout) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range l {
		record := []string{
			r.ResourceType,
			r.AttributePath,
			r.SheetName,
			r.Header,
			strings.TrimSpace(r.Required),
			r.Order,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes l to path on fs.
func WriteFile(fs afero.Fs, path string, l Layout) error {
	var buf bytes.Buffer
	if err := Write(&buf, l); err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write layout %s: %w", path, err)
	}
	return nil
}

// Parse reads a layout CSV. Columns are matched by header name; unknown
// columns are ignored and missing ones read as empty strings.
func Parse(r io.Reader) (Layout, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Layout{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read layout header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, utf8BOM))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	l := Layout{}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read layout line %d: %w", line, err)
		}
		l = append(l, Row{
			ResourceType:  field(record, ColumnResourceType),
			AttributePath: field(record, ColumnAttributePath),
			SheetName:     field(record, ColumnSheetName),
			Header:        field(record, ColumnHeader),
			Required:      field(record, ColumnRequired),
			Order:         field(record, ColumnOrder),
		})
	}
	return l, nil
}

// ReadFile decodes the file at path with encoding detection and parses it.
// The detected encoding name is returned for logging.
func ReadFile(fs afero.Fs, path string) (Layout, string, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, "", err
	}
	text, enc := textenc.Decode(raw)
	l, err := Parse(strings.NewReader(text))
	if err != nil {
		return nil, enc, fmt.Errorf("%s: %w", path, err)
	}
	return l, enc, nil
}

// ReadPrevious loads the layout a merge should inherit from. A missing file
// is not an error: it yields an empty map.
func ReadPrevious(ctx context.Context, fs afero.Fs, path string) (map[Key]Row, error) {
	logger := ctxlog.FromContext(ctx)

	l, enc, err := ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("No previous layout, starting fresh.", "path", path)
		return map[Key]Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read previous layout: %w", err)
	}
	prev := l.Keys()
	logger.Info("Previous layout loaded.", "path", path, "encoding", enc, "rows", len(prev))
	return prev, nil
}
