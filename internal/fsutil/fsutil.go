// Package fsutil provides file system and file naming helpers.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// TimestampLayout renders {timestamp} as yyyyMMdd-hhmm.
const TimestampLayout = "20060102-1504"

// ExpandName fills the {input_stem} and {timestamp} placeholders of format.
// Unknown placeholders are left as they are.
func ExpandName(format, inputStem string, now time.Time) string {
	return strings.NewReplacer(
		"{input_stem}", inputStem,
		"{timestamp}", now.Format(TimestampLayout),
	).Replace(format)
}

// Stem returns the base name of path without its last extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// EnsureDir creates dir and its parents when missing.
func EnsureDir(fs afero.Fs, dir string) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether a regular file exists at path.
func Exists(fs afero.Fs, path string) (bool, error) {
	info, err := fs.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}
