package config

import (
	"context"

	"github.com/spf13/afero"
)

// Loader is the interface for a format-specific settings loader.
type Loader interface {
	// Load reads the settings file at path and overlays it onto Default().
	// A missing file yields the defaults.
	Load(ctx context.Context, fs afero.Fs, path string) (*Settings, error)
}
