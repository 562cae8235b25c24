package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/vk/parasheet/internal/config"
	"github.com/vk/parasheet/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL settings loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// fileRoot mirrors the settings file. Pointer fields stay nil when the
// attribute is absent so the default survives.
type fileRoot struct {
	OutputDir          *string      `hcl:"output_dir,optional"`
	MarkdownNameFormat *string      `hcl:"markdown_name_format,optional"`
	ExcelNameFormat    *string      `hcl:"excel_name_format,optional"`
	Oracle             *oracleBlock `hcl:"oracle,block"`
	Sheets             *sheetsBlock `hcl:"sheets,block"`
}

type oracleBlock struct {
	Model     *string `hcl:"model,optional"`
	Endpoint  *string `hcl:"endpoint,optional"`
	APIKeyEnv *string `hcl:"api_key_env,optional"`
	Timeout   *string `hcl:"timeout,optional"`
	Language  *string `hcl:"language,optional"`
}

type sheetsBlock struct {
	PreferredPrimaryTypes     *[]string `hcl:"preferred_primary_types,optional"`
	ExcludedPrimarySuffixes   *[]string `hcl:"excluded_primary_suffixes,optional"`
	ExcludedPrimarySubstrings *[]string `hcl:"excluded_primary_substrings,optional"`
}

// Load reads the settings file at path. A missing file yields the defaults;
// a file that does not parse, decode or validate is an error.
func (l *Loader) Load(ctx context.Context, fs afero.Fs, path string) (*config.Settings, error) {
	logger := ctxlog.FromContext(ctx)
	settings := config.Default()

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error accessing settings file %s: %w", path, err)
	}
	if !exists {
		logger.Debug("No settings file found; using defaults.", "path", path)
		return settings, nil
	}

	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode settings file %s: %w", path, diags)
	}
	overlay(settings, &root)

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	logger.Debug("Settings file loaded.", "path", path, "output_dir", settings.OutputDir, "model", settings.Oracle.Model)
	return settings, nil
}

func overlay(s *config.Settings, root *fileRoot) {
	set(&s.OutputDir, root.OutputDir)
	set(&s.MarkdownNameFormat, root.MarkdownNameFormat)
	set(&s.ExcelNameFormat, root.ExcelNameFormat)

	if o := root.Oracle; o != nil {
		set(&s.Oracle.Model, o.Model)
		set(&s.Oracle.Endpoint, o.Endpoint)
		set(&s.Oracle.APIKeyEnv, o.APIKeyEnv)
		set(&s.Oracle.Timeout, o.Timeout)
		set(&s.Oracle.Language, o.Language)
	}
	if sh := root.Sheets; sh != nil {
		set(&s.Sheets.PreferredPrimaryTypes, sh.PreferredPrimaryTypes)
		set(&s.Sheets.ExcludedPrimarySuffixes, sh.ExcludedPrimarySuffixes)
		set(&s.Sheets.ExcludedPrimarySubstrings, sh.ExcludedPrimarySubstrings)
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
