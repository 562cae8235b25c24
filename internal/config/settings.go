package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Settings is the unified representation of the settings file.
type Settings struct {
	// OutputDir receives the Markdown and Excel outputs.
	OutputDir string
	// MarkdownNameFormat and ExcelNameFormat name the outputs. They may use
	// the {input_stem} and {timestamp} placeholders.
	MarkdownNameFormat string
	ExcelNameFormat    string

	Oracle OracleSettings
	Sheets SheetSettings
}

// OracleSettings configures the language model endpoint.
type OracleSettings struct {
	Model     string
	Endpoint  string
	APIKeyEnv string
	// Timeout is a Go duration string such as "60s".
	Timeout  string
	Language string
}

// SheetSettings tunes how a shared sheet picks the type that names it.
type SheetSettings struct {
	PreferredPrimaryTypes     []string
	ExcludedPrimarySuffixes   []string
	ExcludedPrimarySubstrings []string
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		OutputDir:          "outputs",
		MarkdownNameFormat: "{input_stem}_params_{timestamp}.md",
		ExcelNameFormat:    "{input_stem}_params_{timestamp}.xlsx",
		Oracle: OracleSettings{
			Model:     "gpt-4.1-mini",
			Endpoint:  "https://api.openai.com/v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Timeout:   "60s",
			Language:  "Japanese",
		},
		Sheets: SheetSettings{
			PreferredPrimaryTypes: []string{
				"aws_vpc", "aws_iam_role", "aws_security_group", "aws_s3_bucket",
				"aws_kms_key", "aws_lb", "aws_alb", "aws_nlb",
			},
			ExcludedPrimarySuffixes: []string{
				"_attachment", "_association", "_rule", "_permission", "_grant",
				"_membership", "_binding", "_mapping", "_route",
			},
			ExcludedPrimarySubstrings: []string{"policy_attachment"},
		},
	}
}

// TimeoutDuration returns the parsed oracle timeout, or zero when it does
// not parse. Validate reports the latter.
func (o OracleSettings) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(o.Timeout))
	if err != nil {
		return 0
	}
	return d
}

// Validate checks every field and reports all problems at once.
func (s *Settings) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(s.OutputDir) == "" {
		result = multierror.Append(result, fmt.Errorf("output_dir must not be empty"))
	}
	for _, f := range []struct{ name, format string }{
		{"markdown_name_format", s.MarkdownNameFormat},
		{"excel_name_format", s.ExcelNameFormat},
	} {
		switch {
		case strings.TrimSpace(f.format) == "":
			result = multierror.Append(result, fmt.Errorf("%s must not be empty", f.name))
		case filepath.Ext(f.format) == "":
			result = multierror.Append(result, fmt.Errorf("%s %q has no file extension", f.name, f.format))
		}
	}

	o := s.Oracle
	if strings.TrimSpace(o.Model) == "" {
		result = multierror.Append(result, fmt.Errorf("oracle.model must not be empty"))
	}
	if u, err := url.Parse(o.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("oracle.endpoint %q is not an http(s) URL", o.Endpoint))
	}
	if strings.TrimSpace(o.APIKeyEnv) == "" {
		result = multierror.Append(result, fmt.Errorf("oracle.api_key_env must not be empty"))
	}
	if d, err := time.ParseDuration(strings.TrimSpace(o.Timeout)); err != nil {
		result = multierror.Append(result, fmt.Errorf("oracle.timeout %q: %w", o.Timeout, err))
	} else if d <= 0 {
		result = multierror.Append(result, fmt.Errorf("oracle.timeout must be positive, got %s", d))
	}
	if strings.TrimSpace(o.Language) == "" {
		result = multierror.Append(result, fmt.Errorf("oracle.language must not be empty"))
	}

	return result.ErrorOrNil()
}
