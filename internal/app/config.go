package app

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects which pipeline Run executes.
type Mode string

const (
	// ModeAnalyze writes the layout CSV from a state snapshot.
	ModeAnalyze Mode = "analyze"
	// ModeGenerate renders the Markdown and Excel outputs.
	ModeGenerate Mode = "generate"
)

// DefaultLayoutCSV is the layout file used when none is given.
const DefaultLayoutCSV = "layout_template.csv"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Input string // `terraform show -json` output
	Mode  Mode

	// Output and Excel override the configured output file names.
	Output string
	Excel  string

	LayoutCSV   string
	ConfigPath  string // settings file, optional
	Suggestions string // static suggestions file, replaces the remote oracle

	AIHeader bool
	AISheet  bool
	AIOrder  bool
	Model    string // overrides the settings model when set

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if strings.TrimSpace(cfg.Input) == "" {
		return nil, errors.New("Input is a required configuration field and cannot be empty")
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeGenerate
	case ModeAnalyze, ModeGenerate:
	default:
		return nil, fmt.Errorf("unknown mode %q: must be 'analyze' or 'generate'", cfg.Mode)
	}
	if cfg.LayoutCSV == "" {
		cfg.LayoutCSV = DefaultLayoutCSV
	}
	return &cfg, nil
}

// oracleRequested reports whether any suggestion call is enabled.
func (c *Config) oracleRequested() bool {
	return c.AIHeader || c.AISheet || c.AIOrder
}
