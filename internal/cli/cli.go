package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/parasheet/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("parasheet", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
parasheet - Turns a Terraform state export into a parameter sheet (Markdown + Excel).

Usage:
  parasheet [options] INPUT

Arguments:
  INPUT
    Output of 'terraform show -json' (or 'tofu show -json').

Modes:
  analyze   Write or update the layout CSV from INPUT. Manual edits are kept.
  generate  Render the Markdown and Excel sheets from INPUT and the layout CSV.

Options:
`)
		flagSet.PrintDefaults()
	}

	var mdName, excel string
	flagSet.StringVar(&mdName, "output", "", "Markdown file name, placed under the output directory.")
	flagSet.StringVar(&mdName, "o", "", "Markdown file name (shorthand).")
	flagSet.StringVar(&excel, "excel", "", "Excel file name, placed under the output directory.")
	modeFlag := flagSet.String("mode", string(app.ModeGenerate), "Processing mode. Options: 'analyze' or 'generate'.")
	layoutFlag := flagSet.String("layout-csv", app.DefaultLayoutCSV, "Path to the layout CSV.")
	aiHeaderFlag := flagSet.Bool("ai-header", false, "In analyze mode, suggest headers for new rows.")
	aiSheetFlag := flagSet.Bool("ai-sheet", false, "In analyze mode, group related resource types onto shared sheets.")
	aiOrderFlag := flagSet.Bool("ai-order", true, "In analyze mode, suggest column orders for new or changed resource types.")
	modelFlag := flagSet.String("model", "", "Model name. Overrides the settings file.")
	suggestionsFlag := flagSet.String("suggestions", "", "YAML file with static suggestions, used instead of the model.")
	configFlag := flagSet.String("config", "parasheet.hcl", "Path to the settings file. A missing file means defaults.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	verboseFlag := flagSet.Bool("verbose", false, "Shorthand for -log-level debug.")

	// Flags may follow INPUT, so parsing resumes after each positional.
	var positional []string
	for rest := args; ; {
		if err := flagSet.Parse(rest); err != nil {
			if err == flag.ErrHelp {
				return nil, true, nil
			}
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		if flagSet.NArg() == 0 {
			break
		}
		positional = append(positional, flagSet.Arg(0))
		rest = flagSet.Args()[1:]
	}
	slog.Debug("Arguments parsed successfully.")

	if len(positional) == 0 {
		slog.Debug("No input provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if len(positional) > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected a single INPUT, got %d arguments", len(positional))}
	}

	mode := app.Mode(strings.ToLower(*modeFlag))
	if mode != app.ModeAnalyze && mode != app.ModeGenerate {
		return nil, false, &ExitError{Code: 2, Message: "invalid mode: must be 'analyze' or 'generate'"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if *verboseFlag {
		logLevel = "debug"
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Input:       positional[0],
		Mode:        mode,
		Output:      mdName,
		Excel:       excel,
		LayoutCSV:   *layoutFlag,
		ConfigPath:  *configFlag,
		Suggestions: *suggestionsFlag,
		AIHeader:    *aiHeaderFlag,
		AISheet:     *aiSheetFlag,
		AIOrder:     *aiOrderFlag,
		Model:       *modelFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
