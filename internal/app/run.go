package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/vk/parasheet/internal/ctxlog"
	"github.com/vk/parasheet/internal/document"
	"github.com/vk/parasheet/internal/fsutil"
	"github.com/vk/parasheet/internal/inventory"
	"github.com/vk/parasheet/internal/layout"
	"github.com/vk/parasheet/internal/tfstate"
	"github.com/vk/parasheet/internal/xlsx"
)

// ErrLayoutMissing is returned by generate when the layout CSV does not exist.
var ErrLayoutMissing = errors.New("layout CSV not found")

// Outputs names the files a generate run wrote.
type Outputs struct {
	Markdown string
	Excel    string
}

// Run executes the pipeline selected by the configured mode.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "mode", a.config.Mode)

	resources, err := a.extract(ctx)
	if err != nil {
		return err
	}

	switch a.config.Mode {
	case ModeAnalyze:
		err = a.analyze(ctx, resources)
	default:
		_, err = a.generate(ctx, resources)
	}
	if err != nil {
		return err
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) extract(ctx context.Context) ([]tfstate.Resource, error) {
	snap, err := tfstate.Load(a.fs, a.config.Input)
	if err != nil {
		return nil, err
	}
	resources, err := snap.Resources(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.config.Input, err)
	}
	a.logger.Info("State loaded.", "input", a.config.Input, "resources", len(resources),
		"terraform_version", snap.TerraformVersion)
	return resources, nil
}

// analyze merges the snapshot's attribute inventory into the layout CSV.
func (a *App) analyze(ctx context.Context, resources []tfstate.Resource) error {
	path := a.config.LayoutCSV

	inv := inventory.Build(resources)
	a.logger.Debug("Attribute inventory built.", "entries", inv.Len(), "types", len(inv.Types()))

	prev, err := layout.ReadPrevious(ctx, a.fs, path)
	if err != nil {
		return err
	}

	merger, closer, err := a.newMerger(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	res := merger.Merge(ctx, resources, inv, prev)

	if err := fsutil.EnsureDir(a.fs, filepath.Dir(path)); err != nil {
		return err
	}
	if err := layout.WriteFile(a.fs, path, res.Layout); err != nil {
		return err
	}
	a.logger.Info("Layout written.", "path", path, "rows", len(res.Layout), "new_rows", res.NewRows,
		"order_targets", res.OrderTargets)
	return nil
}

// generate renders the layout into Markdown, then converts that Markdown
// into the Excel workbook.
func (a *App) generate(ctx context.Context, resources []tfstate.Resource) (Outputs, error) {
	path := a.config.LayoutCSV

	exists, err := fsutil.Exists(a.fs, path)
	if err != nil {
		return Outputs{}, fmt.Errorf("error accessing layout %s: %w", path, err)
	}
	if !exists {
		return Outputs{}, fmt.Errorf("%w: %s (run with -mode analyze first and edit the result)", ErrLayoutMissing, path)
	}

	l, enc, err := layout.ReadFile(a.fs, path)
	if err != nil {
		return Outputs{}, fmt.Errorf("failed to read layout: %w", err)
	}
	a.logger.Info("Layout loaded.", "path", path, "encoding", enc, "rows", len(l))

	filtered, ok := layout.Filter(l)
	if !ok {
		a.logger.Warn("No sheet has a required row; rendering the layout unfiltered.", "path", path)
	}

	out := a.outputPaths()
	if err := fsutil.EnsureDir(a.fs, a.settings.OutputDir); err != nil {
		return Outputs{}, err
	}

	md := document.EncodeMarkdown(document.Render(filtered, resources))
	if err := afero.WriteFile(a.fs, out.Markdown, []byte(md), 0o644); err != nil {
		return Outputs{}, fmt.Errorf("failed to write markdown %s: %w", out.Markdown, err)
	}
	a.logger.Info("Markdown written.", "path", out.Markdown)

	doc, err := document.DecodeMarkdown(md)
	if err != nil {
		return Outputs{}, fmt.Errorf("failed to read back markdown: %w", err)
	}
	if err := xlsx.WriteFile(a.fs, out.Excel, doc); err != nil {
		return Outputs{}, err
	}
	a.logger.Info("Excel written.", "path", out.Excel, "sheets", len(doc.Sheets))
	return out, nil
}

// outputPaths resolves the output names under the output directory. Explicit
// names win over the configured formats; absolute names are used as given.
func (a *App) outputPaths() Outputs {
	stem := fsutil.Stem(a.config.Input)
	now := a.now()

	md := a.config.Output
	if md == "" {
		md = fsutil.ExpandName(a.settings.MarkdownNameFormat, stem, now)
	}
	excel := a.config.Excel
	if excel == "" {
		excel = fsutil.ExpandName(a.settings.ExcelNameFormat, stem, now)
	}
	return Outputs{
		Markdown: underDir(a.settings.OutputDir, md),
		Excel:    underDir(a.settings.OutputDir, excel),
	}
}

func underDir(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
