package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vk/parasheet/internal/config"
	"github.com/vk/parasheet/internal/ctxlog"
	"github.com/vk/parasheet/internal/layout"
	"github.com/vk/parasheet/internal/oracle/openai"
	"github.com/vk/parasheet/internal/oracle/static"
)

// suggester is what a backend must provide to serve every enabled call.
type suggester interface {
	layout.HeaderOracle
	layout.OrderOracle
	layout.SheetOracle
}

// newMerger wires the suggestion backend into a merger. A static
// suggestions file takes precedence over the remote model; missing
// credentials disable the remote calls with a warning. The returned
// closer is never nil.
func (a *App) newMerger(ctx context.Context) (*layout.Merger, io.Closer, error) {
	logger := ctxlog.FromContext(ctx)
	s := a.settings

	m := &layout.Merger{
		Primary: primaryPolicy(s.Sheets),
		Timeout: s.Oracle.TimeoutDuration(),
	}
	if !a.config.oracleRequested() {
		logger.Debug("All suggestion calls disabled.")
		return m, nopCloser{}, nil
	}

	var backend suggester
	var closer io.Closer = nopCloser{}
	if a.config.Suggestions != "" {
		o, err := static.Load(a.fs, a.config.Suggestions)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load suggestions: %w", err)
		}
		logger.Info("Using static suggestions.", "path", a.config.Suggestions)
		backend = o
	} else {
		model := s.Oracle.Model
		if a.config.Model != "" {
			model = a.config.Model
		}
		client, err := openai.NewFromEnv(s.Oracle.APIKeyEnv, openai.Options{
			Endpoint: s.Oracle.Endpoint,
			Model:    model,
			Language: s.Oracle.Language,
			Timeout:  s.Oracle.TimeoutDuration(),
		})
		if errors.Is(err, openai.ErrMissingAPIKey) {
			logger.Warn("No API key found; suggestion calls are skipped.", "env", s.Oracle.APIKeyEnv)
			return m, nopCloser{}, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create suggestion client: %w", err)
		}
		logger.Info("Using remote suggestions.", "endpoint", s.Oracle.Endpoint, "model", model)
		backend, closer = client, client
	}

	if a.config.AIHeader {
		m.Headers = backend
	}
	if a.config.AIOrder {
		m.Orders = backend
	}
	if a.config.AISheet {
		m.Sheets = backend
	}
	return m, closer, nil
}

func primaryPolicy(s config.SheetSettings) layout.PrimaryPolicy {
	return layout.PrimaryPolicy{
		Preferred:          s.PreferredPrimaryTypes,
		ExcludedSuffixes:   s.ExcludedPrimarySuffixes,
		ExcludedSubstrings: s.ExcludedPrimarySubstrings,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
