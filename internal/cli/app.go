package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/medsplain/medsplain/internal/api"
	"github.com/medsplain/medsplain/internal/config"
	"github.com/medsplain/medsplain/internal/log"
	"github.com/medsplain/medsplain/internal/orchestrator"
	"github.com/medsplain/medsplain/internal/report"
	"github.com/medsplain/medsplain/internal/session"
	"github.com/medsplain/medsplain/internal/ui"
)

// app bundles what every command needs.
type app struct {
	home   string
	cfg    *config.Config
	logger *log.Logger
	orch   *orchestrator.Orchestrator
}

func resolveHome() (string, error) {
	if homeDir != "" {
		return homeDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return home, nil
}

func newApp() (*app, error) {
	home, err := resolveHome()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(home)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level, err := orchestrator.ParseLevel(cfg.Assistant.Level)
	if err != nil {
		return nil, fmt.Errorf("assistant.level: %w", err)
	}

	var logger *log.Logger
	if cfg.Logging.Enabled {
		logger, err = log.NewLogger(home)
		if err != nil {
			// Logging is optional; run without it.
			fmt.Fprintf(os.Stderr, "Warning: event log disabled: %v\n", err)
			logger = nil
		}
	}

	client := api.NewClient(cfg.API.BaseURL, api.WithTimeout(cfg.Timeout()))
	orch := orchestrator.New(client, session.New(), orchestrator.Options{
		IncludeInteractions: cfg.Lookup.IncludeInteractions,
		IncludeSideEffects:  cfg.Lookup.IncludeSideEffects,
		Level:               level,
		Telemetry:           cfg.Telemetry.Enabled,
		UserID:              cfg.Telemetry.UserID,
		TelemetryPerMinute:  cfg.Telemetry.MaxPerMinute,
		Logger:              logger,
	})

	return &app{home: home, cfg: cfg, logger: logger, orch: orch}, nil
}

// oneShot runs a single intent and prints what it added to the history.
// Progress goes to errOut under label. Failures print the error card and
// return errReported.
func (a *app) oneShot(ctx context.Context, out, errOut io.Writer, label string, do func(context.Context) error) error {
	sess := a.orch.Session()
	from := len(sess.History())

	progress := ui.NewProgress(errOut, label)
	progress.Start()
	err := do(ctx)
	progress.Finish(err)

	for _, m := range sess.History()[from:] {
		if m.Role == session.RoleUser || m.Status == session.StatusError {
			continue
		}
		fmt.Fprint(out, report.FormatMessage(m))
	}

	if err != nil {
		if op, ok := orchestrator.Operation(err); ok {
			fmt.Fprint(errOut, report.FormatError(op))
			return errReported
		}
		return err
	}
	return nil
}
