package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// ProgramOptions contains options for running the dashboard
type ProgramOptions struct {
	Model Options

	// WatchPath, when set, is watched for changes. OnChange rereads the
	// config; a new fetch cycle with its settings starts only if it succeeds.
	// Without OnChange a change just reloads.
	WatchPath string
	OnChange  func() (Settings, error)

	Logger *slog.Logger
}

// IsTerminal reports whether stdout is a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Run shows the dashboard until the user quits or ctx is cancelled
func Run(ctx context.Context, opts ProgramOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := tea.NewProgram(NewModel(opts.Model), tea.WithAltScreen(), tea.WithContext(ctx))

	if opts.WatchPath != "" {
		watcher, err := NewFileWatcher(opts.WatchPath, func() {
			if opts.OnChange == nil {
				logger.Info("config changed, reloading", slog.String("path", opts.WatchPath))
				p.Send(Reload())
				return
			}
			settings, err := opts.OnChange()
			if err != nil {
				logger.Error("reload failed", slog.String("error", err.Error()))
				return
			}
			logger.Info("config changed, reloading", slog.String("path", opts.WatchPath))
			p.Send(Apply(settings))
		}, logger)
		if err != nil {
			return err
		}
		defer watcher.Close()

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go watcher.Start(watchCtx)
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run UI: %w", err)
	}
	return nil
}
