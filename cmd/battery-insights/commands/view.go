package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ubuntu/battery-insights/internal/cli"
	"github.com/ubuntu/battery-insights/internal/constants"
	"github.com/ubuntu/battery-insights/internal/pipeline"
	"github.com/ubuntu/battery-insights/internal/tui"
)

func installViewCmd(app *App) error {
	viewCmd := &cobra.Command{
		Use:   "view [FILE]",
		Short: "Browse battery insights in the terminal",
		Long: `Browse battery insights in an interactive terminal view.

Without argument, a new battery report is generated and can be regenerated with "r".
A battery report (.xml) is read again on regeneration and whenever the file changes.
A collected result (.json) is only shown.

Logs are written to the view.log file of the cache directory while the view is open.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running view command")
			return app.viewRun(cmd.Context(), args)
		},
	}

	app.cmd.AddCommand(viewCmd)
	return nil
}

// viewRun runs the view command.
func (a *App) viewRun(ctx context.Context, args []string) error {
	log, closeLog := a.viewLogger()
	defer closeLog()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	latest := &pipeline.Latest{}
	opts := []tui.Options{tui.WithLogger(log)}

	p := a.newPipeline(log)
	switch {
	case len(args) == 0:
		opts = append(opts, tui.WithGenerate(p.Generate))
	case strings.EqualFold(filepath.Ext(args[0]), ".xml"):
		path := args[0]
		opts = append(opts, tui.WithGenerate(func(context.Context) (pipeline.Result, error) {
			return p.FromFile(path)
		}))

		changed, err := watchFile(ctx, path, log)
		if err != nil {
			slog.Warn("Not reloading the battery report on change", "error", err)
			break
		}
		opts = append(opts, tui.WithRefresh(changed))
	default:
		r, err := a.loadResult(args[0])
		if err != nil {
			return err
		}
		if _, err := latest.Update(ctx, func(context.Context) (pipeline.Result, error) { return r, nil }); err != nil {
			return err
		}
	}

	screen, err := a.opts.newScreen()
	if err != nil {
		return fmt.Errorf("could not open terminal screen: %v", err)
	}
	defer screen.Fini()

	return tui.New(screen, latest, opts...).Run(ctx)
}

// viewLogger returns the logger used while the terminal screen is active.
// Anything written to stderr would draw over the screen, so records go to the view log file of
// the cache directory instead, or nowhere if it cannot be opened.
func (a *App) viewLogger() (*slog.Logger, func()) {
	path := filepath.Join(a.config.CacheDir, constants.ViewLogFile)

	f, err := openLog(path)
	if err != nil {
		slog.Warn("Discarding logs of the terminal view", "error", err)
		return slog.New(slog.DiscardHandler), func() {}
	}
	slog.Info("Terminal view logs to file", "path", path)

	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cli.Level(a.config.Verbosity)})), func() {
		if err := f.Close(); err != nil {
			slog.Warn("Failed to close view log file", "error", err)
		}
	}
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("could not create log directory: %v", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %v", err)
	}
	return f, nil
}
