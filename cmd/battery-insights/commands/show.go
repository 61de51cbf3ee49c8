package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"github.com/ubuntu/battery-insights/internal/constants"
	"github.com/ubuntu/battery-insights/internal/fileutils"
	"github.com/ubuntu/battery-insights/internal/pipeline"
	"github.com/ubuntu/battery-insights/internal/render"
	"github.com/ubuntu/battery-insights/internal/report"
)

// ErrUnsupportedFile is returned when a file is neither a battery report nor a collected result.
var ErrUnsupportedFile = errors.New("unsupported file, expected a .xml battery report or a .json result")

type showConfig struct {
	Format string `mapstructure:"format"`
}

func installShowCmd(app *App) error {
	showCmd := &cobra.Command{
		Use:   "show [FILE|GLOB...]",
		Short: "Print battery insights",
		Long: `Print battery insights of battery reports (.xml) or collected results (.json).

Arguments may be glob patterns, such as "reports/**/*.json".
Without argument, the most recently collected result is printed.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running show command")
			return app.showRun(args)
		},
	}

	showCmd.Flags().StringVar(&app.config.Show.Format, "format", string(render.Text), fmt.Sprintf("output format (%s)", strings.Join(formatNames(), ", ")))
	if err := app.bindFlags(showCmd, "show", "format"); err != nil {
		return err
	}

	app.cmd.AddCommand(showCmd)
	return nil
}

// showRun runs the show command.
func (a *App) showRun(args []string) error {
	format, err := render.ParseFormat(a.config.Show.Format)
	if err != nil {
		return err
	}

	var results []pipeline.Result
	if len(args) == 0 {
		r, err := a.lastCollected()
		if err != nil {
			return err
		}
		results = append(results, r)
	}

	for _, arg := range args {
		paths, err := expand(arg)
		if err != nil {
			return err
		}
		for _, p := range paths {
			r, err := a.loadResult(p)
			if err != nil {
				return err
			}
			results = append(results, r)
		}
	}

	return render.Write(a.opts.out, format, results, render.WithColor(render.ColorEnabled(a.opts.out)))
}

// lastCollected returns the most recent result of the cache directory.
func (a *App) lastCollected() (pipeline.Result, error) {
	dir := filepath.Join(a.config.CacheDir, constants.ReportsFolder)
	r, err := report.Latest(dir)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("no collected report in %s, run collect first: %w", dir, err)
	}
	return r.Load()
}

// expand returns the files matching arg, in lexical order, when it is a glob pattern.
func expand(arg string) ([]string, error) {
	if !strings.ContainsAny(arg, "*?[{") {
		return []string{arg}, nil
	}

	matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %v", arg, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no file matches %q", arg)
	}
	slices.Sort(matches)
	return matches, nil
}

// loadResult returns the result of a battery report or reads a collected one.
func (a *App) loadResult(path string) (r pipeline.Result, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return a.newPipeline(slog.Default()).FromFile(path)
	case constants.ReportExt:
		f, err := os.Open(path)
		if err != nil {
			return r, fmt.Errorf("could not open %s: %v", path, err)
		}
		defer f.Close()

		if err := fileutils.ParseJSON(f, &r); err != nil {
			return r, fmt.Errorf("could not read %s: %v", path, err)
		}
		return r, nil
	default:
		return r, fmt.Errorf("%s: %w", path, ErrUnsupportedFile)
	}
}

func formatNames() []string {
	var names []string
	for _, f := range render.Formats() {
		names = append(names, string(f))
	}
	return names
}
