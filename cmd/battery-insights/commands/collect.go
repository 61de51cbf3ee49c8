package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/ubuntu/battery-insights/internal/collector"
	"github.com/ubuntu/battery-insights/internal/constants"
	"github.com/ubuntu/battery-insights/internal/pipeline"
	"github.com/ubuntu/battery-insights/internal/render"
)

type collectConfig struct {
	Period     uint   `mapstructure:"period"`
	Force      bool   `mapstructure:"force"`
	DryRun     bool   `mapstructure:"dry-run"`
	MaxReports uint   `mapstructure:"max-reports"`
	Format     string `mapstructure:"format"`
}

func installCollectCmd(app *App) error {
	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Generate battery insights and store them locally",
		Long: `Generate battery insights and store them in the cache directory.

Only one report is kept per period, unless --force is given. The oldest reports are
removed once there are more than --max-reports of them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running collect command")
			return app.collectRun(cmd.Context())
		},
	}

	collectCmd.Flags().UintVarP(&app.config.Collect.Period, "period", "p", 1, "the minimum period in seconds between 2 collected reports")
	collectCmd.Flags().BoolVarP(&app.config.Collect.Force, "force", "f", false, "collect even if a report already exists for the current period, replacing it")
	collectCmd.Flags().BoolVarP(&app.config.Collect.DryRun, "dry-run", "d", false, "print the collected insights instead of writing them to disk")
	collectCmd.Flags().UintVar(&app.config.Collect.MaxReports, "max-reports", constants.MaxReports, "maximum number of reports kept on disk")
	collectCmd.Flags().StringVar(&app.config.Collect.Format, "format", string(render.Text), "output format of a dry run (text, json, yaml, toml)")

	if err := app.bindFlags(collectCmd, "collect", "period", "force", "dry-run", "max-reports", "format"); err != nil {
		return err
	}

	app.cmd.AddCommand(collectCmd)
	return nil
}

// collectRun runs the collect command.
func (a *App) collectRun(ctx context.Context) error {
	c := a.config.Collect

	format, err := render.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	cfg := collector.Config{
		Period:     c.Period,
		Force:      c.Force,
		DryRun:     c.DryRun,
		MaxReports: c.MaxReports,
	}

	return cfg.Run(ctx, a.config.CacheDir, a.newPipeline(slog.Default()), func(col collector.Collector, r pipeline.Result) error {
		if err := col.Write(r); err != nil {
			return err
		}
		if col.DryRun() {
			return render.Write(a.opts.out, format, []pipeline.Result{r}, render.WithColor(render.ColorEnabled(a.opts.out)))
		}

		slog.Info("Battery insights collected", "id", r.ID, "dir", col.ReportsDir())
		return nil
	}, a.opts.newCollector)
}
