// Package commands is the command line interface of battery-insights.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/ubuntu/battery-insights/internal/acquire"
	"github.com/ubuntu/battery-insights/internal/cli"
	"github.com/ubuntu/battery-insights/internal/collector"
	"github.com/ubuntu/battery-insights/internal/constants"
	"github.com/ubuntu/battery-insights/internal/exporter"
	"github.com/ubuntu/battery-insights/internal/pipeline"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	ctx    context.Context
	cancel context.CancelFunc

	serverMu sync.Mutex
	server   *exporter.Server
	ready    chan struct{}

	opts options
}

// appConfig holds the configuration of the application.
type appConfig struct {
	Verbosity    int           `mapstructure:"verbose"`
	CacheDir     string        `mapstructure:"cache-dir"`
	SourceReport string        `mapstructure:"source-report"`
	Days         int           `mapstructure:"days"`
	Timeout      time.Duration `mapstructure:"timeout"`
	KeepReport   bool          `mapstructure:"keep-report"`

	Collect collectConfig `mapstructure:"collect"`
	Show    showConfig    `mapstructure:"show"`
	Serve   serveConfig   `mapstructure:"serve"`
}

type options struct {
	acquirer     acquire.Acquirer
	newCollector collector.Factory
	newScreen    func() (tcell.Screen, error)
	out          io.Writer
}

// Options represents an optional function to override App default values.
type Options func(*options)

// New creates a new App instance with default values.
func New(args ...Options) (*App, error) {
	opts := options{
		newCollector: collector.New,
		newScreen:    defaultScreen,
		out:          os.Stdout,
	}
	for _, opt := range args {
		opt(&opts)
	}

	a := App{opts: opts, ready: make(chan struct{})}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.cmd = &cobra.Command{
		Use:   constants.CmdName + " [COMMAND]",
		Short: "Battery health and usage insights",
		Long: `Battery insights reads the battery report of the platform tool, and derives
health, degradation, cycles, discharge rates and time estimates from it.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetVerbosity(a.config.Verbosity) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.CmdName, a.cmd, a.viper); err != nil {
				return err
			}
			if err := cli.Unmarshal(a.viper, &a.config); err != nil {
				return err
			}
			slog.Debug("Got app config", "config", a.config)

			cli.SetVerbosity(a.config.Verbosity) // Update verbosity after loading config if necessary
			return nil
		},
	}
	a.viper = viper.New()
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	installRootCmd(&a)
	cli.InstallConfigFlag(a.cmd)
	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	for _, install := range []func(*App) error{
		installCollectCmd,
		installShowCmd,
		installViewCmd,
		installServeCmd,
	} {
		if err := install(&a); err != nil {
			return nil, err
		}
	}
	a.installVersion()

	return &a, nil
}

func installRootCmd(app *App) {
	flags := app.cmd.PersistentFlags()

	flags.CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	flags.StringVar(&app.config.CacheDir, "cache-dir", constants.GetDefaultCachePath(), "directory where collected reports are stored")
	flags.StringVarP(&app.config.SourceReport, "source-report", "s", "", "read this battery report instead of running the platform tool")
	flags.IntVar(&app.config.Days, "days", constants.DefaultReportDays, "number of days of history requested from the platform tool")
	flags.DurationVar(&app.config.Timeout, "timeout", constants.DefaultAcquireTimeout, "maximum duration of the platform tool")
	flags.BoolVar(&app.config.KeepReport, "keep-report", false, "keep the acquired battery report instead of removing it")

	if err := app.cmd.MarkPersistentFlagDirname("cache-dir"); err != nil {
		panic(fmt.Sprintf("failed to mark cache-dir flag as directory: %v", err))
	}
	if err := app.cmd.MarkPersistentFlagFilename("source-report", "xml"); err != nil {
		panic(fmt.Sprintf("failed to mark source-report flag as filename: %v", err))
	}
}

// bindFlags binds the named flags of cmd to their key under section in the configuration.
func (a *App) bindFlags(cmd *cobra.Command, section string, names ...string) error {
	for _, name := range names {
		if err := a.viper.BindPFlag(section+"."+name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("could not bind flag %q: %v", name, err)
		}
	}
	return nil
}

// newPipeline returns the pipeline configured by the global flags, logging to log.
func (a *App) newPipeline(log *slog.Logger) pipeline.Pipeline {
	acq := a.opts.acquirer
	switch {
	case acq != nil:
	case a.config.SourceReport != "":
		acq = acquire.File{Path: a.config.SourceReport}
	default:
		acq = acquire.NewPowercfg(
			acquire.WithDays(a.config.Days),
			acquire.WithTimeout(a.config.Timeout),
			acquire.WithLogger(log))
	}

	return pipeline.New(
		pipeline.WithAcquirer(acq),
		pipeline.WithKeepReport(a.config.KeepReport),
		pipeline.WithLogger(log))
}

func defaultScreen() (tcell.Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Run executes the command and associated process, returning an error if any.
func (a *App) Run() error {
	defer a.cancel()
	return a.cmd.ExecuteContext(a.ctx)
}

// UsageError returns if the error is a command parsing or runtime one.
func (a *App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// Quit stops the running command. A serving exporter is given time to finish in-flight requests.
func (a *App) Quit() {
	a.serverMu.Lock()
	s := a.server
	a.serverMu.Unlock()

	if s != nil {
		s.Quit(false)
		return
	}
	a.cancel()
}

// RootCmd returns the root command.
func (a *App) RootCmd() cobra.Command {
	return *a.cmd
}
