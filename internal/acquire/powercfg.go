package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ubuntu/battery-insights/internal/cmdutils"
	"github.com/ubuntu/battery-insights/internal/constants"
	"github.com/ubuntu/decorate"
)

// Powercfg generates battery reports with the powercfg utility.
// Powercfg implements Acquirer.
type Powercfg struct {
	log     *slog.Logger
	cmd     []string
	days    int
	timeout time.Duration
}

// Options are the variadic options available to Powercfg.
type Options func(*options)

type options struct {
	log     *slog.Logger
	cmd     []string
	days    int
	timeout time.Duration
}

// WithDays sets how many days of usage history the report covers.
func WithDays(days int) Options {
	return func(o *options) {
		o.days = days
	}
}

// WithTimeout sets how long powercfg may run.
func WithTimeout(timeout time.Duration) Options {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// NewPowercfg returns a new Powercfg.
func NewPowercfg(args ...Options) Powercfg {
	opts := &options{
		log:     slog.Default(),
		cmd:     []string{"powercfg"},
		days:    constants.DefaultReportDays,
		timeout: constants.DefaultAcquireTimeout,
	}

	for _, opt := range args {
		opt(opts)
	}

	if opts.days <= 0 {
		opts.days = constants.DefaultReportDays
	}
	if opts.timeout <= 0 {
		opts.timeout = constants.DefaultAcquireTimeout
	}

	return Powercfg{
		log:     opts.log,
		cmd:     opts.cmd,
		days:    opts.days,
		timeout: opts.timeout,
	}
}

// String returns the name of the tool.
func (p Powercfg) String() string {
	return p.cmd[0]
}

// Acquire runs powercfg to write an XML battery report to outputPath.
// A missing tool, a failure, a timeout or an absent or empty output returns ErrAcquisition.
func (p Powercfg) Acquire(ctx context.Context, outputPath string) (err error) {
	defer decorate.OnError(&err, "could not generate battery report with %s", p.cmd[0])

	args := append([]string{}, p.cmd[1:]...)
	args = append(args, "/batteryreport", "/xml", "/output", outputPath, "/duration", strconv.Itoa(p.days))

	p.log.Debug("Running battery report tool", "cmd", p.cmd[0], "args", args, "timeout", p.timeout)
	stdout, stderr, err := cmdutils.RunWithTimeout(ctx, p.timeout, p.cmd[0], args...)
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %v: %s", ErrAcquisition, err, msg)
		}
		return fmt.Errorf("%w: %v", ErrAcquisition, err)
	}
	if stderr.Len() > 0 {
		p.log.Info("Battery report tool wrote to stderr", "stderr", strings.TrimSpace(stderr.String()))
	}
	p.log.Debug("Battery report tool completed", "stdout", strings.TrimSpace(stdout.String()))

	return checkOutput(outputPath)
}
