// Package pipeline turns battery report documents into results holding their records and metrics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ubuntu/battery-insights/internal/acquire"
	"github.com/ubuntu/battery-insights/internal/analytics"
	"github.com/ubuntu/battery-insights/internal/batteryreport"
	"github.com/ubuntu/battery-insights/internal/constants"
	"github.com/ubuntu/decorate"
)

var (
	// ErrAcquisition is returned when no document was produced.
	ErrAcquisition = errors.New("battery report acquisition failed")
	// ErrParse is returned when the document is not well-formed. It also matches batteryreport.ErrParse.
	ErrParse = errors.New("battery report could not be parsed")
)

// Result holds everything generated from one battery report.
type Result struct {
	ID          uuid.UUID            `json:"id"`
	GeneratedAt time.Time            `json:"generatedAt"`
	Source      string               `json:"source"`
	Report      batteryreport.Report `json:"report"`
	Summary     analytics.Summary    `json:"summary"`
}

// Pipeline generates results from freshly acquired battery reports.
// It keeps no state between generations.
type Pipeline struct {
	acquirer   acquire.Acquirer
	tempDir    string
	keepReport bool
	namespace  string
	now        func() time.Time
	log        *slog.Logger
}

// Options are the variadic options available to the Pipeline.
type Options func(*options)

type options struct {
	acquirer   acquire.Acquirer
	tempDir    string
	keepReport bool
	namespace  string
	now        func() time.Time
	log        *slog.Logger
}

// WithAcquirer sets how documents are acquired. Defaults to powercfg.
func WithAcquirer(a acquire.Acquirer) Options {
	return func(o *options) {
		o.acquirer = a
	}
}

// WithTempDir sets where transient documents are created. Defaults to the system temporary directory.
func WithTempDir(dir string) Options {
	return func(o *options) {
		o.tempDir = dir
	}
}

// WithKeepReport keeps the transient document after generation.
func WithKeepReport(keep bool) Options {
	return func(o *options) {
		o.keepReport = keep
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// WithClock overrides the function stamping results.
func WithClock(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}

// New returns a new Pipeline.
func New(args ...Options) Pipeline {
	opts := &options{
		namespace: constants.ReportNamespace,
		now:       time.Now,
		log:       slog.Default(),
	}

	for _, opt := range args {
		opt(opts)
	}

	if opts.acquirer == nil {
		opts.acquirer = acquire.NewPowercfg()
	}

	return Pipeline{
		acquirer:   opts.acquirer,
		tempDir:    opts.tempDir,
		keepReport: opts.keepReport,
		namespace:  opts.namespace,
		now:        opts.now,
		log:        opts.log,
	}
}

// Generate acquires a new document and returns the result computed from it.
//
// A failed acquisition returns ErrAcquisition and an invalid document returns ErrParse.
// The transient document is removed unless the pipeline keeps reports.
func (p Pipeline) Generate(ctx context.Context) (r Result, err error) {
	defer decorate.OnError(&err, "could not generate battery insights")

	dir, err := os.MkdirTemp(p.tempDir, constants.CmdName+"-*")
	if err != nil {
		return Result{}, fmt.Errorf("%w: could not create temporary directory: %v", ErrAcquisition, err)
	}
	path := filepath.Join(dir, "battery-report.xml")
	defer func() {
		if p.keepReport {
			p.log.Info("Battery report kept", "path", path)
			return
		}
		if err := os.RemoveAll(dir); err != nil {
			p.log.Warn("Failed to remove temporary battery report", "path", dir, "error", err)
		}
	}()

	p.log.Debug("Acquiring battery report", "source", describe(p.acquirer), "path", path)
	if err := p.acquirer.Acquire(ctx, path); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}

	return p.fromFile(path, describe(p.acquirer))
}

// FromFile returns the result computed from the existing document at path.
// Failing to read the document returns ErrAcquisition and an invalid document returns ErrParse.
func (p Pipeline) FromFile(path string) (r Result, err error) {
	defer decorate.OnError(&err, "could not read battery insights from %s", path)

	return p.fromFile(path, path)
}

func (p Pipeline) fromFile(path, source string) (Result, error) {
	root, err := batteryreport.ParseFile(path)
	if errors.Is(err, batteryreport.ErrParse) {
		return Result{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}

	report := batteryreport.Extract(root, p.namespace)
	p.log.Debug("Extracted battery report", "batteries", len(report.Batteries), "usage_entries", len(report.RecentUsage))
	if len(report.Batteries) == 0 {
		p.log.Warn("Battery report does not list any battery", "source", source)
	}

	return Result{
		ID:          uuid.New(),
		GeneratedAt: p.now(),
		Source:      source,
		Report:      report,
		Summary:     analytics.Summarize(report),
	}, nil
}

func describe(a acquire.Acquirer) string {
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", a)
}
