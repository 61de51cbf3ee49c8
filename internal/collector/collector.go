// Package collector is the implementation of the collector component.
// The collector component is responsible for generating battery insights and then writing them to disk.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ubuntu/battery-insights/internal/constants"
	"github.com/ubuntu/battery-insights/internal/fileutils"
	"github.com/ubuntu/battery-insights/internal/pipeline"
	"github.com/ubuntu/battery-insights/internal/report"
	"github.com/ubuntu/decorate"
)

// ErrDuplicateReport is returned when a report already exists for the current period.
var ErrDuplicateReport = errors.New("report already exists for this period")

type timeProvider interface {
	Now() time.Time
}

type realTimeProvider struct{}

func (realTimeProvider) Now() time.Time {
	return time.Now()
}

// Generator produces battery insights results.
type Generator interface {
	Generate(ctx context.Context) (pipeline.Result, error)
}

// Collector is an abstraction of the collector component.
type Collector struct {
	gen    Generator
	period int
	dryRun bool

	reportsDir string
	maxReports uint
	time       time.Time
}

type options struct {
	maxReports   uint
	timeProvider timeProvider
}

// Options represents an optional function to override Collector default values.
type Options func(*options)

// WithMaxReports sets the maximum number of reports kept on disk.
func WithMaxReports(maxReports uint) Options {
	return func(o *options) {
		o.maxReports = maxReports
	}
}

// Config represents the collector specific data needed to collect.
type Config struct {
	Period     uint
	Force      bool
	DryRun     bool
	MaxReports uint
}

// Factory represents a function that creates a new Collector.
type Factory = func(gen Generator, cachePath string, period uint, dryRun bool, args ...Options) (Collector, error)

// Run creates a collector then collects using it based off the given config and arguments.
func (c Config) Run(ctx context.Context, cacheDir string, gen Generator, writer func(Collector, pipeline.Result) error, factory Factory) error {
	if cacheDir == "" {
		cacheDir = constants.GetDefaultCachePath()
	}
	if c.Period == 0 {
		c.Period = 1
	}

	var opts []Options
	if c.MaxReports != 0 {
		opts = append(opts, WithMaxReports(c.MaxReports))
	}

	col, err := factory(gen, cacheDir, c.Period, c.DryRun, opts...)
	if err != nil {
		return err
	}

	result, err := col.Compile(ctx, c.Force)
	if err != nil {
		return err
	}

	return writer(col, result)
}

// New returns a new Collector.
//
// The internal time used for collecting and writing reports is the current time at the moment of creation of the Collector.
func New(gen Generator, cachePath string, period uint, dryRun bool, args ...Options) (Collector, error) {
	slog.Debug("Creating new collector", "period", period, "dryRun", dryRun)

	if gen == nil {
		return Collector{}, errors.New("generator cannot be nil")
	}

	if period > math.MaxInt {
		return Collector{}, errors.New("period is too large")
	}

	if cachePath == "" {
		return Collector{}, errors.New("cache path cannot be an empty string")
	}

	opts := options{
		maxReports:   constants.MaxReports,
		timeProvider: realTimeProvider{},
	}
	for _, opt := range args {
		opt(&opts)
	}

	return Collector{
		gen:    gen,
		period: int(period),
		dryRun: dryRun,

		time:       opts.timeProvider.Now(),
		reportsDir: filepath.Join(cachePath, constants.ReportsFolder),
		maxReports: opts.maxReports,
	}, nil
}

// ReportsDir returns the directory reports are written to.
func (c Collector) ReportsDir() string {
	return c.reportsDir
}

// DryRun returns true if the collector does not write reports.
func (c Collector) DryRun() bool {
	return c.dryRun
}

// Compile checks if appropriate to make a new report, and if so, generates a new result.
//
// Checks if a report already exists for the current period, and returns ErrDuplicateReport if it does.
func (c Collector) Compile(ctx context.Context, force bool) (result pipeline.Result, err error) {
	slog.Debug("Collecting battery insights", "force", force)
	defer decorate.OnError(&err, "battery insights compile failed")

	if err := os.MkdirAll(c.reportsDir, 0750); err != nil {
		return pipeline.Result{}, fmt.Errorf("failed to create reports directory: %v", err)
	}

	if !force {
		duplicate, err := c.duplicateExists()
		if err != nil {
			return pipeline.Result{}, err
		}
		if duplicate {
			return pipeline.Result{}, ErrDuplicateReport
		}
	}

	result, err = c.gen.Generate(ctx)
	if err != nil {
		return pipeline.Result{}, err
	}
	slog.Info("Battery insights compiled", "id", result.ID, "batteries", len(result.Report.Batteries))

	return result, nil
}

// Write writes the result to disk, and cleans up old reports.
// Does not check for duplicates, as this should be done in Compile.
//
// If the dryRun is true, then Write does nothing.
func (c Collector) Write(result pipeline.Result) (err error) {
	slog.Debug("Writing battery insights", "dryRun", c.dryRun)
	defer decorate.OnError(&err, "battery insights write failed")

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %v", err)
	}

	if c.dryRun {
		slog.Info("Dry run, not writing battery insights report")
		return nil
	}

	if err := os.MkdirAll(c.reportsDir, 0750); err != nil {
		return fmt.Errorf("failed to create reports directory: %v", err)
	}

	if err := c.write(data); err != nil {
		return fmt.Errorf("failed to write battery insights report: %v", err)
	}

	if err := report.Cleanup(c.reportsDir, c.maxReports); err != nil {
		return fmt.Errorf("failed to clean up old reports: %v", err)
	}

	return nil
}

// duplicateExists returns true if a report for the current period already exists.
func (c Collector) duplicateExists() (bool, error) {
	r, err := report.GetForPeriod(c.reportsDir, c.time, c.period)
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate report for period: %w", err)
	}
	if r.Name != "" {
		slog.Info("Duplicate report already exists", "file", r.Path)
		return true, nil
	}
	return false, nil
}

// write writes the report to disk, with the appropriate name.
func (c Collector) write(data []byte) error {
	time, err := report.GetPeriodStart(c.period, c.time)
	if err != nil {
		return fmt.Errorf("failed to get report name: %v", err)
	}

	reportPath := filepath.Join(c.reportsDir, fmt.Sprintf("%d%s", time, constants.ReportExt))
	if err := fileutils.AtomicWrite(reportPath, data); err != nil {
		return fmt.Errorf("failed to write to disk: %v", err)
	}
	slog.Info("Battery insights report written", "file", reportPath)

	return nil
}
