// Package report handles the result files stored by the collector.
//
// Each file holds one JSON encoded result and is named after the unix timestamp of the start of
// the period window it was collected in.
package report

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ubuntu/battery-insights/internal/constants"
	"github.com/ubuntu/battery-insights/internal/fileutils"
	"github.com/ubuntu/battery-insights/internal/pipeline"
)

var (
	// ErrInvalidPeriod is returned for a period which is zero or negative.
	ErrInvalidPeriod = errors.New("period must be a positive number of seconds")

	// ErrInvalidReportExt is returned for files not ending with the result extension.
	ErrInvalidReportExt = errors.New("not a result file extension")

	// ErrInvalidReportName is returned when the file name is not a unix timestamp.
	ErrInvalidReportName = errors.New("result file name is not a timestamp")

	// ErrNoReport is returned when a directory holds no report.
	ErrNoReport = errors.New("no report found")
)

// Report is a stored result file.
type Report struct {
	Path      string
	Name      string // base name, with extension
	TimeStamp int64  // start of the period window the result belongs to
}

// New parses path into a Report. The file system is not touched.
func New(path string) (Report, error) {
	name := filepath.Base(path)
	stem, ok := strings.CutSuffix(name, constants.ReportExt)
	if !ok {
		return Report{}, ErrInvalidReportExt
	}

	ts, err := strconv.ParseInt(stem, 10, 64)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrInvalidReportName, err)
	}
	return Report{Path: path, Name: name, TimeStamp: ts}, nil
}

// Load decodes the stored result.
func (r Report) Load() (res pipeline.Result, err error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return res, fmt.Errorf("could not open result %s: %v", r.Name, err)
	}
	defer f.Close()

	if err := fileutils.ParseJSON(f, &res); err != nil {
		return pipeline.Result{}, fmt.Errorf("result %s: %v", r.Name, err)
	}
	return res, nil
}

// GetPeriodStart rounds t down to the start of its window of period seconds.
func GetPeriodStart(period int, t time.Time) (int64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	sec := t.Unix()
	return sec - sec%int64(period), nil
}

// GetForPeriod returns the newest report of dir stamped in [start, start+period) of the window
// holding t. The zero Report means the window is still free.
func GetForPeriod(dir string, t time.Time, period int) (Report, error) {
	start, err := GetPeriodStart(period, t)
	if err != nil {
		return Report{}, err
	}
	end := start + int64(period)

	reports, err := GetAll(dir)
	if err != nil {
		return Report{}, err
	}

	// Sorted oldest first, so scan backwards.
	for i := len(reports) - 1; i >= 0; i-- {
		if ts := reports[i].TimeStamp; ts >= start && ts < end {
			return reports[i], nil
		}
	}
	return Report{}, nil
}

// GetAll lists the reports stored directly in dir, oldest first.
// Anything else in dir, subdirectories included, is ignored.
func GetAll(dir string) ([]Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not list reports: %v", err)
	}

	reports := make([]Report, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		r, err := New(filepath.Join(dir, e.Name()))
		if err != nil {
			slog.Info("Ignoring file which is not a report", "file", e.Name(), "reason", err)
			continue
		}
		reports = append(reports, r)
	}

	slices.SortFunc(reports, func(a, b Report) int { return cmp.Compare(a.TimeStamp, b.TimeStamp) })
	return reports, nil
}

// Latest returns the most recent report of a directory, or ErrNoReport.
func Latest(dir string) (Report, error) {
	reports, err := GetAll(dir)
	if err != nil {
		return Report{}, err
	}
	if len(reports) == 0 {
		return Report{}, fmt.Errorf("%w in %s", ErrNoReport, dir)
	}
	return reports[len(reports)-1], nil
}

// Cleanup removes the oldest reports of a directory so that at most maxReports remain.
func Cleanup(dir string, maxReports uint) error {
	reports, err := GetAll(dir)
	if err != nil {
		return err
	}
	extra := len(reports) - int(maxReports)
	if extra <= 0 {
		return nil
	}

	for _, r := range reports[:extra] {
		if err := os.Remove(r.Path); err != nil {
			return fmt.Errorf("failed to remove old report %s: %v", r.Name, err)
		}
		slog.Debug("Removed old report", "file", r.Path)
	}
	return nil
}
