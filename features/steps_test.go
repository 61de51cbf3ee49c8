// Package features runs the behaviour scenarios of battery insights.
package features

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/ubuntu/battery-insights/internal/acquire"
	"github.com/ubuntu/battery-insights/internal/analytics"
	"github.com/ubuntu/battery-insights/internal/batteryreport"
	"github.com/ubuntu/battery-insights/internal/pipeline"
	"github.com/ubuntu/battery-insights/internal/testutils"
)

const tolerance = 1e-9

// scenario holds the state shared by the steps of one scenario.
type scenario struct {
	dir string

	battery batteryreport.BatteryInfo
	entries []batteryreport.UsageEntry

	reportPath string
	latest     pipeline.Latest
	first      pipeline.Result
	result     pipeline.Result
	err        error
}

func (s *scenario) aBattery(design, full string) error {
	s.battery = batteryreport.BatteryInfo{DesignCapacity: design, FullChargeCapacity: full}
	return nil
}

func (s *scenario) itsHealthIs(want float64) error {
	return near("health", analytics.Health(s.battery), want)
}

func (s *scenario) itsDegradationIs(want float64) error {
	return near("degradation", analytics.Degradation(s.battery), want)
}

func (s *scenario) healthAndDegradationSumTo100() error {
	return near("health + degradation", analytics.Health(s.battery)+analytics.Degradation(s.battery), 100)
}

// theUsageEntries reads one entry per row. An empty cell is a missing attribute.
func (s *scenario) theUsageEntries(table *godog.Table) error {
	if len(table.Rows) == 0 {
		return errors.New("usage entries need a header row")
	}
	header := table.Rows[0].Cells

	s.entries = nil
	for _, row := range table.Rows[1:] {
		var attrs []batteryreport.Field
		for i, cell := range row.Cells {
			if cell.Value == "" {
				continue
			}
			attrs = append(attrs, batteryreport.Field{Name: header[i].Value, Value: cell.Value})
		}
		s.entries = append(s.entries, batteryreport.NewUsageEntry(attrs...))
	}
	return nil
}

func (s *scenario) noUsageEntry() error {
	s.entries = nil
	return nil
}

func (s *scenario) cycleCountIs(want int) error {
	if got := analytics.ChargeDischargeCycleCount(s.entries); got != want {
		return fmt.Errorf("expected %d cycles, got %d", want, got)
	}
	return nil
}

func (s *scenario) dischargeRateSeriesHas(want int) error {
	if got := len(analytics.DischargeRateSeries(s.entries)); got != want {
		return fmt.Errorf("expected %d discharge rates, got %d", want, got)
	}
	return nil
}

func (s *scenario) averageDischargeRateIs(want float64) error {
	return near("average discharge rate", analytics.AverageDischargeRate(s.entries), want)
}

func (s *scenario) energyConsumptionSeriesHas(want int) error {
	if got := len(analytics.EnergyConsumptionSeries(s.entries)); got != want {
		return fmt.Errorf("expected %d energy consumption values, got %d", want, got)
	}
	return nil
}

func (s *scenario) timeToFullChargeIsInfinite(current, full int, rate float64) error {
	return infinite("time to full charge", analytics.EstimateTimeToFullCharge(current, full, rate))
}

func (s *scenario) timeToEmptyIsInfinite(current int, rate float64) error {
	return infinite("time to empty", analytics.EstimateTimeToEmpty(current, rate))
}

func (s *scenario) theBatteryReport(doc *godog.DocString) error {
	return s.writeReport(doc.Content)
}

func (s *scenario) theSampleBatteryReport() error {
	return s.writeReport(testutils.SampleReport)
}

func (s *scenario) reportBecomesUnparseable() error {
	return s.writeReport("<BatteryReport")
}

func (s *scenario) noBatteryReportIsProduced() error {
	s.reportPath = filepath.Join(s.dir, "missing.xml")
	return nil
}

func (s *scenario) writeReport(content string) error {
	s.reportPath = filepath.Join(s.dir, "battery-report.xml")
	return os.WriteFile(s.reportPath, []byte(content), 0600)
}

func (s *scenario) iGenerateInsights(ctx context.Context) error {
	p := pipeline.New(pipeline.WithAcquirer(acquire.File{Path: s.reportPath}), pipeline.WithTempDir(s.dir))
	s.result, s.err = s.latest.Update(ctx, p.Generate)
	if s.err == nil && s.first.ID == uuid.Nil {
		s.first = s.result
	}
	return nil
}

func (s *scenario) generationSucceeds() error {
	if s.err != nil {
		return fmt.Errorf("expected a successful generation, got %v", s.err)
	}
	return nil
}

func (s *scenario) generationFailsWith(kind string) error {
	want := map[string]error{
		"parse":       pipeline.ErrParse,
		"acquisition": pipeline.ErrAcquisition,
	}[kind]

	if !errors.Is(s.err, want) {
		return fmt.Errorf("expected %s failure, got %v", kind, s.err)
	}
	if s.result.ID != uuid.Nil {
		return errors.New("a failed generation should not return any record")
	}
	return nil
}

func (s *scenario) reportHasBatteries(want int) error {
	if got := len(s.result.Report.Batteries); got != want {
		return fmt.Errorf("expected %d batteries, got %d", want, got)
	}
	return nil
}

func (s *scenario) reportHasUsageEntries(want int) error {
	if got := len(s.result.Report.RecentUsage); got != want {
		return fmt.Errorf("expected %d usage entries, got %d", want, got)
	}
	return nil
}

func (s *scenario) computerNameIs(want string) error {
	if got := s.result.Report.SystemInfo.ComputerName; got != want {
		return fmt.Errorf("expected computer name %q, got %q", want, got)
	}
	return nil
}

func (s *scenario) summaryCycleCountIs(want int) error {
	if got := s.result.Summary.ChargeDischargeCycles; got != want {
		return fmt.Errorf("expected %d cycles in the summary, got %d", want, got)
	}
	return nil
}

func (s *scenario) previousResultIsKept() error {
	got, ok := s.latest.Get()
	if !ok {
		return errors.New("no result is available anymore")
	}
	if got.ID != s.first.ID {
		return fmt.Errorf("expected result %s to be kept, got %s", s.first.ID, got.ID)
	}
	if s.latest.LastError() == nil {
		return errors.New("the failure should be recorded")
	}
	return nil
}

func near(what string, got, want float64) error {
	if math.Abs(got-want) > tolerance {
		return fmt.Errorf("expected %s to be %v, got %v", what, want, got)
	}
	return nil
}

func infinite(what string, got float64) error {
	if !math.IsInf(got, 1) {
		return fmt.Errorf("expected %s to be +Inf, got %v", what, got)
	}
	return nil
}

// InitializeScenario registers every step on sc.
func InitializeScenario(sc *godog.ScenarioContext) {
	s := &scenario{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "battery-insights-features-*")
		s.dir = dir
		return ctx, err
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		return ctx, os.RemoveAll(s.dir)
	})

	sc.Step(`^a battery with design capacity "([^"]*)" and full charge capacity "([^"]*)"$`, s.aBattery)
	sc.Step(`^its health is ([\d.]+)$`, s.itsHealthIs)
	sc.Step(`^its degradation is ([\d.]+)$`, s.itsDegradationIs)
	sc.Step(`^its health and degradation sum to 100$`, s.healthAndDegradationSumTo100)

	sc.Step(`^the usage entries:$`, s.theUsageEntries)
	sc.Step(`^no usage entry$`, s.noUsageEntry)
	sc.Step(`^the charge/discharge cycle count is (\d+)$`, s.cycleCountIs)
	sc.Step(`^the discharge rate series has (\d+) values?$`, s.dischargeRateSeriesHas)
	sc.Step(`^the average discharge rate is ([\d.]+)$`, s.averageDischargeRateIs)
	sc.Step(`^the energy consumption series has (\d+) values?$`, s.energyConsumptionSeriesHas)
	sc.Step(`^the time to full charge from (\d+) to (\d+) at rate ([\d.]+) is infinite$`, s.timeToFullChargeIsInfinite)
	sc.Step(`^the time to empty from (\d+) at rate ([\d.]+) is infinite$`, s.timeToEmptyIsInfinite)

	sc.Step(`^the battery report:$`, s.theBatteryReport)
	sc.Step(`^the sample battery report$`, s.theSampleBatteryReport)
	sc.Step(`^the battery report becomes unparseable$`, s.reportBecomesUnparseable)
	sc.Step(`^no battery report is produced$`, s.noBatteryReportIsProduced)
	sc.Step(`^I generate insights from it$`, s.iGenerateInsights)
	sc.Step(`^the generation succeeds$`, s.generationSucceeds)
	sc.Step(`^the generation fails with an? (parse|acquisition) failure$`, s.generationFailsWith)
	sc.Step(`^the report has (\d+) batter(?:y|ies)$`, s.reportHasBatteries)
	sc.Step(`^the report has (\d+) usage entr(?:y|ies)$`, s.reportHasUsageEntries)
	sc.Step(`^the computer name is "([^"]*)"$`, s.computerNameIs)
	sc.Step(`^the summary has a charge/discharge cycle count of (\d+)$`, s.summaryCycleCountIs)
	sc.Step(`^the previous result is kept$`, s.previousResultIsKept)
}
