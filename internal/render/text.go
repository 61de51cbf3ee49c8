package render

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/mattn/go-runewidth"
	"github.com/ubuntu/battery-insights/internal/analytics"
	"github.com/ubuntu/battery-insights/internal/batteryreport"
	"github.com/ubuntu/battery-insights/internal/pipeline"
	"golang.org/x/text/message"
)

// UsageColumns are the columns of the recent usage table, in display order.
var UsageColumns = []string{
	"Timestamp", "LocalTimestamp", "Duration", "Ac", "EntryType",
	"ChargeCapacity", "Discharge", "FullChargeCapacity", "IsNextOnBattery",
}

const indent = "  "

type textWriter struct {
	p     *message.Printer
	c     colors
	width int
}

func (t textWriter) result(b *strings.Builder, r pipeline.Result) {
	name := r.Report.SystemInfo.ComputerName
	if name == "" {
		name = r.Source
	}
	fmt.Fprintf(b, "%s %s\n", t.c.bold("Battery report"), t.c.cyan(clean(name)))
	fmt.Fprintf(b, "%s %s\n", t.c.gray("Source:"), clean(r.Source))
	if !r.GeneratedAt.IsZero() {
		fmt.Fprintf(b, "%s %s\n", t.c.gray("Generated:"), r.GeneratedAt.Format(time.RFC3339))
	}

	t.section(b, "Report information")
	t.fields(b, indent, r.Report.ReportInfo.Fields())

	t.section(b, "System information")
	t.fields(b, indent, r.Report.SystemInfo.Fields())

	t.section(b, "Batteries")
	t.batteries(b, r.Report.Batteries, r.Summary.Batteries)

	t.section(b, "Recent usage")
	t.usage(b, r.Report.RecentUsage)

	t.section(b, "Metrics")
	t.metrics(b, r.Summary)
}

func (t textWriter) section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n%s\n", t.c.bold(title))
}

func (t textWriter) fields(b *strings.Builder, prefix string, fields []batteryreport.Field) {
	w := 0
	for _, f := range fields {
		w = max(w, runewidth.StringWidth(f.Name))
	}
	for _, f := range fields {
		v := strings.TrimRight(clean(f.Value), " ")
		if v == "" {
			b.WriteString(prefix + t.c.gray(f.Name) + "\n")
			continue
		}
		b.WriteString(prefix + t.c.gray(runewidth.FillRight(f.Name, w)) + indent + v + "\n")
	}
}

func (t textWriter) batteries(b *strings.Builder, batteries []batteryreport.BatteryInfo, health []analytics.BatteryHealth) {
	if len(batteries) == 0 {
		fmt.Fprintf(b, "%s%s\n", indent, t.c.gray("No battery found"))
		return
	}

	for i, bat := range batteries {
		id := clean(bat.ID)
		if id == "" {
			id = fmt.Sprintf("#%d", i+1)
		}
		fmt.Fprintf(b, "%s%s\n", indent, t.c.cyan(id))
		t.fields(b, indent+indent, bat.Fields())

		h := analytics.BatteryHealth{Health: analytics.Health(bat), Degradation: analytics.Degradation(bat)}
		if i < len(health) {
			h = health[i]
		}
		fmt.Fprintf(b, "%s%s\n", indent+indent, t.c.health(h.Health, t.p.Sprintf("Health: %.2f%%", h.Health)))
		fmt.Fprintf(b, "%s%s\n", indent+indent, t.p.Sprintf("Degradation: %.2f%%", h.Degradation))
	}
}

// usage writes the usage table. Attributes missing from an entry are left blank.
func (t textWriter) usage(b *strings.Builder, entries []batteryreport.UsageEntry) {
	if len(entries) == 0 {
		fmt.Fprintf(b, "%s%s\n", indent, t.c.gray("No usage entry"))
		return
	}

	widths := make([]int, len(UsageColumns))
	for i, col := range UsageColumns {
		widths[i] = runewidth.StringWidth(col)
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := make([]string, len(UsageColumns))
		for i, col := range UsageColumns {
			v, _ := e.Get(col)
			row[i] = clean(v)
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
		rows = append(rows, row)
	}

	header := make([]string, len(UsageColumns))
	for i, col := range UsageColumns {
		header[i] = t.c.bold(runewidth.FillRight(col, widths[i]))
	}
	b.WriteString(indent + strings.Join(header, indent) + "\n")

	for _, row := range rows {
		for i := range row {
			row[i] = runewidth.FillRight(row[i], widths[i])
		}
		b.WriteString(strings.TrimRight(indent+strings.Join(row, indent), " ") + "\n")
	}
}

func (t textWriter) metrics(b *strings.Builder, s analytics.Summary) {
	charge := make([]float64, 0, len(s.Capacity))
	for _, p := range s.Capacity {
		charge = append(charge, float64(p.ChargeCapacity))
	}

	series := []struct {
		name   string
		values []float64
		last   string
	}{
		{"Charge capacity", charge, "%.0f mWh"},
		{"Historical health", s.HistoricalHealth, "%.2f%%"},
		{"Discharge rate", s.DischargeRates, "%.2f"},
		{"Energy consumption", s.EnergyConsumption, "%.0f mWh"},
		{"Efficiency", s.Efficiency, "%.2f%%"},
	}

	w := 0
	for _, sr := range series {
		w = max(w, runewidth.StringWidth(sr.name))
	}
	for _, sr := range series {
		line := indent + t.c.gray(runewidth.FillRight(sr.name, w)) + indent + Sparkline(sr.values, min(len(sr.values), t.width))
		if n := len(sr.values); n > 0 {
			line += indent + t.p.Sprintf("last: "+sr.last, sr.values[n-1])
		} else {
			line += t.c.gray("no data")
		}
		b.WriteString(line + "\n")
	}

	fmt.Fprintf(b, "%s%s\n", indent, t.p.Sprintf("Average discharge rate: %.2f", s.AverageDischargeRate))
	fmt.Fprintf(b, "%s%s\n", indent, t.p.Sprintf("Charge/discharge cycles: %d", s.ChargeDischargeCycles))
	fmt.Fprintf(b, "%sTime to full charge: %s\n", indent, t.estimate(s.TimeToFullCharge))
	fmt.Fprintf(b, "%sTime to empty: %s\n", indent, t.estimate(s.TimeToEmpty))
}

func (t textWriter) estimate(e analytics.Estimate) string {
	if e.IsInf() || math.IsNaN(float64(e)) {
		return "∞"
	}
	return t.p.Sprintf("%.2f h", float64(e))
}

// clean escapes the control characters of a value read from a report, so that it cannot
// move the cursor or start a terminal sequence.
func clean(s string) string {
	if !strings.ContainsFunc(s, unicode.IsControl) {
		return s
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			fmt.Fprintf(&b, "\\x%02x", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
