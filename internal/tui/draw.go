package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/ubuntu/battery-insights/internal/analytics"
	"github.com/ubuntu/battery-insights/internal/batteryreport"
	"github.com/ubuntu/battery-insights/internal/pipeline"
	"github.com/ubuntu/battery-insights/internal/render"
)

var (
	styleTab      = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleTabOn    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorTeal).Bold(true)
	styleText     = tcell.StyleDefault
	styleHint     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleError    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleBusy     = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleSeparate = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

func (v *View) draw() {
	v.screen.Clear()
	w, h := v.screen.Size()
	if w <= 0 || h <= 0 {
		return
	}

	// Tab bar, then a separator.
	x := 0
	for i, name := range Tabs {
		style := styleTab
		if i == v.tab {
			style = styleTabOn
		}
		x = drawText(v.screen, x, 0, w, style, " "+name+" ")
		x = drawText(v.screen, x, 0, w, styleTab, " ")
	}
	drawText(v.screen, 0, 1, w, styleSeparate, strings.Repeat("─", w))

	lines := v.lines(w)
	bodyHeight := max(0, h-3)
	v.scroll = min(v.scroll, max(0, len(lines)-bodyHeight))
	for i := 0; i < bodyHeight && v.scroll+i < len(lines); i++ {
		drawText(v.screen, 0, 2+i, w, styleText, lines[v.scroll+i])
	}

	switch {
	case v.busy:
		drawText(v.screen, 0, h-1, w, styleBusy, "Generating battery report…")
	case v.failed != "":
		drawText(v.screen, 0, h-1, w, styleError, v.failed)
	default:
		help := "←/→ tabs  ↑/↓ scroll  q quit"
		if v.generate != nil {
			help = "←/→ tabs  ↑/↓ scroll  r regenerate  q quit"
		}
		drawText(v.screen, 0, h-1, w, styleHint, help)
	}

	v.screen.Show()
}

// lines returns the content of the current tab.
func (v *View) lines(width int) []string {
	r, ok := v.latest.Get()
	if !ok {
		if v.generate == nil {
			return []string{"No battery report."}
		}
		return []string{"No battery report yet. Press r to generate one."}
	}

	switch Tabs[v.tab] {
	case "Report":
		return append([]string{"Source: " + r.Source, ""}, fieldLines(r.Report.ReportInfo.Fields(), "")...)
	case "System":
		return fieldLines(r.Report.SystemInfo.Fields(), "")
	case "Battery":
		return batteryLines(r)
	case "Usage":
		return usageLines(r.Report.RecentUsage)
	case "Graphs":
		return graphLines(r.Summary, width)
	}
	return nil
}

func fieldLines(fields []batteryreport.Field, prefix string) []string {
	w := 0
	for _, f := range fields {
		w = max(w, runewidth.StringWidth(f.Name))
	}
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, prefix+runewidth.FillRight(f.Name, w)+"  "+f.Value)
	}
	return lines
}

func batteryLines(r pipeline.Result) []string {
	if len(r.Report.Batteries) == 0 {
		return []string{"No battery found."}
	}

	var lines []string
	for i, b := range r.Report.Batteries {
		if i > 0 {
			lines = append(lines, "")
		}
		health, degradation := analytics.Health(b), analytics.Degradation(b)
		lines = append(lines, fmt.Sprintf("Battery %s", b.ID))
		lines = append(lines, fieldLines(b.Fields(), "  ")...)
		lines = append(lines,
			fmt.Sprintf("  Health: %.2f%%", health),
			fmt.Sprintf("  Degradation: %.2f%%", degradation),
		)
	}
	return lines
}

// usageLines is the usage table. Attributes missing from an entry are left blank.
func usageLines(entries []batteryreport.UsageEntry) []string {
	if len(entries) == 0 {
		return []string{"No usage entry."}
	}

	widths := make([]int, len(render.UsageColumns))
	for i, col := range render.UsageColumns {
		widths[i] = runewidth.StringWidth(col)
		for _, e := range entries {
			val, _ := e.Get(col)
			widths[i] = max(widths[i], runewidth.StringWidth(val))
		}
	}

	row := func(cell func(col string) string) string {
		cells := make([]string, len(render.UsageColumns))
		for i, col := range render.UsageColumns {
			cells[i] = runewidth.FillRight(cell(col), widths[i])
		}
		return strings.TrimRight(strings.Join(cells, "  "), " ")
	}

	lines := []string{row(func(col string) string { return col })}
	for _, e := range entries {
		lines = append(lines, row(func(col string) string {
			val, _ := e.Get(col)
			return val
		}))
	}
	return lines
}

func graphLines(s analytics.Summary, width int) []string {
	charge := make([]float64, 0, len(s.Capacity))
	full := make([]float64, 0, len(s.Capacity))
	for _, p := range s.Capacity {
		charge = append(charge, float64(p.ChargeCapacity))
		full = append(full, float64(p.FullChargeCapacity))
	}

	series := []struct {
		name   string
		values []float64
	}{
		{"Charge capacity", charge},
		{"Full charge capacity", full},
		{"Historical health", s.HistoricalHealth},
		{"Discharge rate", s.DischargeRates},
		{"Energy consumption", s.EnergyConsumption},
		{"Efficiency", s.Efficiency},
	}

	const labelWidth = 22
	sparkWidth := max(1, width-labelWidth-16)
	lines := make([]string, 0, len(series)+5)
	for _, sr := range series {
		line := runewidth.FillRight(sr.name, labelWidth)
		if n := len(sr.values); n > 0 {
			line += render.Sparkline(sr.values, min(n, sparkWidth)) + fmt.Sprintf("  %.2f", sr.values[n-1])
		} else {
			line += "no data"
		}
		lines = append(lines, line)
	}

	lines = append(lines, "",
		fmt.Sprintf("Average discharge rate: %.2f", s.AverageDischargeRate),
		fmt.Sprintf("Charge/discharge cycles: %d", s.ChargeDischargeCycles),
		"Time to full charge: "+estimate(s.TimeToFullCharge),
		"Time to empty: "+estimate(s.TimeToEmpty),
	)
	return lines
}

func estimate(e analytics.Estimate) string {
	if e.IsInf() {
		return "∞"
	}
	return fmt.Sprintf("%.2f h", float64(e))
}

// drawText draws text from x on row y, clipped at maxX, and returns the next column.
func drawText(s tcell.Screen, x, y, maxX int, style tcell.Style, text string) int {
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if x+rw > maxX {
			break
		}
		s.SetContent(x, y, r, nil, style)
		x += rw
	}
	return x
}
