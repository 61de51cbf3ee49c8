// Package analytics computes health and usage metrics from battery report records.
//
// Every function is pure and never fails: missing attributes, unparseable numbers and zero
// denominators have a defined result, documented per function.
package analytics

import (
	"math"

	"github.com/ubuntu/battery-insights/internal/batteryreport"
)

// Health returns the full charge capacity of b as a percentage of its design capacity.
// It is 0 when the design capacity is 0.
func Health(b batteryreport.BatteryInfo) float64 {
	design := toInt(b.DesignCapacity)
	if design == 0 {
		return 0
	}
	return float64(toInt(b.FullChargeCapacity)) / float64(design) * 100
}

// Degradation returns the capacity lost by b as a percentage of its design capacity.
// It is 0 when the design capacity is 0.
func Degradation(b batteryreport.BatteryInfo) float64 {
	design := toInt(b.DesignCapacity)
	if design == 0 {
		return 0
	}
	return float64(design-toInt(b.FullChargeCapacity)) / float64(design) * 100
}

// CycleCountOverTime returns the cycle count of every entry, 0 when missing.
func CycleCountOverTime(entries []batteryreport.UsageEntry) []int {
	counts := make([]int, 0, len(entries))
	for _, e := range entries {
		counts = append(counts, attrInt(e, "CycleCount"))
	}
	return counts
}

// DischargeRateSeries returns Discharge/Duration for every entry holding both attributes.
// Durations are converted with Seconds. A zero duration, or a rate too large to be
// represented, gives a rate of 0.
func DischargeRateSeries(entries []batteryreport.UsageEntry) []float64 {
	rates := make([]float64, 0, len(entries))
	for _, e := range entries {
		discharge, okDischarge := e.Get("Discharge")
		duration, okDuration := e.Get("Duration")
		if !okDischarge || !okDuration {
			continue
		}

		secs := Seconds(duration)
		if secs == 0 {
			rates = append(rates, 0)
			continue
		}
		rates = append(rates, finite(toFloat(discharge)/secs))
	}
	return rates
}

// HistoricalHealthSeries returns the full charge capacity of every entry holding one, as a
// percentage of designCapacity. Every value is 0 when designCapacity is 0.
func HistoricalHealthSeries(entries []batteryreport.UsageEntry, designCapacity int) []float64 {
	health := make([]float64, 0, len(entries))
	for _, e := range entries {
		full, ok := e.Get("FullChargeCapacity")
		if !ok {
			continue
		}
		if designCapacity == 0 {
			health = append(health, 0)
			continue
		}
		health = append(health, float64(toInt(full))/float64(designCapacity)*100)
	}
	return health
}

// AverageDischargeRate returns the mean of DischargeRateSeries, 0 when it is empty.
func AverageDischargeRate(entries []batteryreport.UsageEntry) float64 {
	rates := DischargeRateSeries(entries)
	if len(rates) == 0 {
		return 0
	}

	n := float64(len(rates))
	var sum float64
	for _, r := range rates {
		sum += r
	}
	if mean := sum / n; !math.IsInf(mean, 0) {
		return mean
	}

	// The sum overflowed: average the scaled rates instead.
	var mean float64
	for _, r := range rates {
		mean += r / n
	}
	return finite(mean)
}

// ChargeDischargeCycleCount returns how many times the charge capacity strictly decreases from
// one entry to the next. A missing charge capacity counts as 0.
func ChargeDischargeCycleCount(entries []batteryreport.UsageEntry) int {
	var cycles int
	for i := 1; i < len(entries); i++ {
		if attrInt(entries[i], "ChargeCapacity") < attrInt(entries[i-1], "ChargeCapacity") {
			cycles++
		}
	}
	return cycles
}

// EstimateTimeToFullCharge returns (full-current)/rate. It is +Inf when rate is 0.
func EstimateTimeToFullCharge(current, full int, rate float64) float64 {
	if rate == 0 {
		return math.Inf(1)
	}
	return float64(full-current) / rate
}

// EstimateTimeToEmpty returns current/rate. It is +Inf when rate is 0.
func EstimateTimeToEmpty(current int, rate float64) float64 {
	if rate == 0 {
		return math.Inf(1)
	}
	return float64(current) / rate
}

// EnergyConsumptionSeries returns the charge capacity lost between each pair of adjacent
// entries. A missing charge capacity counts as 0.
func EnergyConsumptionSeries(entries []batteryreport.UsageEntry) []float64 {
	if len(entries) < 2 {
		return []float64{}
	}

	consumption := make([]float64, 0, len(entries)-1)
	for i := 1; i < len(entries); i++ {
		consumption = append(consumption, float64(attrInt(entries[i-1], "ChargeCapacity")-attrInt(entries[i], "ChargeCapacity")))
	}
	return consumption
}

// ChargeDischargeEfficiencySeries returns (charge-discharge)/charge*100 for every entry with a
// positive charge capacity. A missing discharge counts as 0.
func ChargeDischargeEfficiencySeries(entries []batteryreport.UsageEntry) []float64 {
	efficiency := make([]float64, 0, len(entries))
	for _, e := range entries {
		charge := attrInt(e, "ChargeCapacity")
		if charge <= 0 {
			continue
		}
		discharge := attrInt(e, "Discharge")
		efficiency = append(efficiency, float64(charge-discharge)/float64(charge)*100)
	}
	return efficiency
}
