package analytics

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/ubuntu/battery-insights/internal/batteryreport"
)

// Estimate is a time estimate. It is +Inf when it cannot be reached and encodes as null in JSON.
type Estimate float64

// IsInf reports whether the estimate cannot be reached.
func (e Estimate) IsInf() bool {
	return math.IsInf(float64(e), 0)
}

// MarshalJSON encodes non finite estimates as null.
func (e Estimate) MarshalJSON() ([]byte, error) {
	f := float64(e)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON decodes null as +Inf.
func (e *Estimate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*e = Estimate(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*e = Estimate(f)
	return nil
}

// BatteryHealth holds the health metrics of one battery.
type BatteryHealth struct {
	ID                 string  `json:"id"`
	DesignCapacity     int     `json:"designCapacity"`
	FullChargeCapacity int     `json:"fullChargeCapacity"`
	CycleCount         int     `json:"cycleCount"`
	Health             float64 `json:"health"`
	Degradation        float64 `json:"degradation"`
}

// CapacityPoint is the capacity of the battery at one usage entry.
type CapacityPoint struct {
	Timestamp          string `json:"timestamp"`
	ChargeCapacity     int    `json:"chargeCapacity"`
	FullChargeCapacity int    `json:"fullChargeCapacity"`
}

// Summary holds every metric computed for a report.
type Summary struct {
	Batteries             []BatteryHealth `json:"batteries"`
	Capacity              []CapacityPoint `json:"capacity"`
	DesignCapacity        int             `json:"designCapacity"`
	HistoricalHealth      []float64       `json:"historicalHealth"`
	CycleCounts           []int           `json:"cycleCounts"`
	DischargeRates        []float64       `json:"dischargeRates"`
	AverageDischargeRate  float64         `json:"averageDischargeRate"`
	EnergyConsumption     []float64       `json:"energyConsumption"`
	Efficiency            []float64       `json:"efficiency"`
	ChargeDischargeCycles int             `json:"chargeDischargeCycles"`
	TimeToFullCharge      Estimate        `json:"timeToFullCharge"`
	TimeToEmpty           Estimate        `json:"timeToEmpty"`
}

// Summarize computes every metric of r.
//
// Historical health is relative to the design capacity of the first battery. Time estimates
// use the capacities of the last usage entry and the average discharge rate.
func Summarize(r batteryreport.Report) Summary {
	s := Summary{
		Batteries:             make([]BatteryHealth, 0, len(r.Batteries)),
		Capacity:              make([]CapacityPoint, 0, len(r.RecentUsage)),
		CycleCounts:           CycleCountOverTime(r.RecentUsage),
		DischargeRates:        DischargeRateSeries(r.RecentUsage),
		AverageDischargeRate:  AverageDischargeRate(r.RecentUsage),
		EnergyConsumption:     EnergyConsumptionSeries(r.RecentUsage),
		Efficiency:            ChargeDischargeEfficiencySeries(r.RecentUsage),
		ChargeDischargeCycles: ChargeDischargeCycleCount(r.RecentUsage),
	}

	for _, b := range r.Batteries {
		s.Batteries = append(s.Batteries, BatteryHealth{
			ID:                 b.ID,
			DesignCapacity:     toInt(b.DesignCapacity),
			FullChargeCapacity: toInt(b.FullChargeCapacity),
			CycleCount:         toInt(b.CycleCount),
			Health:             Health(b),
			Degradation:        Degradation(b),
		})
	}
	if len(r.Batteries) > 0 {
		s.DesignCapacity = toInt(r.Batteries[0].DesignCapacity)
	}
	s.HistoricalHealth = HistoricalHealthSeries(r.RecentUsage, s.DesignCapacity)

	for _, e := range r.RecentUsage {
		ts, _ := e.Get("Timestamp")
		s.Capacity = append(s.Capacity, CapacityPoint{
			Timestamp:          ts,
			ChargeCapacity:     attrInt(e, "ChargeCapacity"),
			FullChargeCapacity: attrInt(e, "FullChargeCapacity"),
		})
	}

	var current, full int
	if n := len(r.RecentUsage); n > 0 {
		current = attrInt(r.RecentUsage[n-1], "ChargeCapacity")
		full = attrInt(r.RecentUsage[n-1], "FullChargeCapacity")
	}
	s.TimeToFullCharge = Estimate(EstimateTimeToFullCharge(current, full, s.AverageDischargeRate))
	s.TimeToEmpty = Estimate(EstimateTimeToEmpty(current, s.AverageDischargeRate))

	return s
}
