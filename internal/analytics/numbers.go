package analytics

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ubuntu/battery-insights/internal/batteryreport"
)

// toFloat converts a numeric string. Anything that is not a finite number is 0.
func toFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

// toInt converts an integer string, truncating decimal values. Anything else is 0.
func toInt(s string) int {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	f := toFloat(s)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}

// attrInt returns the named attribute of e as an integer, 0 when it is missing.
func attrInt(e batteryreport.UsageEntry, name string) int {
	v, _ := e.Get(name)
	return toInt(v)
}

var isoDuration = regexp.MustCompile(`^(-)?P(?:(\d+(?:\.\d+)?)Y)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)W)?(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// Unit of each isoDuration capture group, in seconds.
var isoDurationUnits = []float64{
	365 * 24 * 3600, // years
	30 * 24 * 3600,  // months
	7 * 24 * 3600,   // weeks
	24 * 3600,       // days
	3600,            // hours
	60,              // minutes
	1,               // seconds
}

// Seconds converts a duration to seconds.
// The duration is either a plain number of seconds or an ISO 8601 duration like PT4M37.459S.
// Years and months count as 365 and 30 days. Anything else is 0.
func Seconds(d string) float64 {
	d = strings.TrimSpace(d)
	if _, err := strconv.ParseFloat(d, 64); err == nil {
		return toFloat(d)
	}

	m := isoDuration.FindStringSubmatch(strings.ToUpper(d))
	if m == nil || strings.HasSuffix(m[0], "P") || strings.HasSuffix(m[0], "T") {
		return 0
	}

	var secs float64
	for i, unit := range isoDurationUnits {
		if m[i+2] == "" {
			continue
		}
		secs += toFloat(m[i+2]) * unit
	}
	if m[1] == "-" {
		secs = -secs
	}
	return finite(secs)
}

// finite returns f, or 0 when f is NaN or infinite.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
