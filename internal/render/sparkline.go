package render

import (
	"math"
	"strings"
)

var sparkLevels = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

const sparkPlaceholder = '─'

// Sparkline draws the last width values scaled between their minimum and maximum.
// Missing room on the left and non finite values are drawn as placeholders.
func Sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = min(lo, v), max(hi, v)
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(string(sparkPlaceholder), width-len(values)))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			b.WriteRune(sparkPlaceholder)
			continue
		}
		idx := len(sparkLevels) / 2
		if hi > lo {
			idx = int(math.Round((v - lo) / (hi - lo) * float64(len(sparkLevels)-1)))
		}
		b.WriteRune(sparkLevels[idx])
	}
	return b.String()
}
