package render

import (
	"io"
	"os"

	"golang.org/x/term"
)

// ANSI escape sequences.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// ColorEnabled reports whether text written to w should be coloured.
// Colour requires w to be a terminal and NO_COLOR to be unset.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

type colors struct{}

func (colors) bold(s string) string   { return colorBold + s + colorReset }
func (colors) cyan(s string) string   { return colorCyan + s + colorReset }
func (colors) gray(s string) string   { return colorGray + s + colorReset }
func (colors) red(s string) string    { return colorRed + s + colorReset }
func (colors) green(s string) string  { return colorGreen + s + colorReset }
func (colors) yellow(s string) string { return colorYellow + s + colorReset }

// health colours a health percentage: green from 80%, yellow from 50%, red below.
func (c colors) health(pct float64, s string) string {
	switch {
	case pct >= 80:
		return c.green(s)
	case pct >= 50:
		return c.yellow(s)
	default:
		return c.red(s)
	}
}
