package tui

import "github.com/gdamore/tcell/v2"

// WithAfterGeneration calls f once the view processed the end of a generation.
func WithAfterGeneration(f func(error)) Options {
	return func(o *options) {
		o.afterGeneration = f
	}
}

// Tab returns the name of the current tab.
func (v *View) Tab() string {
	return Tabs[v.tab]
}

// Scroll returns the first content line shown.
func (v *View) Scroll() int {
	return v.scroll
}

// Failed returns the error line of the view.
func (v *View) Failed() string {
	return v.failed
}

// PressKey handles a key and reports whether it quits the view and whether it asks for a generation.
func (v *View) PressKey(k tcell.Key, r rune) (quit, regenerate bool) {
	a := v.handleKey(tcell.NewEventKey(k, r, tcell.ModNone))
	return a == actionQuit, a == actionRegenerate
}

// Draw draws the view once.
func (v *View) Draw() {
	v.draw()
}
