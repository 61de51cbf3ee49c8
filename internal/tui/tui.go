// Package tui shows battery insights in an interactive terminal view.
package tui

import (
	"context"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/ubuntu/battery-insights/internal/pipeline"
)

// Tabs are the names of the views, in display order.
var Tabs = []string{"Report", "System", "Battery", "Usage", "Graphs"}

type action int

const (
	actionNone action = iota
	actionQuit
	actionRegenerate
)

// View renders the last good result of a generation on a terminal screen.
// It owns its rendering state; results are only read through the Latest holder.
type View struct {
	screen   tcell.Screen
	latest   *pipeline.Latest
	generate func(context.Context) (pipeline.Result, error)
	refresh  <-chan struct{}
	log      *slog.Logger

	tab    int
	scroll int
	busy   bool
	failed string

	afterGeneration func(error)
}

type options struct {
	generate        func(context.Context) (pipeline.Result, error)
	refresh         <-chan struct{}
	log             *slog.Logger
	afterGeneration func(error)
}

// Options are the variadic options available to the View.
type Options func(*options)

// WithGenerate enables regenerating the result from the view.
// Without it, the view only shows what latest holds.
func WithGenerate(generate func(context.Context) (pipeline.Result, error)) Options {
	return func(o *options) {
		o.generate = generate
	}
}

// WithRefresh regenerates the result every time refresh receives.
// It has no effect without WithGenerate.
func WithRefresh(refresh <-chan struct{}) Options {
	return func(o *options) {
		o.refresh = refresh
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns a view drawing on screen, which must already be initialised.
func New(screen tcell.Screen, latest *pipeline.Latest, args ...Options) *View {
	opts := options{log: slog.Default()}
	for _, opt := range args {
		opt(&opts)
	}

	return &View{
		screen:          screen,
		latest:          latest,
		generate:        opts.generate,
		refresh:         opts.refresh,
		log:             opts.log,
		afterGeneration: opts.afterGeneration,
	}
}

// Run handles events until the user quits or ctx is done.
// When latest holds no result yet, a generation is started right away.
func (v *View) Run(ctx context.Context) error {
	events := make(chan tcell.Event)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-stop:
				return
			}
		}
	}()

	done := make(chan error, 1)
	if _, ok := v.latest.Get(); !ok {
		v.regenerate(ctx, done)
	}

	for {
		v.draw()

		select {
		case <-ctx.Done():
			return nil
		case err := <-done:
			v.finish(err)
		case <-v.refresh:
			v.regenerate(ctx, done)
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				v.screen.Sync()
			case *tcell.EventKey:
				switch v.handleKey(ev) {
				case actionQuit:
					return nil
				case actionRegenerate:
					v.regenerate(ctx, done)
				}
			}
		}
	}
}

func (v *View) handleKey(ev *tcell.EventKey) action {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return actionQuit
	case tcell.KeyRight, tcell.KeyTab:
		v.tab = (v.tab + 1) % len(Tabs)
		v.scroll = 0
	case tcell.KeyLeft, tcell.KeyBacktab:
		v.tab = (v.tab + len(Tabs) - 1) % len(Tabs)
		v.scroll = 0
	case tcell.KeyDown:
		v.scroll++
	case tcell.KeyUp:
		v.scroll = max(0, v.scroll-1)
	case tcell.KeyPgDn:
		v.scroll += v.pageSize()
	case tcell.KeyPgUp:
		v.scroll = max(0, v.scroll-v.pageSize())
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return actionQuit
		case 'r', 'R':
			return actionRegenerate
		}
	}
	return actionNone
}

// regenerate starts a generation in the background, unless one is already running.
func (v *View) regenerate(ctx context.Context, done chan<- error) {
	if v.generate == nil || v.busy {
		return
	}
	v.busy = true
	go func() {
		_, err := v.latest.Update(ctx, v.generate)
		done <- err
	}()
}

func (v *View) finish(err error) {
	v.busy = false
	if err != nil {
		v.log.Warn("Failed to generate battery insights, keeping the previous result", "error", err)
		v.failed = "Generation failed: " + err.Error()
	} else {
		v.failed = ""
		v.scroll = 0
	}
	if v.afterGeneration != nil {
		v.afterGeneration(err)
	}
}

func (v *View) pageSize() int {
	_, h := v.screen.Size()
	return max(1, h-3)
}
