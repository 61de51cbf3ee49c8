package commands

import (
	"io"

	"github.com/gdamore/tcell/v2"
	"github.com/ubuntu/battery-insights/internal/acquire"
	"github.com/ubuntu/battery-insights/internal/collector"
	"github.com/ubuntu/battery-insights/internal/exporter"
)

// SetArgs sets the arguments for the command.
func (a *App) SetArgs(args []string) {
	a.cmd.SetArgs(args)
}

// WaitServer waits for the serve command to start its server and returns it.
func (a *App) WaitServer() *exporter.Server {
	<-a.ready
	a.serverMu.Lock()
	defer a.serverMu.Unlock()
	return a.server
}

// WithAcquirer overrides the acquirer of every pipeline of the app.
func WithAcquirer(acq acquire.Acquirer) Options {
	return func(o *options) {
		o.acquirer = acq
	}
}

// WithNewCollector sets the new collector function for the app.
func WithNewCollector(nc collector.Factory) Options {
	return func(o *options) {
		o.newCollector = nc
	}
}

// WithScreen makes the view command draw on screen, which must already be initialised.
func WithScreen(screen tcell.Screen) Options {
	return func(o *options) {
		o.newScreen = func() (tcell.Screen, error) { return screen, nil }
	}
}

// WithOutput redirects the printed insights to w.
func WithOutput(w io.Writer) Options {
	return func(o *options) {
		o.out = w
	}
}
