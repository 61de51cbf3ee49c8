// Main package for the battery-insights command line tool.
package main

import (
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ubuntu/battery-insights/cmd/battery-insights/commands"
	"github.com/ubuntu/battery-insights/internal/constants"
)

func main() {
	slog.SetLogLoggerLevel(constants.DefaultLogLevel)

	a, err := commands.New()
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	os.Exit(run(a, os.Stderr))
}

type app interface {
	Run() error
	UsageError() bool
	Quit()
}

// run executes a and returns the exit code of the process.
// SIGINT and SIGTERM quit a, SIGHUP writes the stack of every goroutine to stacks.
func run(a app, stacks io.Writer) int {
	stop := handleSignals(a, stacks)
	err := a.Run()
	stop()

	if err == nil {
		return 0
	}
	slog.Error(err.Error())
	if a.UsageError() {
		return 2
	}
	return 1
}

// handleSignals starts handling signals for a until the returned function is called.
func handleSignals(a app, stacks io.Writer) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			select {
			case <-done:
				return
			case sig := <-sigs:
				if sig == syscall.SIGHUP {
					writeStacks(stacks)
					continue
				}
				slog.Debug("Quitting on signal", "signal", sig)
				a.Quit()
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
		<-exited
	}
}

// writeStacks writes the stack of every goroutine to w, growing the buffer until they fit.
func writeStacks(w io.Writer) {
	buf := make([]byte, 1<<16)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			if _, err := w.Write(buf[:n]); err != nil {
				slog.Warn("Could not write goroutine stacks", "error", err)
			}
			return
		}
		buf = make([]byte, 2*len(buf))
	}
}
