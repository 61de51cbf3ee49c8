package acquire

import "time"

// WithCommand overrides the command run instead of powercfg.
func WithCommand(cmd []string) Options {
	return func(o *options) {
		o.cmd = cmd
	}
}

// Days returns the number of days the report covers.
func (p Powercfg) Days() int {
	return p.days
}

// Timeout returns how long powercfg may run.
func (p Powercfg) Timeout() time.Duration {
	return p.timeout
}
