package collector

// WithTimeProvider sets the time provider for the collector.
func WithTimeProvider(tp timeProvider) Options {
	return func(o *options) {
		o.timeProvider = tp
	}
}
