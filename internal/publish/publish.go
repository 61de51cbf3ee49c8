// Package publish sends generated results to message brokers.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ubuntu/battery-insights/internal/pipeline"
)

// ErrPublish is returned when a result could not be delivered.
var ErrPublish = errors.New("could not publish result")

// Publisher delivers results somewhere.
type Publisher interface {
	Publish(ctx context.Context, r pipeline.Result) error
	Close() error
}

// Options are the variadic options available to the publishers.
type Options func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

func newOptions(args []Options) options {
	opts := options{log: slog.Default()}
	for _, opt := range args {
		opt(&opts)
	}
	return opts
}

// Message returns the key and payload r is published with.
// Results of the same machine share the same key.
func Message(r pipeline.Result) (key, value []byte, err error) {
	value, err = json.Marshal(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: could not encode result: %v", ErrPublish, err)
	}

	k := r.Report.SystemInfo.ComputerName
	if k == "" {
		k = r.ID.String()
	}
	return []byte(k), value, nil
}

// Multi publishes to every publisher it holds.
type Multi []Publisher

// Publish publishes r to every publisher, even if some fail.
func (m Multi) Publish(ctx context.Context, r pipeline.Result) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
