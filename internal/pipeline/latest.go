package pipeline

import (
	"context"
	"sync"
	"time"
)

// Latest holds the last successful result of a series of generations.
// It is safe for concurrent use.
type Latest struct {
	mu          sync.RWMutex
	result      Result
	ok          bool
	lastErr     error
	lastAttempt time.Time
}

// Get returns the last successful result and whether there is one.
func (l *Latest) Get() (Result, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.result, l.ok
}

// LastError returns the error of the last attempt, nil if it succeeded.
func (l *Latest) LastError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.lastErr
}

// LastAttempt returns when the last attempt finished.
func (l *Latest) LastAttempt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.lastAttempt
}

// Update runs generate and stores its result when it succeeds.
// On failure, the error is returned and the previous result stays available.
func (l *Latest) Update(ctx context.Context, generate func(context.Context) (Result, error)) (Result, error) {
	r, err := generate(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastAttempt = time.Now()
	l.lastErr = err
	if err != nil {
		return Result{}, err
	}
	l.result, l.ok = r, true
	return r, nil
}
