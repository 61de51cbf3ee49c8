// Package acquire produces battery report documents.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrAcquisition is returned when no battery report document could be produced.
var ErrAcquisition = errors.New("no battery report was produced")

// Acquirer writes a battery report document to a given path.
type Acquirer interface {
	Acquire(ctx context.Context, outputPath string) error
}

// checkOutput makes sure a non empty document exists at path.
func checkOutput(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAcquisition, err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrAcquisition, path)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrAcquisition, path)
	}
	return nil
}
