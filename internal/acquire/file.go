package acquire

import (
	"context"
	"fmt"

	"github.com/ubuntu/battery-insights/internal/fileutils"
)

// File acquires a battery report by copying an existing document.
// File implements Acquirer.
type File struct {
	Path string
}

// String returns the path of the source document.
func (f File) String() string {
	return f.Path
}

// Acquire copies the document at f.Path to outputPath.
func (f File) Acquire(ctx context.Context, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	if err := checkOutput(f.Path); err != nil {
		return fmt.Errorf("invalid source report: %w", err)
	}
	if err := fileutils.CopyFile(f.Path, outputPath); err != nil {
		return fmt.Errorf("%w: could not copy %s: %v", ErrAcquisition, f.Path, err)
	}
	return nil
}
