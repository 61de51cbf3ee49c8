package acquire_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ubuntu/battery-insights/internal/acquire"
	"github.com/ubuntu/battery-insights/internal/testutils"
)

func TestFileAcquire(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content   string
		noSource  bool
		sourceDir bool
		cancelled bool

		wantErr bool
	}{
		"Copies report":        {content: testutils.SampleReport},
		"Copies invalid XML":   {content: "<not-closed>"},
		"Error on empty file":  {wantErr: true},
		"Error on missing":     {noSource: true, wantErr: true},
		"Error on directory":   {sourceDir: true, wantErr: true},
		"Error when cancelled": {content: testutils.SampleReport, cancelled: true, wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			src := testutils.WriteReport(t, tc.content)
			if tc.noSource {
				src = filepath.Join(t.TempDir(), "missing.xml")
			}
			if tc.sourceDir {
				src = t.TempDir()
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tc.cancelled {
				cancel()
			}

			out := filepath.Join(t.TempDir(), "report.xml")
			err := acquire.File{Path: src}.Acquire(ctx, out)
			if tc.wantErr {
				require.ErrorIs(t, err, acquire.ErrAcquisition, "Acquire should return ErrAcquisition")
				return
			}
			require.NoError(t, err, "Acquire should not return an error")

			got, err := os.ReadFile(out)
			require.NoError(t, err, "Report should have been copied")
			assert.Equal(t, tc.content, string(got), "Unexpected report content")
		})
	}
}
