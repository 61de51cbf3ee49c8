package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

var updateGolden bool

func init() {
	v := os.Getenv("TESTS_UPDATE_GOLDEN")
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(fmt.Sprintf("invalid value %q for TESTS_UPDATE_GOLDEN: %v", v, err))
	}
	updateGolden = b
}

// GoldenPath returns the golden file of the current test: testdata/golden/<test name>.
// Subtests are files in the directory of their parent test.
func GoldenPath(t *testing.T) string {
	t.Helper()

	return filepath.Join("testdata", "golden", filepath.FromSlash(t.Name()))
}

// LoadWithUpdateFromGolden returns the content of the golden file of the current test.
// When TESTS_UPDATE_GOLDEN is true, the golden file is replaced with data first.
func LoadWithUpdateFromGolden(t *testing.T, data string) string {
	t.Helper()

	p := GoldenPath(t)
	if updateGolden {
		t.Logf("Updating golden file %s", p)
		err := os.MkdirAll(filepath.Dir(p), 0750)
		require.NoError(t, err, "Cannot create golden file directory")
		err = os.WriteFile(p, []byte(data), 0600)
		require.NoError(t, err, "Cannot update golden file")
	}

	want, err := os.ReadFile(p)
	require.NoError(t, err, "Cannot load golden file %s, run with TESTS_UPDATE_GOLDEN=true to create it", p)
	return string(want)
}
