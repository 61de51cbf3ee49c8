// Package testutils provides helper functions for testing
package testutils

import (
	"errors"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

// CmdTestCase is a test case for testing cobra CMD flags.
type CmdTestCase struct {
	Name           string
	Short          string
	Default        string
	PersistentFlag bool
	BaseCmd        *cobra.Command
}

// FlagTestHelper is a helper function to test cobra CMD flags.
func FlagTestHelper(t *testing.T, testCase CmdTestCase) {
	t.Helper()
	var flag *pflag.Flag

	if testCase.PersistentFlag {
		flag = testCase.BaseCmd.PersistentFlags().Lookup(testCase.Name)
	} else {
		flag = testCase.BaseCmd.Flags().Lookup(testCase.Name)
	}
	if !assert.NotNil(t, flag, "flag %q should be installed", testCase.Name) {
		return
	}
	assert.Equal(t, testCase.Short, flag.Shorthand, "flag %q has an unexpected shorthand", testCase.Name)
	assert.Equal(t, testCase.Default, flag.DefValue, "flag %q has an unexpected default", testCase.Name)
}

// fakeCmdSeparator separates the go test arguments from the arguments given to the fake command.
const fakeCmdSeparator = "--"

// SetupFakeCmdArgs returns the command line re-executing the current test binary so that it
// only runs the test function fakeCmdFunc, passing it args.
//
// fakeCmdFunc should start with GetFakeCmdArgs and return early when it fails.
func SetupFakeCmdArgs(fakeCmdFunc string, args ...string) []string {
	cmdArgs := []string{os.Args[0], "-test.run=^" + fakeCmdFunc + "$", fakeCmdSeparator}
	return append(cmdArgs, args...)
}

// GetFakeCmdArgs returns the arguments given to a fake command set up with SetupFakeCmdArgs.
// It returns an error when the test binary was not started as a fake command.
func GetFakeCmdArgs() (args []string, err error) {
	for i, arg := range os.Args {
		if arg != fakeCmdSeparator {
			continue
		}
		args = os.Args[i+1:]
		if len(args) == 0 {
			return nil, errors.New("no arguments given to the fake command")
		}
		return args, nil
	}

	return nil, errors.New("not running as a fake command")
}
