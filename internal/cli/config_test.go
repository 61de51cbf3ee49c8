package cli_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ubuntu/battery-insights/internal/cli"
)

type testConfig struct {
	Interval time.Duration
	Brokers  []string
	Name     string
}

func TestInitViperConfig(t *testing.T) {
	tests := map[string]struct {
		configFile string
		noFile     bool

		want    testConfig
		wantErr bool
	}{
		"Reads config file with durations and lists": {
			configFile: "interval: 30s\nbrokers: a:9092,b:9092\nname: laptop\n",
			want:       testConfig{Interval: 30 * time.Second, Brokers: []string{"a:9092", "b:9092"}, Name: "laptop"},
		},
		"Missing config file is not an error": {
			noFile: true,
		},

		"Error on invalid config file": {
			configFile: "interval: [30s\n",
			wantErr:    true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			cli.InstallConfigFlag(cmd)

			p := filepath.Join(t.TempDir(), "test-config.yaml")
			if !tc.noFile {
				require.NoError(t, os.WriteFile(p, []byte(tc.configFile), 0600), "Setup: could not write config file")
				require.NoError(t, cmd.PersistentFlags().Set("config", p), "Setup: could not set config flag")
			}

			vip := viper.New()
			err := cli.InitViperConfig("battery-insights-test-"+t.Name(), cmd, vip)
			if tc.wantErr {
				require.Error(t, err, "InitViperConfig should have failed")
				return
			}
			require.NoError(t, err, "InitViperConfig should not fail")

			var got testConfig
			require.NoError(t, cli.Unmarshal(vip, &got), "Unmarshal should not fail")
			assert.Equal(t, tc.want, got, "Unmarshal returned an unexpected configuration")
		})
	}
}

func TestInitViperConfigEnvironment(t *testing.T) {
	t.Setenv("BATTERY_INSIGHTS_ENV_TEST_NAME", "from-env")

	cmd := &cobra.Command{Use: "test"}
	cli.InstallConfigFlag(cmd)
	vip := viper.New()

	require.NoError(t, cli.InitViperConfig("battery-insights-env-test", cmd, vip), "InitViperConfig should not fail")
	assert.Equal(t, "from-env", vip.GetString("name"), "Environment variable should be bound")
}
