package commands_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ubuntu/battery-insights/cmd/battery-insights/commands"
	"github.com/ubuntu/battery-insights/internal/acquire"
	"github.com/ubuntu/battery-insights/internal/collector"
	"github.com/ubuntu/battery-insights/internal/constants"
	"github.com/ubuntu/battery-insights/internal/exporter"
	"github.com/ubuntu/battery-insights/internal/pipeline"
	"github.com/ubuntu/battery-insights/internal/testutils"
)

// newAppForTests returns an app reading SampleReport, storing reports in cacheDir and printing to out.
func newAppForTests(t *testing.T, args []string, opts ...commands.Options) (app *commands.App, out *bytes.Buffer, cacheDir string) {
	t.Helper()

	cacheDir = t.TempDir()
	source := testutils.WriteReport(t, testutils.SampleReport)
	args = append(args, "--cache-dir", cacheDir, "--source-report", source)

	out = &bytes.Buffer{}
	opts = append([]commands.Options{commands.WithOutput(out)}, opts...)
	app, err := commands.New(opts...)
	require.NoError(t, err, "Setup: could not create app")

	app.SetArgs(args)
	return app, out, cacheDir
}

func collectedReports(t *testing.T, cacheDir string) []os.DirEntry {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(cacheDir, constants.ReportsFolder))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err, "Could not read the reports directory")
	return entries
}

func TestCollect(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		args         []string
		acquirer     acquire.Acquirer
		newCollector collector.Factory

		wantReports int
		wantOutput  string

		wantErr      bool
		wantUsageErr bool
	}{
		"Collect":                  {args: []string{"collect"}, wantReports: 1},
		"Collect with period":      {args: []string{"collect", "--period", "3600"}, wantReports: 1},
		"Collect force":            {args: []string{"collect", "--force"}, wantReports: 1},
		"Collect verbose":          {args: []string{"collect", "-vv"}, wantReports: 1},
		"Dry run prints text":      {args: []string{"collect", "--dry-run"}, wantOutput: "Battery report LAPTOP-42"},
		"Dry run prints json":      {args: []string{"collect", "--dry-run", "--format", "json"}, wantOutput: `"chargeDischargeCycles"`},
		"Dry run prints yaml":      {args: []string{"collect", "-d", "--format", "yaml"}, wantOutput: "chargeDischargeCycles:"},
		"Dry run with max reports": {args: []string{"collect", "-d", "--max-reports", "2"}, wantOutput: "Health: 90.00%"},

		// Error cases
		"Error on unknown format":     {args: []string{"collect", "--format", "xml"}, wantErr: true},
		"Error on missing report":     {args: []string{"collect"}, acquirer: acquire.File{Path: "does-not-exist.xml"}, wantErr: true},
		"Error on collector creation": {args: []string{"collect"}, newCollector: failingCollector, wantErr: true},
		"Error on arguments":          {args: []string{"collect", "extra"}, wantErr: true, wantUsageErr: true},
		"Error on bad flag":           {args: []string{"collect", "--bad-flag"}, wantErr: true, wantUsageErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var opts []commands.Options
			if tc.acquirer != nil {
				opts = append(opts, commands.WithAcquirer(tc.acquirer))
			}
			if tc.newCollector != nil {
				opts = append(opts, commands.WithNewCollector(tc.newCollector))
			}
			app, out, cacheDir := newAppForTests(t, tc.args, opts...)

			err := app.Run()
			if tc.wantErr {
				require.Error(t, err, "Run should return an error")
				assert.Equal(t, tc.wantUsageErr, app.UsageError(), "Unexpected usage error state")
				assert.Empty(t, collectedReports(t, cacheDir), "No report should be written on error")
				return
			}
			require.NoError(t, err, "Run should not return an error")
			assert.False(t, app.UsageError(), "Run should not be a usage error")

			assert.Len(t, collectedReports(t, cacheDir), tc.wantReports, "Unexpected number of collected reports")
			if tc.wantOutput != "" {
				assert.Contains(t, out.String(), tc.wantOutput, "Dry run should print the insights")
			} else {
				assert.Empty(t, out.String(), "Collect should not print anything")
			}
		})
	}
}

func TestCollectTwiceInPeriod(t *testing.T) {
	t.Parallel()

	app, _, cacheDir := newAppForTests(t, []string{"collect", "--period", "86400"})
	require.NoError(t, app.Run(), "Setup: first collect should not fail")

	second, err := commands.New(commands.WithOutput(&bytes.Buffer{}))
	require.NoError(t, err, "Setup: could not create app")
	second.SetArgs([]string{"collect", "--period", "86400", "--cache-dir", cacheDir, "--source-report", testutils.WriteReport(t, testutils.SampleReport)})

	err = second.Run()
	require.ErrorIs(t, err, collector.ErrDuplicateReport, "Second collect in the same period should fail")
	assert.Len(t, collectedReports(t, cacheDir), 1, "Only one report should be kept")
}

func TestShow(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		args      func(dir string) []string
		collected bool

		wantOutput  string
		wantResults int

		wantErr bool
	}{
		"Show battery report": {
			args:       func(dir string) []string { return []string{"show", filepath.Join(dir, "a.xml")} },
			wantOutput: "Battery report LAPTOP-42",
		},
		"Show glob as json": {
			args:        func(dir string) []string { return []string{"show", filepath.Join(dir, "*.xml"), "--format", "json"} },
			wantResults: 2,
		},
		"Show recursive glob": {
			args:        func(dir string) []string { return []string{"show", filepath.Join(dir, "**", "result.json"), "--format", "json"} },
			wantResults: 1,
		},
		"Show several files": {
			args:        func(dir string) []string { return []string{"show", "--format=json", filepath.Join(dir, "a.xml"), filepath.Join(dir, "b.xml")} },
			wantResults: 2,
		},
		"Show last collected": {
			args:       func(string) []string { return []string{"show"} },
			collected:  true,
			wantOutput: "Charge/discharge cycles: 2",
		},
		"Show collected result as toml": {
			args:       func(dir string) []string { return []string{"show", filepath.Join(dir, "nested", "result.json"), "--format", "toml"} },
			wantOutput: `source = `,
		},

		// Error cases
		"Error without collected report": {args: func(string) []string { return []string{"show"} }, wantErr: true},
		"Error on unsupported file":      {args: func(dir string) []string { return []string{"show", filepath.Join(dir, "notes.txt")} }, wantErr: true},
		"Error on glob without match":    {args: func(dir string) []string { return []string{"show", filepath.Join(dir, "*.csv")} }, wantErr: true},
		"Error on invalid xml":           {args: func(dir string) []string { return []string{"show", filepath.Join(dir, "broken.xml")} }, wantErr: true},
		"Error on invalid json":          {args: func(dir string) []string { return []string{"show", filepath.Join(dir, "broken.json")} }, wantErr: true},
		"Error on missing file":          {args: func(dir string) []string { return []string{"show", filepath.Join(dir, "missing.json")} }, wantErr: true},
		"Error on unknown format":        {args: func(dir string) []string { return []string{"show", filepath.Join(dir, "a.xml"), "--format", "csv"} }, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := showFixtures(t)
			app, out, cacheDir := newAppForTests(t, tc.args(dir))
			if tc.collected {
				collect, err := commands.New(commands.WithOutput(&bytes.Buffer{}))
				require.NoError(t, err, "Setup: could not create app")
				collect.SetArgs([]string{"collect", "--cache-dir", cacheDir, "--source-report", filepath.Join(dir, "a.xml")})
				require.NoError(t, collect.Run(), "Setup: could not collect a report")
			}

			err := app.Run()
			if tc.wantErr {
				require.Error(t, err, "Run should return an error")
				return
			}
			require.NoError(t, err, "Run should not return an error")

			if tc.wantOutput != "" {
				assert.Contains(t, out.String(), tc.wantOutput, "Unexpected output")
			}
			if tc.wantResults > 0 {
				var got []pipeline.Result
				require.NoError(t, json.Unmarshal(out.Bytes(), &got), "Output should be a JSON array")
				assert.Len(t, got, tc.wantResults, "Unexpected number of results")
			}
		})
	}
}

func TestShowConfigFile(t *testing.T) {
	t.Parallel()

	conf := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(conf, []byte("show:\n  format: json\n"), 0600), "Setup: could not write config file")

	dir := showFixtures(t)
	app, out, _ := newAppForTests(t, []string{"show", filepath.Join(dir, "a.xml"), "--config", conf})
	require.NoError(t, app.Run(), "Run should not return an error")

	var got pipeline.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &got), "Format from the configuration file should be used")
	assert.Equal(t, "LAPTOP-42", got.Report.SystemInfo.ComputerName, "Unexpected computer name")
}

func TestView(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		args func(dir string) []string

		wantErr bool
	}{
		"View generated report": {args: func(string) []string { return []string{"view"} }},
		"View battery report":   {args: func(dir string) []string { return []string{"view", filepath.Join(dir, "a.xml")} }},
		"View collected result": {args: func(dir string) []string { return []string{"view", filepath.Join(dir, "nested", "result.json")} }},

		"Error on invalid result":   {args: func(dir string) []string { return []string{"view", filepath.Join(dir, "broken.json")} }, wantErr: true},
		"Error on too many files":   {args: func(dir string) []string { return []string{"view", "a.xml", "b.xml"} }, wantErr: true},
		"Error on unsupported file": {args: func(dir string) []string { return []string{"view", filepath.Join(dir, "notes.txt")} }, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			screen := tcell.NewSimulationScreen("UTF-8")
			require.NoError(t, screen.Init(), "Setup: could not initialise screen")
			screen.SetSize(120, 40)
			screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

			dir := showFixtures(t)
			app, _, _ := newAppForTests(t, tc.args(dir), commands.WithScreen(screen))

			done := make(chan error, 1)
			go func() { done <- app.Run() }()

			select {
			case err := <-done:
				if tc.wantErr {
					require.Error(t, err, "Run should return an error")
					return
				}
				require.NoError(t, err, "Run should not return an error")
			case <-time.After(5 * time.Second):
				app.Quit()
				t.Fatal("View should quit on q")
			}
		})
	}
}

func TestViewLogsToFile(t *testing.T) {
	t.Parallel()

	const noBatteries = `<BatteryReport xmlns="http://schemas.microsoft.com/battery/2012"><Batteries/></BatteryReport>`

	tests := map[string]struct {
		changeTo string

		wantLogs []string
	}{
		"Logs of the view go to the log file": {
			wantLogs: []string{"Battery report does not list any battery"},
		},
		"Changed report is reloaded": {
			changeTo: testutils.SampleReport,
			wantLogs: []string{"Watching battery report", "Battery report changed", "batteries=1"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			screen := tcell.NewSimulationScreen("UTF-8")
			require.NoError(t, screen.Init(), "Setup: could not initialise screen")
			screen.SetSize(120, 40)

			path := filepath.Join(t.TempDir(), "report.xml")
			require.NoError(t, os.WriteFile(path, []byte(noBatteries), 0600), "Setup: could not write report")

			app, out, cacheDir := newAppForTests(t, []string{"view", path, "-vv"}, commands.WithScreen(screen))
			logFile := filepath.Join(cacheDir, constants.ViewLogFile)
			logContains := func(s string) func() bool {
				return func() bool {
					data, err := os.ReadFile(logFile)
					return err == nil && strings.Contains(string(data), s)
				}
			}

			done := make(chan error, 1)
			go func() { done <- app.Run() }()

			require.Eventually(t, logContains("does not list any battery"), 5*time.Second, 10*time.Millisecond,
				"First generation should be logged to the view log file")
			if tc.changeTo != "" {
				require.NoError(t, os.WriteFile(path, []byte(tc.changeTo), 0600), "Setup: could not update report")
			}
			for _, l := range tc.wantLogs {
				require.Eventually(t, logContains(l), 5*time.Second, 10*time.Millisecond, "View log should contain %q", l)
			}

			screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
			select {
			case err := <-done:
				require.NoError(t, err, "Run should not return an error")
			case <-time.After(5 * time.Second):
				app.Quit()
				t.Fatal("View should quit on q")
			}
			assert.Empty(t, out.String(), "View should not write to the output")
		})
	}
}

func TestServe(t *testing.T) {
	t.Parallel()

	app, _, _ := newAppForTests(t, []string{"serve", "--listen-port", "0", "--interval", "0"})

	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	s := app.WaitServer()
	require.NotNil(t, s, "Serve should start a server")
	base := fmt.Sprintf("http://%s", s.Addr())

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err, "Health request should not fail")
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "Server should be starting before the first generation")

	resp, err = http.Post(base+"/generate", "", nil)
	require.NoError(t, err, "Generate request should not fail")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "Generation from the source report should succeed")

	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err, "Health request should not fail")
	var h exporter.Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h), "Health should be JSON")
	resp.Body.Close()
	assert.Equal(t, exporter.StatusOK, h.Status, "Server should be healthy after a generation")

	app.Quit()
	select {
	case err := <-done:
		require.NoError(t, err, "Run should not return an error after Quit")
	case <-time.After(5 * time.Second):
		t.Fatal("Serve should stop on Quit")
	}
}

func TestServeErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		args []string
	}{
		"Error on invalid port":        {args: []string{"serve", "--listen-port", "-1"}},
		"Error on empty kafka topic":   {args: []string{"serve", "--listen-port", "0", "--kafka-brokers", "localhost:9092", "--kafka-topic", " "}},
		"Error on empty mqtt topic":    {args: []string{"serve", "--listen-port", "0", "--mqtt-broker", "tcp://localhost:1883", "--mqtt-topic", ""}},
		"Error on invalid duration":    {args: []string{"serve", "--interval", "soon"}},
		"Error on unexpected argument": {args: []string{"serve", "now"}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			app, _, _ := newAppForTests(t, tc.args)
			require.Error(t, app.Run(), "Run should return an error")
		})
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	app, out, _ := newAppForTests(t, []string{"version"})
	require.NoError(t, app.Run(), "Run should not return an error")
	assert.Equal(t, constants.CmdName+"\t"+constants.Version+"\n", out.String(), "Unexpected version output")
}

// showFixtures writes battery reports and results that can be shown, and returns their directory.
func showFixtures(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range []string{"a.xml", "b.xml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(testutils.SampleReport), 0600), "Setup: could not write report")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.xml"), []byte("<BatteryReport"), 0600), "Setup: could not write report")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0600), "Setup: could not write result")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("notes"), 0600), "Setup: could not write notes")

	r, err := pipeline.New().FromFile(filepath.Join(dir, "a.xml"))
	require.NoError(t, err, "Setup: could not compute result")
	data, err := json.Marshal(r)
	require.NoError(t, err, "Setup: could not marshal result")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0750), "Setup: could not create nested directory")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "result.json"), data, 0600), "Setup: could not write result")

	return dir
}

func failingCollector(collector.Generator, string, uint, bool, ...collector.Options) (collector.Collector, error) {
	return collector.Collector{}, errors.New("requested error")
}
