// Package constants is responsible for defining the constants used in the application.
// It also provides utility functions to get the default configuration and cache paths.
package constants

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// CmdName is the name of the command line tool.
	CmdName = "battery-insights"

	// DefaultAppFolder is the name of the default root folder.
	DefaultAppFolder = "battery-insights"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn

	// ReportNamespace is the XML namespace of the battery report document.
	ReportNamespace = "http://schemas.microsoft.com/battery/2012"

	// ReportsFolder is the name of the folder, under the cache path, holding collected results.
	ReportsFolder = "reports"

	// ViewLogFile is the file, under the cache path, receiving the logs of the terminal view.
	ViewLogFile = "view.log"

	// ReportExt is the extension of the collected result files.
	ReportExt = ".json"

	// MaxReports is the default number of collected results kept on disk.
	MaxReports = 30

	// DefaultAcquireTimeout is how long the platform tool may run before the acquisition is abandoned.
	DefaultAcquireTimeout = 60 * time.Second

	// DefaultReportDays is the number of days of history requested from the platform tool.
	DefaultReportDays = 14

	// DefaultListenHost is the default host the exporter listens on.
	DefaultListenHost = "127.0.0.1"

	// DefaultListenPort is the default port the exporter listens on.
	DefaultListenPort = 9123

	// DefaultRefreshInterval is the default delay between two report generations of the exporter.
	DefaultRefreshInterval = 15 * time.Minute

	// DefaultKafkaTopic is the topic results are published to when brokers are configured.
	DefaultKafkaTopic = "battery-insights.results"

	// DefaultMQTTTopic is the topic results are published to when an MQTT broker is configured.
	DefaultMQTTTopic = "battery-insights/results"
)

// Version is the version of the application. It is overridden at build time.
var Version = "Dev"

type options struct {
	baseDir func() (string, error)
}

type option func(*options)

// GetDefaultConfigPath is the default path to the configuration file.
func GetDefaultConfigPath(opts ...option) string {
	o := options{baseDir: os.UserConfigDir}
	for _, opt := range opts {
		opt(&o)
	}

	return filepath.Join(getBaseDir(o.baseDir), DefaultAppFolder)
}

// GetDefaultCachePath is the default path to the cache directory.
func GetDefaultCachePath(opts ...option) string {
	o := options{baseDir: os.UserCacheDir}
	for _, opt := range opts {
		opt(&o)
	}

	return filepath.Join(getBaseDir(o.baseDir), DefaultAppFolder)
}

// getBaseDir is a helper function to handle the case where the baseDir function returns an error, and instead return an empty string.
func getBaseDir(baseDirFunc func() (string, error)) string {
	dir, err := baseDirFunc()
	if err != nil {
		return ""
	}
	return dir
}
