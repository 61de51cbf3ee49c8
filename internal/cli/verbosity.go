package cli

import (
	"log/slog"

	"github.com/ubuntu/battery-insights/internal/constants"
)

// SetVerbosity sets the logging level for the default logger based on the verbose flag count.
//
// This function has the same behaviors as slog.SetLogLoggerLevel.
func SetVerbosity(level int) {
	slog.SetLogLoggerLevel(Level(level))
}

// Level returns the logging level matching the verbose flag count.
func Level(verbosity int) slog.Level {
	switch verbosity {
	case 0:
		return constants.DefaultLogLevel
	case 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
