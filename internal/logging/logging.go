// Package logging constructs the structured, leveled logger used
// throughout SoundShare, replacing the original implementation's wall-clock
// "[HH:MM:SS.mmm] [LEVEL] message" convention with component-tagged
// structured fields.
package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

// New builds a root logger at the given level ("debug", "info", "warn", or
// "error"; anything else defaults to info), writing timestamped, leveled
// output to stderr.
func New(level string) *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
	l.SetLevel(parseLevel(level))
	return l
}

// Component returns a child logger tagged with the given component name,
// the Go-idiomatic equivalent of the original's "[component] message"
// prefix.
func Component(root *log.Logger, name string) *log.Logger {
	return root.With("component", name)
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
