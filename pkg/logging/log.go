package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewConsoleLogger renders events as single human readable lines on w.
func NewConsoleLogger(w io.Writer) zerolog.Logger {
	// Color is disabled so log output stays free of ANSI escape codes
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("[ %s ]", i)
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

func SetupLogger() {
	log.Logger = NewConsoleLogger(os.Stderr)
}

func GetLogger() zerolog.Logger {
	return log.Logger
}

// ForFile returns the global logger with every event tagged by fileID.
func ForFile(fileID string) zerolog.Logger {
	return log.Logger.With().Str("file_id", fileID).Logger()
}
