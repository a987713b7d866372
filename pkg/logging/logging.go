package logging

import (
	"io"
	"os"
	"runtime"
	"time"

	"cloud.google.com/go/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceName is attached to every log line.
const ServiceName = "autopay"

// SetupLogger configures the global zerolog logger to write to stdout.
func SetupLogger(version string, debug, human bool) {
	zerolog.TimestampFieldName = "timestamp"
	zerolog.TimeFieldFormat = time.RFC3339Nano
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = NewLogger(os.Stdout, version, human)
}

// NewLogger builds a logger tagged with the build version and the severity
// field understood by Cloud Logging. Human loggers write console output.
func NewLogger(w io.Writer, version string, human bool) zerolog.Logger {
	if human {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		Hook(severityHook{}).
		With().
		Timestamp().
		Str("service", ServiceName).
		Str("version", version).
		Str("goversion", runtime.Version()).
		Logger()
}

type severityHook struct{}

func (severityHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	e.Str("severity", levelToSeverity(level).String())
}

func levelToSeverity(level zerolog.Level) logging.Severity {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return logging.Debug
	case zerolog.WarnLevel:
		return logging.Warning
	case zerolog.ErrorLevel:
		return logging.Error
	case zerolog.FatalLevel:
		return logging.Alert
	case zerolog.PanicLevel:
		return logging.Emergency
	default:
		return logging.Info
	}
}
