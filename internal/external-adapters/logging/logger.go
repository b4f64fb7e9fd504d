// Package logging adapts zerolog to the domain Logger interface.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ochairo/decant/internal/domain/interfaces"
)

// LogFileRelPath is the log file location relative to the XDG state home
const LogFileRelPath = "decant/decant.log"

// Config controls logger construction
type Config struct {
	// Verbosity: 0 warn, 1 info, 2 debug, 3+ trace with caller
	Verbosity int
	// Console receives human-readable output; nil means stderr
	Console io.Writer
	// LogFile overrides the rotated log file path; "-" disables file logging
	LogFile string
	NoColor bool
}

// Logger implements interfaces.Logger on top of zerolog
type Logger struct {
	zl zerolog.Logger
}

// NewLogger wraps an existing zerolog logger
func NewLogger(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

// LevelFor maps the -v count to a zerolog level
func LevelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// Setup builds a logger writing to the console and, unless disabled, to a
// rotated file under the XDG state directory. The returned closer releases
// the file; it is never nil.
func Setup(cfg Config) (*Logger, io.Closer) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.Kitchen,
		NoColor:    cfg.NoColor,
	}}

	var closer io.Closer = nopCloser{}
	logFile, pathErr := resolveLogFile(cfg.LogFile)
	if logFile != "" {
		lj := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		writers = append(writers, lj)
		closer = lj
	}

	ctx := zerolog.New(io.MultiWriter(writers...)).
		Level(LevelFor(cfg.Verbosity)).
		With().Timestamp()
	if cfg.Verbosity >= 3 {
		ctx = ctx.Caller()
	}
	l := &Logger{zl: ctx.Logger()}

	if pathErr != nil {
		l.Warn("failed to resolve log file, logging to console only", interfaces.F("error", pathErr))
	}
	l.Debug("logger initialized", interfaces.F("verbosity", cfg.Verbosity), interfaces.F("log_file", logFile))
	return l, closer
}

func resolveLogFile(override string) (string, error) {
	switch override {
	case "-":
		return "", nil
	case "":
		return xdg.StateFile(LogFileRelPath)
	default:
		return override, nil
	}
}

// Component returns a child logger tagged with a component name
func (l *Logger) Component(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", name).Logger()}
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	withFields(l.zl.Debug(), fields).Msg(msg)
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	withFields(l.zl.Info(), fields).Msg(msg)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	withFields(l.zl.Warn(), fields).Msg(msg)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	withFields(l.zl.Error(), fields).Msg(msg)
}

func withFields(e *zerolog.Event, fields []interfaces.Field) *zerolog.Event {
	// A disabled level returns a nil event
	if e == nil {
		return e
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			e = e.AnErr(f.Key, v)
		case time.Duration:
			e = e.Dur(f.Key, v)
		case string:
			e = e.Str(f.Key, v)
		case []string:
			e = e.Strs(f.Key, v)
		case fmt.Stringer:
			e = e.Stringer(f.Key, v)
		default:
			e = e.Interface(f.Key, v)
		}
	}
	return e
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
