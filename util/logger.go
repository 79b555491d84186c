// Package util provides low-level helpers shared by all other packages.
package util

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// traceLevel sits below zap's DebugLevel and carries [DBG] lines, so
// that zap's DebugLevel can carry [VRB].
const traceLevel = zapcore.DebugLevel - 1

// Logger writes levelled messages to stderr with optional timestamps
// and level prefixes.  Formatting and writing are delegated to a zap
// console core; verbosity gating stays here so the -v count maps
// directly onto what gets printed.
type Logger struct {
	level      LogLevel
	name       string
	output     io.Writer
	timestamps bool // if true, prepend HH:MM:SS.mmm timestamps
	color      bool
	sugar      *zap.SugaredLogger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	l := &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
	}
	l.rebuild()
	return l
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) { l.timestamps = on; l.rebuild() }

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) { l.output = w; l.rebuild() }

// SetColor enables ANSI-colored level prefixes.
func (l *Logger) SetColor(on bool) { l.color = on; l.rebuild() }

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Named returns a child logger whose lines carry the component name
// after the level prefix.  Output settings are inherited at the time
// of the call.
func (l *Logger) Named(name string) *Logger {
	child := *l
	if child.name != "" {
		child.name += "." + name
	} else {
		child.name = name
	}
	child.rebuild()
	return &child
}

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.sugar.Infof(format, args...)
	}
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.sugar.Warnf(format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.level >= LogVerbose {
		l.sugar.Debugf(format, args...)
	}
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogDebug {
		l.sugar.Logf(traceLevel, format, args...)
	}
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes any buffered output.
func (l *Logger) Sync() error { return l.sugar.Sync() }

func (l *Logger) rebuild() {
	enc := zapcore.EncoderConfig{
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      levelEncoder(l.color),
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
	if l.timestamps {
		enc.TimeKey = "ts"
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.Lock(zapcore.AddSync(l.output)),
		zap.LevelEnablerFunc(func(zapcore.Level) bool { return true }),
	)
	base := zap.New(core)
	if l.name != "" {
		base = base.Named(l.name)
	}
	l.sugar = base.Sugar()
}

// ── level prefixes ───────────────────────────────────────────────────

var levelTags = map[zapcore.Level]string{
	traceLevel:         "DBG",
	zapcore.DebugLevel: "VRB",
	zapcore.InfoLevel:  "INF",
	zapcore.WarnLevel:  "WRN",
	zapcore.ErrorLevel: "ERR",
}

var levelColors = map[zapcore.Level]string{
	traceLevel:         "\x1b[90m",
	zapcore.DebugLevel: "\x1b[36m",
	zapcore.InfoLevel:  "\x1b[32m",
	zapcore.WarnLevel:  "\x1b[33m",
	zapcore.ErrorLevel: "\x1b[31m",
}

func levelEncoder(color bool) zapcore.LevelEncoder {
	return func(lvl zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
		tag, ok := levelTags[lvl]
		if !ok {
			tag = lvl.CapitalString()
		}
		if c, ok := levelColors[lvl]; ok && color {
			pae.AppendString(c + "[" + tag + "]\x1b[0m")
			return
		}
		pae.AppendString("[" + tag + "]")
	}
}
