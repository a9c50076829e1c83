package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

// Logger wraps a zap.Logger. All packages in this module log through this
// wrapper so the backing implementation stays in one place.
type Logger struct {
	l     *zap.Logger
	level zap.AtomicLevel
}

type Level = zapcore.Level

const (
	DebugLevel = zap.DebugLevel
	InfoLevel  = zap.InfoLevel
	WarnLevel  = zap.WarnLevel
	ErrorLevel = zap.ErrorLevel
	FatalLevel = zap.FatalLevel
)

type Field = zap.Field

// field constructors, re-exported so call sites only import this package
var (
	Skip          = zap.Skip
	Binary        = zap.Binary
	Bool          = zap.Bool
	Duration      = zap.Duration
	Float64       = zap.Float64
	Int           = zap.Int
	Int32         = zap.Int32
	Int64         = zap.Int64
	String        = zap.String
	Uint          = zap.Uint
	Uint32        = zap.Uint32
	Time          = zap.Time
	Any           = zap.Any
	ErrorField    = zap.Error
	NamedError    = zap.NamedError
	WithCaller    = zap.WithCaller
	AddStacktrace = zap.AddStacktrace
	AddCallerSkip = zap.AddCallerSkip
)

type Option = zap.Option

func ParseLevel(text string) (Level, error) {
	return zapcore.ParseLevel(text)
}

// New creates a json-encoded production style logger.
// Filter rules (moul.io/zapfilter syntax) may restrict output per named logger.
func New(writer io.Writer, level Level, opts ...Option) *Logger {
	return newLogger(writer, level, prodEncoder(), "", opts...)
}

// DevLogger creates a console style logger for interactive use.
func DevLogger(writer io.Writer, level Level, opts ...Option) *Logger {
	return newLogger(writer, level, devEncoder(), "", opts...)
}

// NewWithFilters behaves like New but applies zapfilter rules,
// e.g. "debug:backend.* info:*".
func NewWithFilters(writer io.Writer, level Level, rules string, opts ...Option) *Logger {
	return newLogger(writer, level, prodEncoder(), rules, opts...)
}

func newLogger(
	writer io.Writer, level Level, enc zapcore.Encoder, rules string, opts ...Option,
) *Logger {
	if writer == nil {
		panic("the log writer is empty")
	}
	lvl := zap.NewAtomicLevelAt(level)
	core := zapcore.NewCore(enc, zapcore.AddSync(writer), lvl)
	if rules != "" {
		core = zapfilter.NewFilteringCore(core, zapfilter.MustParseRules(rules))
	}
	return &Logger{l: zap.New(core, opts...), level: lvl}
}

func prodEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func devEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func (l *Logger) Debug(msg string, fields ...Field) { l.l.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.l.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.l.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.l.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...Field) { l.l.Fatal(msg, fields...) }

// Named returns a sub-logger with the given name appended.
// Names are used by filter rules to control per-component verbosity.
func (l *Logger) Named(name string) *Logger {
	return &Logger{l: l.l.Named(name), level: l.level}
}

func (l *Logger) DebugEnabled() bool {
	return l.level.Enabled(DebugLevel)
}

// SetLevel changes the level at runtime. Sub-loggers created with Named
// share the level, so adjusting the parent adjusts them all.
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level)
}

func (l *Logger) Sync() error {
	return l.l.Sync()
}

var std = DevLogger(os.Stderr, InfoLevel)

// Default returns the package level logger.
func Default() *Logger { return std }

// ResetDefault replaces the package level logger.
// Not safe for concurrent use; call it once during startup.
func ResetDefault(l *Logger) {
	std = l
	Debug = std.Debug
	Info = std.Info
	Warn = std.Warn
	Error = std.Error
	Fatal = std.Fatal
}

// GetLogger returns a named sub-logger of the default logger.
func GetLogger(name string) *Logger {
	return std.Named(name)
}

var (
	Debug = std.Debug
	Info  = std.Info
	Warn  = std.Warn
	Error = std.Error
	Fatal = std.Fatal
)

func Sync() error {
	if std != nil {
		return std.Sync()
	}
	return fmt.Errorf("no default logger present")
}
