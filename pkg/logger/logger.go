package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin zerolog wrapper with a typed field API.
type Logger struct {
	zl     zerolog.Logger
	digest *Digest
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	}

	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "fingenius").
		CallerWithSkipFrameCount(3).
		Logger()

	return &Logger{zl: zl}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying the given fields on every line.
// The child shares the parent's digest.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		k, v := f.GetKeyValue()
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger(), digest: l.digest}
}

func (l *Logger) Debug(msg string, fields ...Field) {
	write(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...Field) {
	write(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	write(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...Field) {
	write(l.zl.Error(), msg, fields)
	l.record("error", msg, fields)
}

func write(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		f.AddTo(event)
	}
	event.Msg(msg)
}

// AttachDigest starts aggregating error lines and publishing periodic digests.
func (l *Logger) AttachDigest(cfg *DigestConfig) {
	if l.digest != nil {
		l.digest.Close()
	}
	l.digest = NewDigest(cfg)
}

// DetachDigest flushes and stops the digest, if any.
func (l *Logger) DetachDigest() {
	if l.digest != nil {
		l.digest.Close()
		l.digest = nil
	}
}

func (l *Logger) record(level, msg string, fields []Field) {
	if l.digest == nil {
		return
	}

	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		if i := strings.Index(file, "FinGenius/"); i >= 0 {
			file = file[i+len("FinGenius/"):]
		}
		caller = fmt.Sprintf("%s:%d", file, line)
	}

	kv := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		k, v := f.GetKeyValue()
		kv[k] = v
	}
	l.digest.Add(level, msg, kv, caller)
}

// Field is a structured log attribute.
type Field interface {
	AddTo(event *zerolog.Event)
	GetKeyValue() (string, interface{})
}

type stringField struct{ k, v string }

func (f stringField) AddTo(e *zerolog.Event)             { e.Str(f.k, f.v) }
func (f stringField) GetKeyValue() (string, interface{}) { return f.k, f.v }

type int64Field struct {
	k string
	v int64
}

func (f int64Field) AddTo(e *zerolog.Event)             { e.Int64(f.k, f.v) }
func (f int64Field) GetKeyValue() (string, interface{}) { return f.k, f.v }

type floatField struct {
	k string
	v float64
}

func (f floatField) AddTo(e *zerolog.Event)             { e.Float64(f.k, f.v) }
func (f floatField) GetKeyValue() (string, interface{}) { return f.k, f.v }

type boolField struct {
	k string
	v bool
}

func (f boolField) AddTo(e *zerolog.Event)             { e.Bool(f.k, f.v) }
func (f boolField) GetKeyValue() (string, interface{}) { return f.k, f.v }

type errorField struct{ err error }

func (f errorField) AddTo(e *zerolog.Event) { e.Err(f.err) }
func (f errorField) GetKeyValue() (string, interface{}) {
	if f.err == nil {
		return "error", nil
	}
	return "error", f.err.Error()
}

type anyField struct {
	k string
	v interface{}
}

func (f anyField) AddTo(e *zerolog.Event)             { e.Interface(f.k, f.v) }
func (f anyField) GetKeyValue() (string, interface{}) { return f.k, f.v }

func String(key, value string) Field        { return stringField{key, value} }
func Int(key string, value int) Field       { return int64Field{key, int64(value)} }
func Int64(key string, value int64) Field   { return int64Field{key, value} }
func Float(key string, value float64) Field { return floatField{key, value} }
func Bool(key string, value bool) Field     { return boolField{key, value} }
func Error(err error) Field                 { return errorField{err} }
func Any(key string, value interface{}) Field {
	return anyField{key, value}
}

// Duration logs the value in milliseconds.
func Duration(key string, value time.Duration) Field {
	return int64Field{key, value.Milliseconds()}
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ", "))
}

// UserID and ActionID are the two identifiers most log lines carry.
func UserID(id string) Field   { return String("user_id", id) }
func ActionID(id string) Field { return String("action_id", id) }
