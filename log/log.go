// Package log is a small leveled logger.
//
// A Logger writes one line per event in the form
//
//	2006-01-02 15:04:05 | LEVEL | message key=value error: text
//
// which ConsoleWriter understands and colors for terminals.
package log

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ILogger is the interface that wraps the basic logging methods.
type ILogger interface {
	// Debug returns a debug level event
	Debug() IEvent
	// Info returns an info level event
	Info() IEvent
	// Warn returns a warn level event
	Warn() IEvent
	// Error returns an error level event
	Error() IEvent
	// Fatal returns a fatal level event
	Fatal() IEvent
	// SetLevel sets the log level
	SetLevel(level Level)
	// GetLevel returns the current log level
	GetLevel() Level
}

// IEvent is a log line under construction. Disabled levels hand out a nil
// *Event, so implementations must accept a nil receiver.
type IEvent interface {
	// Err attaches an error
	Err(err error) IEvent
	// Str attaches a string field
	Str(key, value string) IEvent
	// Int attaches an integer field
	Int(key string, value int) IEvent
	// Dur attaches a duration field
	Dur(key string, value time.Duration) IEvent
	// Msg writes the event
	Msg(msg string)
	// Msgf writes the event with a formatted message
	Msgf(format string, v ...any)
}

// Level represents the log level
type Level int8

const (
	// DebugLevel defines debug log level
	DebugLevel Level = iota
	// InfoLevel defines info log level
	InfoLevel
	// WarnLevel defines warn log level
	WarnLevel
	// ErrorLevel defines error log level
	ErrorLevel
	// FatalLevel defines fatal log level
	FatalLevel
)

var levelNames = [...]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
	FatalLevel: "FATAL",
}

// String returns the string representation of the log level
func (l Level) String() string {
	if l >= DebugLevel && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "LEVEL(" + strconv.Itoa(int(l)) + ")"
}

// ParseLevel maps a level name, in any case, to its Level.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	if strings.EqualFold(s, "warning") {
		return WarnLevel, nil
	}
	return InfoLevel, fmt.Errorf("log: unknown level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseLevel.
func (l *Level) UnmarshalText(text []byte) error {
	level, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// LoggerConfig represents the configuration for a logger.
type LoggerConfig struct {
	// Writer is the output writer, os.Stdout when nil
	Writer io.Writer
	// Level is the log level
	Level Level
	// TimeFormat is the format for timestamps
	TimeFormat string
}

const defaultTimeFormat = "2006-01-02 15:04:05"

// DefaultLoggerConfig returns the default configuration for a logger.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:      InfoLevel,
		TimeFormat: defaultTimeFormat,
	}
}

// Logger writes leveled events to an io.Writer.
type Logger struct {
	mu         sync.Mutex
	writer     io.Writer
	level      atomic.Int32
	buf        []byte
	timeFormat string
	now        func() time.Time
}

// New creates a new logger with the given writer and level
func New(writer io.Writer, level Level) *Logger {
	cfg := DefaultLoggerConfig()
	cfg.Writer = writer
	cfg.Level = level
	return NewWithConfig(cfg)
}

// NewWithConfig creates a new logger with the given configuration
func NewWithConfig(config LoggerConfig) *Logger {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	l := &Logger{
		writer:     config.Writer,
		buf:        make([]byte, 0, 512),
		timeFormat: config.TimeFormat,
		now:        time.Now,
	}
	l.level.Store(int32(config.Level))
	return l
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level Level) { l.level.Store(int32(level)) }

// GetLevel returns the current log level
func (l *Logger) GetLevel() Level { return Level(l.level.Load()) }

// SetOutput replaces the writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.writer = w
	l.mu.Unlock()
}

func (l *Logger) event(level Level) IEvent {
	if level < l.GetLevel() {
		return (*Event)(nil)
	}
	return &Event{logger: l, level: level}
}

func (l *Logger) Debug() IEvent { return l.event(DebugLevel) }
func (l *Logger) Info() IEvent  { return l.event(InfoLevel) }
func (l *Logger) Warn() IEvent  { return l.event(WarnLevel) }
func (l *Logger) Error() IEvent { return l.event(ErrorLevel) }

// Fatal events are written regardless of the level. They do not exit.
func (l *Logger) Fatal() IEvent { return &Event{logger: l, level: FatalLevel} }

// Printf writes an info line. It lets a Logger stand in wherever a
// Printf-style logger is expected.
func (l *Logger) Printf(format string, v ...any) {
	l.Info().Msgf(format, v...)
}

// Event represents a log event
type Event struct {
	logger *Logger
	level  Level
	err    error
	fields []byte
}

// Err adds an error to the event
func (e *Event) Err(err error) IEvent {
	if e == nil {
		return e
	}
	e.err = err
	return e
}

func (e *Event) Str(key, value string) IEvent {
	if e == nil {
		return e
	}
	e.fields = append(e.fields, ' ')
	e.fields = append(e.fields, key...)
	e.fields = append(e.fields, '=')
	if value == "" || strings.ContainsAny(value, " \t\"=|") {
		e.fields = strconv.AppendQuote(e.fields, value)
	} else {
		e.fields = append(e.fields, value...)
	}
	return e
}

func (e *Event) Int(key string, value int) IEvent {
	if e == nil {
		return e
	}
	e.fields = append(e.fields, ' ')
	e.fields = append(e.fields, key...)
	e.fields = append(e.fields, '=')
	e.fields = strconv.AppendInt(e.fields, int64(value), 10)
	return e
}

func (e *Event) Dur(key string, value time.Duration) IEvent {
	if e == nil {
		return e
	}
	return e.Str(key, value.String())
}

// Msg logs a message
func (e *Event) Msg(msg string) {
	if e == nil {
		return
	}
	e.logger.write(e, msg)
}

// Msgf logs a formatted message
func (e *Event) Msgf(format string, v ...any) {
	if e == nil {
		return
	}
	e.logger.write(e, fmt.Sprintf(format, v...))
}

func (l *Logger) write(e *Event, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = l.now().AppendFormat(l.buf[:0], l.timeFormat)
	l.buf = append(l.buf, " | "...)
	l.buf = append(l.buf, e.level.String()...)
	l.buf = append(l.buf, " | "...)
	l.buf = append(l.buf, msg...)
	l.buf = append(l.buf, e.fields...)
	if e.err != nil {
		if len(msg) > 0 || len(e.fields) > 0 {
			l.buf = append(l.buf, " | "...)
		}
		l.buf = append(l.buf, "error: "...)
		l.buf = append(l.buf, e.err.Error()...)
	}
	l.buf = append(l.buf, '\n')

	_, _ = l.writer.Write(l.buf)
}
