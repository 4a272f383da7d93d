package log

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
)

var (
	separator    = []byte(" | ")
	errorSegment = []byte("error: ")
)

// ConsoleWriter reformats Logger lines for a terminal: the timestamp is
// rendered with TimeFormat, the level is padded and colored and a trailing
// error segment is shown in red. Lines it does not recognize pass through.
type ConsoleWriter struct {
	Out        io.Writer
	TimeFormat string
	NoColor    bool

	mu  sync.Mutex
	buf []byte
}

// NewConsoleWriter creates a new ConsoleWriter. A nil out discards output.
func NewConsoleWriter(out io.Writer) *ConsoleWriter {
	if out == nil {
		out = io.Discard
	}
	return &ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		buf:        make([]byte, 0, 512),
	}
}

// DefaultConsoleWriter returns a colored ConsoleWriter with a short time
// format. Its Out is io.Discard until set.
func DefaultConsoleWriter() *ConsoleWriter {
	w := NewConsoleWriter(nil)
	w.TimeFormat = "15:04:05"
	return w
}

// Write implements io.Writer. It reports len(p) on success so that callers
// see their whole line consumed.
func (w *ConsoleWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	first := bytes.Index(p, separator)
	if first < 0 {
		return w.Out.Write(p)
	}
	second := bytes.Index(p[first+len(separator):], separator)
	if second < 0 {
		return w.Out.Write(p)
	}
	second += first + len(separator)

	stamp := p[:first]
	level := levelFromName(p[first+len(separator) : second])
	msg := bytes.TrimSuffix(p[second+len(separator):], []byte("\n"))

	w.buf = w.buf[:0]
	w.buf = w.appendColored(w.buf, ColorCyan, w.formatTime(stamp))
	w.buf = append(w.buf, ' ')
	w.buf = append(w.buf, w.levelLabel(level)...)
	w.buf = append(w.buf, ' ')

	body, errText := splitError(msg)
	w.buf = append(w.buf, body...)
	if errText != nil {
		if len(body) > 0 {
			w.buf = append(w.buf, ' ')
		}
		w.buf = w.appendColored(w.buf, ColorRed, errText)
	}
	w.buf = append(w.buf, '\n')

	if _, err := w.Out.Write(w.buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *ConsoleWriter) formatTime(stamp []byte) []byte {
	if w.TimeFormat == "" {
		return stamp
	}
	t, err := time.ParseInLocation(defaultTimeFormat, string(stamp), time.Local)
	if err != nil {
		return stamp
	}
	return t.AppendFormat(nil, w.TimeFormat)
}

func (w *ConsoleWriter) appendColored(dst []byte, color string, s []byte) []byte {
	if w.NoColor {
		return append(dst, s...)
	}
	dst = append(dst, color...)
	dst = append(dst, s...)
	return append(dst, ColorReset...)
}

func (w *ConsoleWriter) levelLabel(level Level) string {
	return ColoredLevel(level, w.NoColor)
}

// splitError separates a trailing "error: ..." segment from msg.
func splitError(msg []byte) (body, errText []byte) {
	if bytes.HasPrefix(msg, errorSegment) {
		return nil, msg
	}
	marker := append(append([]byte{}, separator...), errorSegment...)
	if i := bytes.LastIndex(msg, marker); i >= 0 {
		return msg[:i], msg[i+len(separator):]
	}
	return msg, nil
}

func levelFromName(name []byte) Level {
	for i, n := range levelNames {
		if string(name) == n {
			return Level(i)
		}
	}
	return Level(-1)
}

// ColoredLevel returns the padded level label, colored unless noColor.
func ColoredLevel(level Level, noColor bool) string {
	var label, color string
	switch level {
	case DebugLevel:
		label, color = "| DEBUG |", ColorBlue
	case InfoLevel:
		label, color = "| INFO  |", ColorGreen
	case WarnLevel:
		label, color = "| WARN  |", ColorYellow
	case ErrorLevel:
		label, color = "| ERROR |", ColorRed
	case FatalLevel:
		label, color = "| FATAL |", ColorRed+ColorBold
	default:
		return "| UNKN  |"
	}
	if noColor {
		return label
	}
	return color + label + ColorReset
}
