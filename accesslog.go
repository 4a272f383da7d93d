package nstd

import (
	"strconv"
	"strings"
	"time"

	"github.com/Ptomaine/nstd-sub001/log"
)

// DefaultAccessLogFormat is used when access logging is enabled without a
// format.
//
// Available placeholders:
//   - ${remote_ip} - the client's IP address
//   - ${method} - the request method
//   - ${path} - the resource the routes were matched against
//   - ${pattern} - the pattern of the matched route
//   - ${status} - the status code sent, "-" when nothing was sent
//   - ${latency} - the dispatch latency
//   - ${latency_human} - the dispatch latency with a readable unit
//   - ${bytes_in} - the size of the request
//   - ${bytes_out} - the size of the response
//   - ${user_agent} - the User-Agent header
//   - ${referer} - the Referer header
//   - ${time} - the current time in the format "2006-01-02 15:04:05"
//   - ${query} - the raw query string
//   - ${error} - the handler failure, if any
const DefaultAccessLogFormat = "${status} | ${latency_human} | ${method} ${path} | ${error}"

// accessLogger writes one line per dispatched request.
type accessLogger struct {
	format string
	logger log.ILogger
	now    func() time.Time
}

func newAccessLogger(format string, logger log.ILogger) *accessLogger {
	if format == "" {
		format = DefaultAccessLogFormat
	}
	return &accessLogger{format: format, logger: logger, now: time.Now}
}

// log writes the line for c at a level picked from the status code.
func (a *accessLogger) log(c *Ctx, latency time.Duration) {
	if a == nil {
		return
	}

	status := "-"
	if c.status != 0 {
		status = intToString(c.status)
	}
	errText := ""
	if c.err != nil {
		// "error: " lets the console writer color the segment
		errText = "error: " + c.err.Error()
	}

	r := strings.NewReplacer(
		"${remote_ip}", remoteIP(c.RemoteAddr()),
		"${method}", c.request.MethodName(),
		"${path}", c.resource,
		"${pattern}", c.pattern,
		"${status}", status,
		"${latency}", latency.String(),
		"${latency_human}", formatLatency(latency),
		"${bytes_in}", intToString(len(c.raw)),
		"${bytes_out}", intToString(c.written),
		"${user_agent}", c.Header("User-Agent"),
		"${referer}", c.Header("Referer"),
		"${time}", a.now().Format("2006-01-02 15:04:05"),
		"${query}", c.uri.RawQuery(),
		"${error}", errText,
	)
	msg := strings.TrimRight(r.Replace(a.format), " |")

	switch {
	case c.status >= 500:
		a.logger.Error().Msg(msg)
	case c.status >= 400:
		a.logger.Warn().Msg(msg)
	default:
		a.logger.Info().Msg(msg)
	}
}

// intToString converts an integer to its string representation.
func intToString(n int) string {
	return strconv.Itoa(n)
}

// formatLatency formats a duration in a human-readable way with appropriate units (ns, µs, ms, s)
func formatLatency(d time.Duration) string {
	if d < time.Microsecond {
		return strconv.FormatInt(d.Nanoseconds(), 10) + "ns"
	}
	if d < time.Millisecond {
		return strconv.FormatFloat(float64(d.Nanoseconds())/float64(time.Microsecond), 'f', 2, 64) + "µs"
	}
	if d < time.Second {
		return strconv.FormatFloat(float64(d.Nanoseconds())/float64(time.Millisecond), 'f', 2, 64) + "ms"
	}
	return strconv.FormatFloat(float64(d.Nanoseconds())/float64(time.Second), 'f', 2, 64) + "s"
}
