package nstd

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ptomaine/nstd-sub001/internal/httpparser"
	"github.com/Ptomaine/nstd-sub001/log"
)

// Config represents server configuration options.
type Config struct {
	// ReadBufferSize is the per-connection inbound buffer capacity of the
	// event loop.
	ReadBufferSize int `json:"read_buffer_size"`

	// MaxRequestBytes caps the size of one request, headers and body
	// included. Connections sending more are closed.
	MaxRequestBytes int `json:"max_request_bytes"`

	// MaxHeaderBytes caps the header block the framer scans for.
	MaxHeaderBytes int `json:"max_header_bytes"`

	// Multicore runs one event loop per CPU.
	Multicore bool `json:"multicore"`

	// TCPKeepAlive is the keep-alive period of accepted connections, 0 to
	// disable.
	TCPKeepAlive time.Duration `json:"tcp_keep_alive"`

	// Offload dispatches requests on the worker pool instead of the event
	// loop.
	Offload bool `json:"offload"`

	// Workers is the size of the worker pool; 0 picks one from the CPU count.
	Workers int `json:"workers"`

	// RateLimit enables per-client rate limiting when set.
	RateLimit *RateLimitConfig `json:"rate_limit"`

	// Compress gzips responses of at least 1 KiB for clients that accept it.
	Compress bool `json:"compress"`

	// CompressLevel is the gzip level, from -2 (Huffman only) to 9. 0 picks
	// the gzip default.
	CompressLevel int `json:"compress_level"`

	// AccessLog writes one log line per request.
	AccessLog bool `json:"access_log"`

	// AccessLogFormat overrides DefaultAccessLogFormat.
	AccessLogFormat string `json:"access_log_format"`

	// DisableStartupMessage determines whether to print the startup message when the server starts.
	DisableStartupMessage bool `json:"disable_startup_message"`

	// LogLevel is the level of the console logger set up by New.
	LogLevel log.Level `json:"log_level"`

	// Logger replaces the console logger. Optional.
	Logger log.ILogger `json:"-"`

	// Registerer receives the server metrics. Nil disables registration.
	Registerer prometheus.Registerer `json:"-"`

	// RootPath is the directory static content is served from.
	RootPath string `json:"root_path"`
}

// RateLimitConfig holds the per-client rate limiting settings.
type RateLimitConfig struct {
	Requests  int           `json:"requests"`   // Max requests per duration
	Burst     int           `json:"burst"`      // Burst size, Requests when not positive
	Duration  time.Duration `json:"duration"`   // Duration window (e.g., 1 minute)
	ExpiresIn time.Duration `json:"expires_in"` // Visitor entry expiration
}

// DefaultConfig returns a default server configuration.
// The default configuration includes:
// - ReadBufferSize: 64 KiB
// - MaxRequestBytes: 4 MiB
// - MaxHeaderBytes: 1 MiB
// - Multicore: true
// - TCPKeepAlive: 15 seconds
// - CompressLevel: gzip default
// - LogLevel: info
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:  64 * 1024,
		MaxRequestBytes: 4 << 20,
		MaxHeaderBytes:  httpparser.DefaultMaxHeaderBytes,
		Multicore:       true,
		TCPKeepAlive:    15 * time.Second,
		CompressLevel:   -1,
		LogLevel:        log.InfoLevel,
	}
}

// withDefaults fills zero sizes from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.MaxRequestBytes <= 0 {
		c.MaxRequestBytes = def.MaxRequestBytes
	}
	if c.MaxHeaderBytes <= 0 {
		c.MaxHeaderBytes = def.MaxHeaderBytes
	}
	if c.CompressLevel == 0 || c.CompressLevel < -2 || c.CompressLevel > 9 {
		c.CompressLevel = def.CompressLevel
	}
	return c
}
