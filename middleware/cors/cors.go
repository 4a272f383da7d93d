package cors

import (
	"strconv"
	"strings"

	nstd "github.com/Ptomaine/nstd-sub001"
)

// Config represents the configuration for the CORS middleware.
type Config struct {
	// AllowOrigins is a comma-separated list of origins a cross-domain request can be executed from.
	// If the special "*" value is present, all origins will be allowed.
	// Default value is "*"
	AllowOrigins string

	// AllowMethods is a comma-separated list of methods the client is allowed to use with
	// cross-domain requests. Default value is simple methods (GET, POST, PUT, DELETE, HEAD, OPTIONS)
	AllowMethods string

	// AllowHeaders is a comma-separated list of non-simple headers the client is allowed to use with
	// cross-domain requests. Default value is ""
	AllowHeaders string

	// ExposeHeaders indicates which headers are safe to expose to the API of a CORS
	// API specification as a comma-separated list. Default value is ""
	ExposeHeaders string

	// AllowCredentials indicates whether the request can include user credentials like
	// cookies, HTTP authentication or client side SSL certificates. Default value is false
	AllowCredentials bool

	// MaxAge indicates how long (in seconds) the results of a preflight request
	// can be cached. Default value is 0 which stands for no max age.
	MaxAge int
}

const (
	wildcard       = "*"
	defaultMethods = "GET,POST,PUT,DELETE,HEAD,OPTIONS,PATCH"

	headerAllowOrigin      = "Access-Control-Allow-Origin"
	headerAllowMethods     = "Access-Control-Allow-Methods"
	headerAllowHeaders     = "Access-Control-Allow-Headers"
	headerAllowCredentials = "Access-Control-Allow-Credentials"
	headerExposeHeaders    = "Access-Control-Expose-Headers"
	headerMaxAge           = "Access-Control-Max-Age"
	headerRequestHeaders   = "Access-Control-Request-Headers"
)

// DefaultConfig returns the default configuration for the CORS middleware.
func DefaultConfig() Config {
	return Config{
		AllowOrigins: wildcard,
		AllowMethods: defaultMethods,
	}
}

// New returns a handler that adds CORS headers to the response of the
// request. Preflight OPTIONS requests are answered with 204 No Content; any
// other request continues down the chain.
// If no config is provided, it uses the default config.
func New(config ...Config) nstd.Handler {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.AllowMethods == "" {
		cfg.AllowMethods = defaultMethods
	}

	var maxAge string
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	// Pre-process origins for faster lookup
	allowAll := cfg.AllowOrigins == wildcard
	origins := make(map[string]struct{})
	if !allowAll {
		for _, origin := range strings.Split(cfg.AllowOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin == wildcard {
				allowAll = true
			} else if origin != "" {
				origins[origin] = struct{}{}
			}
		}
	}

	return func(c *nstd.Ctx) error {
		origin := c.Header("Origin")
		if origin == "" {
			return nil
		}

		if cfg.AllowOrigins == wildcard {
			c.Set(headerAllowOrigin, wildcard)
		} else {
			if _, ok := origins[origin]; ok || allowAll {
				c.Set(headerAllowOrigin, origin)
			}
			c.Set("Vary", "Origin")
		}
		if cfg.AllowCredentials {
			c.Set(headerAllowCredentials, "true")
		}

		if c.Method() != nstd.MethodOptions {
			if cfg.ExposeHeaders != "" {
				c.Set(headerExposeHeaders, cfg.ExposeHeaders)
			}
			return nil
		}

		c.Set(headerAllowMethods, cfg.AllowMethods)
		if cfg.AllowHeaders != "" {
			c.Set(headerAllowHeaders, cfg.AllowHeaders)
		} else if requested := c.Header(headerRequestHeaders); requested != "" {
			// mirror the requested headers
			c.Set(headerAllowHeaders, requested)
		}
		if maxAge != "" {
			c.Set(headerMaxAge, maxAge)
		}
		return c.Send(nstd.NewResponse(nstd.StatusNoContent))
	}
}
