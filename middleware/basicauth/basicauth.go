package basicauth

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	nstd "github.com/Ptomaine/nstd-sub001"
)

// Config represents the configuration structure for username and password authentication.
type Config struct {

	// Username represents the username required for basic authentication in the configuration.
	Username string

	// Password represents the password required for basic authentication in the configuration.
	Password string

	// Realm is announced in the WWW-Authenticate header of a 401 response.
	// Default value is "Restricted"
	Realm string
}

// DefaultConfig returns a Config instance with default values.
func DefaultConfig() Config {
	return Config{
		Username: "example",
		Password: "example",
		Realm:    "Restricted",
	}
}

// ErrUnauthorized is returned when basic authentication fails.
var ErrUnauthorized = nstd.NewHttpError(nstd.StatusUnauthorized, "Unauthorized")

// New creates a handler for Basic Authentication using the provided
// configuration or defaults. Placed in front of a route's handlers, it lets
// the chain continue when the credentials match and fails the request with
// ErrUnauthorized otherwise, so the 401 status chain answers it.
func New(config ...Config) nstd.Handler {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Realm == "" {
		cfg.Realm = DefaultConfig().Realm
	}
	challenge := `Basic realm="` + strings.ReplaceAll(cfg.Realm, `"`, `\"`) + `"`

	return func(c *nstd.Ctx) error {
		if user, pass, ok := credentials(c.Header("Authorization")); ok &&
			subtle.ConstantTimeCompare([]byte(user), []byte(cfg.Username)) == 1 &&
			subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.Password)) == 1 {
			c.Locals("username", user)
			return nil
		}
		c.Set("WWW-Authenticate", challenge)
		return ErrUnauthorized
	}
}

// credentials decodes a Basic Authorization header value.
func credentials(header string) (user, pass string, ok bool) {
	const prefix = "Basic "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(decoded), ":")
}
