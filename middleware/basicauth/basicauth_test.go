package basicauth

import (
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nstd "github.com/Ptomaine/nstd-sub001"
	"github.com/Ptomaine/nstd-sub001/log"
)

// recorder is a connection that answers one request synchronously.
type recorder struct {
	onRead func(ok bool, buf []byte)
	out    []string
}

func (r *recorder) AsyncRead(_ int, onRead func(ok bool, buf []byte)) { r.onRead = onRead }

func (r *recorder) AsyncWrite(req nstd.WriteRequest) error {
	r.out = append(r.out, string(req.Buffer))
	return nil
}

func (r *recorder) Disconnect() error  { return nil }
func (r *recorder) RemoteAddr() string { return "192.0.2.1:1234" }

func serve(t *testing.T, m *nstd.Manager, raw string) string {
	t.Helper()
	r := &recorder{}
	m.Accept(r)
	require.NotNil(t, r.onRead)
	r.onRead(true, []byte(raw))
	require.Len(t, r.out, 1)
	return r.out[0]
}

func newManager(t *testing.T, cfg Config) *nstd.Manager {
	t.Helper()
	c := nstd.DefaultConfig()
	c.Logger = log.New(io.Discard, log.DebugLevel)
	m, err := nstd.NewManager(c)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	require.NoError(t, m.AddRoute(nstd.MethodGet, "/private", New(cfg)))
	require.NoError(t, m.AddRoute(nstd.MethodGet, "/private", func(c *nstd.Ctx) error {
		return c.String(nstd.StatusOK, "hello %s", c.Locals("username"))
	}))
	return m
}

func request(auth string) string {
	raw := "GET /private HTTP/1.1\r\n"
	if auth != "" {
		raw += "Authorization: " + auth + "\r\n"
	}
	return raw + "\r\n"
}

func basic(cred string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(cred))
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "example", config.Username, "DefaultConfig() returned unexpected Username value")
	assert.Equal(t, "example", config.Password, "DefaultConfig() returned unexpected Password value")
	assert.Equal(t, "Restricted", config.Realm)
}

func TestBasicAuth_Success(t *testing.T) {
	m := newManager(t, Config{Username: "user", Password: "pass"})

	resp := serve(t, m, request(basic("user:pass")))
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n"))
	assert.True(t, strings.HasSuffix(resp, "hello user"))
	assert.NotContains(t, resp, "WWW-Authenticate")
}

func TestBasicAuth_Failure(t *testing.T) {
	tests := []struct {
		name string
		auth string
	}{
		{"no header", ""},
		{"wrong password", basic("user:wrong")},
		{"wrong user", basic("other:pass")},
		{"malformed base64", "Basic invalid-base64"},
		{"no colon", basic("userpass")},
		{"other scheme", "Bearer abc"},
	}
	m := newManager(t, Config{Username: "user", Password: "pass", Realm: "admin"})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(t, m, request(tt.auth))
			assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 401 Unauthorized\r\n"), resp)
			assert.Contains(t, resp, "WWW-Authenticate: Basic realm=\"admin\"\r\n")
			assert.True(t, strings.HasSuffix(resp, "\r\n\r\nUnauthorized"))
		})
	}
}

func TestBasicAuth_StatusChain(t *testing.T) {
	m := newManager(t, Config{Username: "user", Password: "pass"})
	require.NoError(t, m.AddStatusHandler(nstd.StatusUnauthorized, func(c *nstd.Ctx) error {
		assert.ErrorIs(t, c.Err(), ErrUnauthorized)
		return c.JSON(nstd.StatusUnauthorized, map[string]string{"error": "login required"})
	}))

	resp := serve(t, m, request(""))
	assert.Contains(t, resp, "WWW-Authenticate: Basic realm=\"Restricted\"\r\n")
	assert.True(t, strings.HasSuffix(resp, `{"error":"login required"}`))
}

func TestCredentials(t *testing.T) {
	user, pass, ok := credentials("basic " + base64.StdEncoding.EncodeToString([]byte("a:b:c")))
	assert.True(t, ok)
	assert.Equal(t, "a", user)
	assert.Equal(t, "b:c", pass)

	_, _, ok = credentials("Basic ")
	assert.False(t, ok)
}
