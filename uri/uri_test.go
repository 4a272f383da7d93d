package uri

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComponents(t *testing.T) {
	u, err := Parse("HTTP://User@www.Example.COM:8080/a%20b/c?x=1&y=2#frag%21")
	require.NoError(t, err)

	assert.Equal(t, "http", u.Scheme())
	assert.Equal(t, "User", u.UserInfo())
	assert.Equal(t, "www.example.com", u.Host())
	assert.Equal(t, uint16(8080), u.Port())
	assert.Equal(t, "/a b/c", u.Path())
	assert.Equal(t, "x=1&y=2", u.RawQuery())
	assert.Equal(t, "frag!", u.Fragment())
	assert.False(t, u.IsRelative())
	assert.Equal(t, "http://User@www.example.com:8080/a%20b/c?x=1&y=2#frag%21", u.String())
}

func TestParseRelative(t *testing.T) {
	tests := []struct {
		in       string
		path     string
		query    string
		fragment string
	}{
		{"/index.html", "/index.html", "", ""},
		{"/search?q=go", "/search", "q=go", ""},
		{"./a/b", "./a/b", "", ""},
		{"?only=query", "", "only=query", ""},
		{"#top", "", "", "top"},
		{"relative/path#x", "relative/path", "", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, err := Parse(tt.in)
			require.NoError(t, err)
			assert.True(t, u.IsRelative())
			assert.Equal(t, tt.path, u.Path())
			assert.Equal(t, tt.query, u.RawQuery())
			assert.Equal(t, tt.fragment, u.Fragment())
		})
	}
}

func TestParseIPv6Host(t *testing.T) {
	u, err := Parse("http://[FE80::1]:8080/x")
	require.NoError(t, err)
	assert.Equal(t, "fe80::1", u.Host())
	assert.Equal(t, uint16(8080), u.Port())
	assert.Equal(t, "[fe80::1]:8080", u.Authority())
	assert.Equal(t, "http://[fe80::1]:8080/x", u.String())
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"http://[::1/x",
		"http://host:abc/",
		"http://host:70000/",
		"http://host:-1/",
		"http://host:+80/",
		"/bad%2",
		"/bad%",
		"/bad%zz",
		"http://h/#frag%g1",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSyntax))

			var uerr *Error
			assert.True(t, errors.As(err, &uerr))
		})
	}

	assert.Panics(t, func() { MustParse("http://[::1") })
}

func TestParseZeroPort(t *testing.T) {
	u := MustParse("http://h:0/x")
	assert.Equal(t, "h", u.Host())
	assert.Equal(t, uint16(0), u.SpecifiedPort())
	assert.Equal(t, uint16(80), u.Port())
	assert.Equal(t, "http://h/x", u.String())
}

func TestParseSchemes(t *testing.T) {
	u := MustParse("mailto:someone@example.com")
	assert.Equal(t, "mailto", u.Scheme())
	assert.Equal(t, "someone@example.com", u.Path())
	assert.Equal(t, "mailto:someone@example.com", u.String())

	f := MustParse("file:///etc/hosts")
	assert.Equal(t, "file", f.Scheme())
	assert.Equal(t, "", f.Host())
	assert.Equal(t, "/etc/hosts", f.Path())
	assert.Equal(t, "file:///etc/hosts", f.String())
}

func TestRoundTrip(t *testing.T) {
	tests := []string{
		"http://example.com/",
		"https://user@example.com:8443/a/b?c=d#e",
		"ftp://ftp.example.org/pub/file.txt",
		"ws://localhost:9000/socket",
		"/relative/path?x=1",
		"urn:isbn:0451450523",
		"http://[::1]:81/",
		"http://h/with%20space",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			u := MustParse(in)
			again, err := Parse(u.String())
			require.NoError(t, err)
			assert.True(t, u.Equal(again), "%q -> %q", in, u.String())
			assert.Equal(t, in, u.String())
		})
	}
}

func TestWellKnownPort(t *testing.T) {
	tests := map[string]uint16{
		"ftp": 21, "ssh": 22, "telnet": 23, "http": 80, "ws": 80, "nntp": 119,
		"ldap": 389, "https": 443, "wss": 443, "rtsp": 554, "sip": 5060,
		"sips": 5061, "xmpp": 5222, "gopher": 0, "": 0,
	}
	for scheme, port := range tests {
		assert.Equal(t, port, WellKnownPort(scheme), scheme)
	}

	u := MustParse("https://example.com/")
	assert.Equal(t, uint16(0), u.SpecifiedPort())
	assert.Equal(t, uint16(443), u.Port())
	assert.Equal(t, uint16(443), u.WellKnownPort())

	explicit := MustParse("http://example.com:80/")
	assert.Equal(t, "http://example.com/", explicit.String())
	assert.True(t, explicit.Equal(MustParse("http://example.com/")))
}

func TestSetters(t *testing.T) {
	var u URI
	assert.True(t, u.IsEmpty())

	u.SetScheme("HTTPS")
	require.NoError(t, u.SetAuthority("admin@API.example.com:9443"))
	u.SetPath("/v1/items")
	u.SetQuery("name=a b")
	u.SetFragment("top")

	assert.Equal(t, "https", u.Scheme())
	assert.Equal(t, "admin", u.UserInfo())
	assert.Equal(t, "api.example.com", u.Host())
	assert.Equal(t, uint16(9443), u.Port())
	assert.Equal(t, "name=a%20b", u.RawQuery())
	q, err := u.Query()
	require.NoError(t, err)
	assert.Equal(t, "name=a b", q)
	assert.Equal(t, "https://admin@api.example.com:9443/v1/items?name=a%20b#top", u.String())
	assert.Equal(t, "/v1/items?name=a%20b#top", u.PathEtc())
	assert.Equal(t, "/v1/items?name=a%20b", u.PathAndQuery())
	assert.Equal(t, []string{"v1", "items"}, u.PathSegments())

	require.NoError(t, u.SetPathEtc("/other?z=1#f"))
	assert.Equal(t, "/other", u.Path())
	assert.Equal(t, "z=1", u.RawQuery())
	assert.Equal(t, "f", u.Fragment())

	u.SetHost("[::1]")
	assert.Equal(t, "::1", u.Host())

	u.Clear()
	assert.True(t, u.IsEmpty())
}
