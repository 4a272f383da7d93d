// Package uri parses, builds and resolves resource identifiers.
//
// A URI is a plain value: copy it freely, there is no shared state. Path and
// fragment are kept decoded, the query is kept exactly as it appeared on the
// wire (see RawQuery and Query).
package uri

import (
	"strconv"
	"strings"
)

// URI is a parsed uniform resource identifier.
type URI struct {
	scheme   string
	userInfo string
	host     string
	port     uint16
	path     string
	query    string
	fragment string
}

// Parse decomposes text into its components.
//
// Malformed input mostly degrades into a relative URI. Only an unterminated
// IPv6 literal, a bad port number and broken percent-encoding are reported,
// as an *Error wrapping ErrSyntax.
func Parse(text string) (URI, error) {
	var u URI
	if err := u.parse(text); err != nil {
		return URI{}, err
	}
	return u, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) URI {
	u, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return u
}

func (u *URI) parse(s string) error {
	if s == "" {
		return nil
	}
	switch s[0] {
	case '/', '.', '?', '#':
		return u.parsePathEtc(s)
	}

	i := 0
scan:
	for ; i < len(s); i++ {
		switch s[i] {
		case ':', '?', '#', '/':
			break scan
		}
	}
	if i == len(s) || s[i] != ':' {
		return u.parsePathEtc(s)
	}

	u.SetScheme(s[:i])
	rest := s[i+1:]
	if strings.HasPrefix(rest, "//") {
		var err error
		if rest, err = u.parseAuthority(rest[2:]); err != nil {
			return err
		}
	}
	return u.parsePathEtc(rest)
}

// parseAuthority consumes the authority part of s and returns what follows it.
func (u *URI) parseAuthority(s string) (string, error) {
	end := strings.IndexAny(s, "/?#")
	if end < 0 {
		end = len(s)
	}
	auth := s[:end]

	var userInfo string
	if at := strings.LastIndexByte(auth, '@'); at >= 0 {
		userInfo, auth = auth[:at], auth[at+1:]
	}
	if err := u.parseHostAndPort(auth); err != nil {
		return "", err
	}
	u.userInfo = userInfo
	return s[end:], nil
}

func (u *URI) parseHostAndPort(s string) error {
	u.host, u.port = "", 0
	if s == "" {
		return nil
	}

	var host, rest string
	if s[0] == '[' {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return syntaxError("unterminated IPv6 address", s)
		}
		host, rest = s[1:end], s[end+1:]
	} else if c := strings.IndexByte(s, ':'); c >= 0 {
		host, rest = s[:c], s[c:]
	} else {
		host = s
	}

	if len(rest) > 1 && rest[0] == ':' {
		n, err := strconv.ParseUint(rest[1:], 10, 16)
		if err != nil {
			return syntaxError("bad or invalid port number", rest[1:])
		}
		u.port = uint16(n)
	}
	u.host = strings.ToLower(host)
	return nil
}

func (u *URI) parsePathEtc(s string) error {
	if s == "" {
		return nil
	}
	if s[0] != '?' && s[0] != '#' {
		end := strings.IndexAny(s, "?#")
		if end < 0 {
			end = len(s)
		}
		path, err := Decode(s[:end], false)
		if err != nil {
			return err
		}
		u.path, s = path, s[end:]
	}
	if s != "" && s[0] == '?' {
		end := strings.IndexByte(s, '#')
		if end < 0 {
			end = len(s)
		}
		u.query, s = s[1:end], s[end:]
	}
	if s != "" && s[0] == '#' {
		fragment, err := Decode(s[1:], false)
		if err != nil {
			return err
		}
		u.fragment = fragment
	}
	return nil
}

// String renders u. Every non-empty component survives a Parse round trip.
func (u URI) String() string {
	var b strings.Builder
	b.Grow(len(u.scheme) + len(u.host) + len(u.path) + len(u.query) + len(u.fragment) + 16)

	if u.IsRelative() {
		b.WriteString(Encode(u.path, ReservedPath, true))
	} else {
		b.WriteString(u.scheme)
		b.WriteByte(':')
		auth := u.Authority()
		if auth != "" || u.scheme == "file" {
			b.WriteString("//")
			b.WriteString(auth)
		}
		if u.path != "" {
			if auth != "" && u.path[0] != '/' {
				b.WriteByte('/')
			}
			b.WriteString(Encode(u.path, ReservedPath, true))
		} else if u.query != "" || u.fragment != "" {
			b.WriteByte('/')
		}
	}
	if u.query != "" {
		b.WriteByte('?')
		b.WriteString(u.query)
	}
	if u.fragment != "" {
		b.WriteByte('#')
		b.WriteString(Encode(u.fragment, ReservedFragment, true))
	}
	return b.String()
}

// IsRelative reports whether u has no scheme.
func (u URI) IsRelative() bool { return u.scheme == "" }

// IsEmpty reports whether every component of u is unset.
func (u URI) IsEmpty() bool {
	return u.scheme == "" && u.userInfo == "" && u.host == "" && u.port == 0 &&
		u.path == "" && u.query == "" && u.fragment == ""
}

// Equal reports whether u and o identify the same resource. Ports are
// compared after well-known defaults are applied.
func (u URI) Equal(o URI) bool {
	return u.scheme == o.scheme &&
		u.userInfo == o.userInfo &&
		u.host == o.host &&
		u.Port() == o.Port() &&
		u.path == o.path &&
		u.query == o.query &&
		u.fragment == o.fragment
}

// Clear resets every component.
func (u *URI) Clear() { *u = URI{} }

func (u URI) Scheme() string { return u.scheme }

// SetScheme stores the scheme lower-cased.
func (u *URI) SetScheme(scheme string) { u.scheme = strings.ToLower(scheme) }

func (u URI) UserInfo() string { return u.userInfo }

func (u *URI) SetUserInfo(userInfo string) { u.userInfo = userInfo }

// Host returns the lower-cased host without IPv6 brackets.
func (u URI) Host() string { return u.host }

func (u *URI) SetHost(host string) {
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	u.host = strings.ToLower(host)
}

// Port returns the explicit port or, when none was given, the scheme's
// well-known port.
func (u URI) Port() uint16 {
	if u.port == 0 {
		return WellKnownPort(u.scheme)
	}
	return u.port
}

// SpecifiedPort returns the port exactly as set; 0 means none.
func (u URI) SpecifiedPort() uint16 { return u.port }

func (u *URI) SetPort(port uint16) { u.port = port }

// Authority renders userinfo, host and any port that differs from the
// scheme's well-known one.
func (u URI) Authority() string {
	var b strings.Builder
	if u.userInfo != "" {
		b.WriteString(u.userInfo)
		b.WriteByte('@')
	}
	if strings.IndexByte(u.host, ':') >= 0 {
		b.WriteByte('[')
		b.WriteString(u.host)
		b.WriteByte(']')
	} else {
		b.WriteString(u.host)
	}
	if u.port != 0 && u.port != WellKnownPort(u.scheme) {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(u.port)))
	}
	return b.String()
}

// SetAuthority replaces userinfo, host and port with those parsed from auth.
func (u *URI) SetAuthority(auth string) error {
	u.userInfo, u.host, u.port = "", "", 0
	_, err := u.parseAuthority(auth)
	return err
}

// Path returns the decoded path.
func (u URI) Path() string { return u.path }

func (u *URI) SetPath(path string) { u.path = path }

// RawQuery returns the query exactly as it appeared, without the '?'.
func (u URI) RawQuery() string { return u.query }

func (u *URI) SetRawQuery(query string) { u.query = query }

// Query returns the percent-decoded query.
func (u URI) Query() (string, error) { return Decode(u.query, false) }

// SetQuery encodes query with the query reserved set and stores it.
func (u *URI) SetQuery(query string) { u.query = Encode(query, ReservedQuery, true) }

// Fragment returns the decoded fragment.
func (u URI) Fragment() string { return u.fragment }

// RawFragment returns the fragment in its encoded form.
func (u URI) RawFragment() string { return Encode(u.fragment, ReservedFragment, true) }

func (u *URI) SetFragment(fragment string) { u.fragment = fragment }

// PathEtc renders the encoded path, query and fragment.
func (u URI) PathEtc() string {
	s := u.PathAndQuery()
	if u.fragment != "" {
		s += "#" + Encode(u.fragment, ReservedFragment, true)
	}
	return s
}

// SetPathEtc replaces path, query and fragment with those parsed from s.
func (u *URI) SetPathEtc(s string) error {
	u.path, u.query, u.fragment = "", "", ""
	return u.parsePathEtc(s)
}

// PathAndQuery renders the encoded path followed by the raw query.
func (u URI) PathAndQuery() string {
	s := Encode(u.path, ReservedPath, true)
	if u.query != "" {
		s += "?" + u.query
	}
	return s
}

// PathSegments splits the path on '/', dropping empty segments.
func (u URI) PathSegments() []string {
	return splitSegments(u.path, nil)
}

func splitSegments(path string, segments []string) []string {
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
