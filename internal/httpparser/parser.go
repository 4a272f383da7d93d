// Package httpparser parses HTTP/1.x requests in place and frames them out of
// a byte stream.
//
// Parser never copies its input: every []byte and string it hands out is a
// view into the buffer given to New or Reset. That buffer must stay
// unmodified for as long as any of those views are in use.
package httpparser

import (
	"bytes"
	"errors"
	"strings"

	"github.com/Ptomaine/nstd-sub001/internal/unsafe"
	"github.com/Ptomaine/nstd-sub001/uri"
)

// ErrMalformed is returned by ResourceURI when the request did not parse.
var ErrMalformed = errors.New("httpparser: malformed request")

const formURLEncoded = "application/x-www-form-urlencoded"

// Field is one header line. Name and Value alias the request buffer.
type Field struct {
	Name  []byte
	Value []byte
}

// Parser is a parsed request view over a single buffer.
type Parser struct {
	buf []byte
	ok  bool

	method   Method
	resource []byte
	protocol []byte
	version  []byte
	fields   []Field
	content  []byte
}

// New parses buf.
func New(buf []byte) *Parser {
	p := &Parser{}
	p.Reset(buf)
	return p
}

// Reset drops the previous state and parses buf.
func (p *Parser) Reset(buf []byte) {
	*p = Parser{buf: buf, fields: p.emptyFields()}
	if p.parse() {
		p.ok = true
		return
	}
	*p = Parser{buf: buf, fields: p.emptyFields()}
}

// Clear drops the buffer and every parsed value.
func (p *Parser) Clear() {
	*p = Parser{fields: p.emptyFields()}
}

// emptyFields truncates the field slice, zeroing the entries so the old
// buffer is no longer referenced.
func (p *Parser) emptyFields() []Field {
	fields := p.fields[:cap(p.fields)]
	clear(fields)
	return fields[:0]
}

func (p *Parser) parse() bool {
	method, n := detectMethod(p.buf)
	if method == MethodUnknown {
		return false
	}
	p.method = method

	rest := p.buf[n:]
	for len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}

	line, rest, ok := cutLine(rest)
	if !ok {
		return false
	}
	if sp := bytes.IndexByte(line, ' '); sp >= 0 {
		p.resource = line[:sp]
		pv := bytes.TrimLeft(line[sp+1:], " ")
		if slash := bytes.IndexByte(pv, '/'); slash >= 0 {
			p.protocol, p.version = pv[:slash], pv[slash+1:]
		} else {
			p.protocol = pv
		}
	} else {
		p.resource = line
	}

	for {
		line, next, ok := cutLine(rest)
		if !ok {
			// unterminated header block, no body
			p.content = nil
			return true
		}
		rest = next
		if len(line) == 0 {
			break
		}
		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		p.fields = append(p.fields, Field{
			Name:  line[:colon],
			Value: bytes.TrimLeft(line[colon+1:], " \t"),
		})
	}

	if len(rest) > 0 {
		p.content = rest
	}
	return true
}

// cutLine splits b at the first line end, accepting CRLF or a bare LF.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return nil, b, false
	}
	line, rest = b[:i], b[i+1:]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, rest, true
}

// OK reports whether the buffer held a request with a known method and a
// complete request line.
func (p *Parser) OK() bool { return p.ok }

// Method returns the detected method, MethodUnknown when !OK.
func (p *Parser) Method() Method { return p.method }

// MethodName returns the wire name of Method.
func (p *Parser) MethodName() string { return p.method.String() }

func (p *Parser) IsConnect() bool { return p.method == MethodConnect }
func (p *Parser) IsDelete() bool  { return p.method == MethodDelete }
func (p *Parser) IsGet() bool     { return p.method == MethodGet }
func (p *Parser) IsHead() bool    { return p.method == MethodHead }
func (p *Parser) IsOptions() bool { return p.method == MethodOptions }
func (p *Parser) IsPatch() bool   { return p.method == MethodPatch }
func (p *Parser) IsPost() bool    { return p.method == MethodPost }
func (p *Parser) IsPut() bool     { return p.method == MethodPut }
func (p *Parser) IsTrace() bool   { return p.method == MethodTrace }

// Resource returns the request target exactly as sent.
func (p *Parser) Resource() string { return unsafe.B2S(p.resource) }

// Protocol returns the part of the version token before '/', e.g. "HTTP".
func (p *Parser) Protocol() string { return unsafe.B2S(p.protocol) }

// Version returns the part of the version token after '/', e.g. "1.1".
func (p *Parser) Version() string { return unsafe.B2S(p.version) }

// Headers returns every header line in arrival order, duplicates included.
func (p *Parser) Headers() []Field { return p.fields }

// Header returns the value of the first header named exactly name.
func (p *Parser) Header(name string) string {
	for i := range p.fields {
		if unsafe.B2S(p.fields[i].Name) == name {
			return unsafe.B2S(p.fields[i].Value)
		}
	}
	return ""
}

// HeaderFold is Header with ASCII case-insensitive name matching.
func (p *Parser) HeaderFold(name string) string {
	for i := range p.fields {
		if unsafe.EqualFold(p.fields[i].Name, name) {
			return unsafe.B2S(p.fields[i].Value)
		}
	}
	return ""
}

// Content returns every byte after the blank line ending the header block.
func (p *Parser) Content() []byte { return p.content }

// Raw returns the buffer the parser was built over.
func (p *Parser) Raw() []byte { return p.buf }

// ResourceURI builds the URI addressed by the request.
//
// A relative target takes its scheme from the protocol and its authority
// from the Host header. The body of a POST without a Content-Type, or with a
// form-urlencoded one, is used as the raw query; it is appended with '&' when
// the target already carries a query.
func (p *Parser) ResourceURI() (uri.URI, error) {
	if !p.OK() {
		return uri.URI{}, ErrMalformed
	}

	u, err := uri.Parse(p.Resource())
	if err != nil {
		return uri.URI{}, err
	}
	if u.IsRelative() {
		u.SetScheme(p.Protocol())
		if host := p.HeaderFold("Host"); host != "" {
			if err := u.SetAuthority(host); err != nil {
				return uri.URI{}, err
			}
		}
	}

	if p.method == MethodPost && len(p.content) > 0 && p.isFormContent() {
		body := string(p.content)
		if q := u.RawQuery(); q != "" {
			u.SetRawQuery(q + "&" + body)
		} else {
			u.SetRawQuery(body)
		}
	}
	return u, nil
}

func (p *Parser) isFormContent() bool {
	ct := p.HeaderFold("Content-Type")
	if ct == "" {
		return true
	}
	media, _, _ := strings.Cut(ct, ";")
	return strings.EqualFold(strings.TrimSpace(media), formURLEncoded)
}
