package nstd

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/valyala/fastjson"

	"github.com/Ptomaine/nstd-sub001/internal/pool"
	"github.com/Ptomaine/nstd-sub001/uri"
)

// minCompressSize is the smallest body Ctx.Send compresses.
const minCompressSize = 1024

// Ctx is the state of one request while it is dispatched.
//
// A Ctx and everything it hands out (the Request, header values, Body) are
// only valid until the dispatch that created it returns. Handlers must copy
// what they want to keep.
type Ctx struct {
	raw      []byte
	request  Request
	uri      uri.URI
	resource string
	pattern  string
	captures []string

	manager *Manager
	conn    Connection

	completed bool
	sent      bool
	status    int
	written   int
	err       error
	locals    map[string]any
	headers   []responseHeader
	start     time.Time
}

type responseHeader struct {
	name, value string
}

var ctxPool = pool.NewWithReset(func() *Ctx {
	return &Ctx{}
}, func(c *Ctx) {
	c.request.Clear()
	locals := c.locals
	for k := range locals {
		delete(locals, k)
	}
	*c = Ctx{request: c.request, locals: locals, headers: c.headers[:0]}
})

// acquireCtx gets a Ctx for raw arriving on conn.
func acquireCtx(m *Manager, conn Connection, raw []byte) *Ctx {
	c := ctxPool.Get()
	c.raw = raw
	c.manager = m
	c.conn = conn
	c.start = time.Now()
	c.request.Reset(raw)
	return c
}

// releaseCtx hands c back to the pool.
func releaseCtx(c *Ctx) {
	ctxPool.Put(c)
}

// Request returns the parsed request.
func (c *Ctx) Request() *Request { return &c.request }

// Method returns the request method.
func (c *Ctx) Method() Method { return c.request.Method() }

// URI returns the resource URI derived from the request.
func (c *Ctx) URI() uri.URI { return c.uri }

// Resource returns the decoded path routes are matched against.
func (c *Ctx) Resource() string { return c.resource }

// Pattern returns the pattern of the matched route, empty when no route
// matched.
func (c *Ctx) Pattern() string { return c.pattern }

// Captures returns the capture groups of the route match.
func (c *Ctx) Captures() []string { return c.captures }

// Capture returns capture group i, or "" when there is no such group.
func (c *Ctx) Capture(i int) string {
	if i < 0 || i >= len(c.captures) {
		return ""
	}
	return c.captures[i]
}

// Header returns the first request header named name, ignoring case.
func (c *Ctx) Header(name string) string { return c.request.HeaderFold(name) }

// Body returns the request content.
func (c *Ctx) Body() []byte { return c.request.Content() }

// QueryParameters decodes the query of the resource URI.
func (c *Ctx) QueryParameters() ([]uri.Param, error) { return c.uri.QueryParameters() }

// Query returns the first query parameter named name.
func (c *Ctx) Query(name string) string {
	params, err := c.uri.QueryParameters()
	if err != nil {
		return ""
	}
	for _, p := range params {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// BodyJSON parses the request content as JSON.
func (c *Ctx) BodyJSON() (*fastjson.Value, error) {
	return fastjson.ParseBytes(c.request.Content())
}

// AcceptsGzip reports whether the client listed gzip in Accept-Encoding.
func (c *Ctx) AcceptsGzip() bool {
	for _, enc := range strings.Split(c.Header("Accept-Encoding"), ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if !strings.EqualFold(strings.TrimSpace(name), "gzip") {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

// RemoteAddr returns the client address reported by the transport.
func (c *Ctx) RemoteAddr() string {
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr()
}

// Completed reports whether a handler finished the request.
func (c *Ctx) Completed() bool { return c.completed }

// Complete marks the request as finished. Remaining handlers are skipped.
func (c *Ctx) Complete() { c.completed = true }

// Manager returns the manager dispatching the request.
func (c *Ctx) Manager() *Manager { return c.manager }

// Conn returns the connection the request arrived on.
func (c *Ctx) Conn() Connection { return c.conn }

// Err returns the handler failure being answered, if any.
func (c *Ctx) Err() error { return c.err }

// StatusCode returns the status of the response sent, 0 before Send.
func (c *Ctx) StatusCode() int { return c.status }

// Sent reports whether a response was sent.
func (c *Ctx) Sent() bool { return c.sent }

// Locals stores a value when one is given and returns the value for key.
func (c *Ctx) Locals(key string, value ...any) any {
	if len(value) > 0 {
		if c.locals == nil {
			c.locals = make(map[string]any)
		}
		c.locals[key] = value[0]
		return value[0]
	}
	return c.locals[key]
}

// Set adds a header to the response the request is answered with, replacing
// an earlier Set of the same name. Handlers further down the chain see it in
// every response they send.
func (c *Ctx) Set(name, value string) {
	for i := range c.headers {
		if strings.EqualFold(c.headers[i].name, name) {
			c.headers[i].value = value
			return
		}
	}
	c.headers = append(c.headers, responseHeader{name, value})
}

// ResponseHeader returns the value Set for name.
func (c *Ctx) ResponseHeader(name string) string {
	for _, h := range c.headers {
		if strings.EqualFold(h.name, name) {
			return h.value
		}
	}
	return ""
}

// Send writes resp to the connection and completes the request. Only the
// first call sends; later calls return ErrResponseSent.
func (c *Ctx) Send(resp *Response) error {
	if c.sent {
		return ErrResponseSent
	}
	c.sent = true
	c.completed = true
	c.status = resp.StatusCode()

	if !resp.Prepared() {
		for _, h := range c.headers {
			resp.AddHeader(h.name, h.value)
		}
	}
	m := c.manager
	if m != nil && m.compress && !resp.gzip && !resp.Prepared() &&
		resp.BodyLen() >= minCompressSize && c.AcceptsGzip() {
		resp.Gzip(m.compressLevel)
	}

	data := resp.PrepareResponseData()
	c.written = len(data)
	if m != nil {
		m.metrics.ResponseWritten(len(data))
	}
	if c.conn == nil {
		return nil
	}
	return c.conn.AsyncWrite(WriteRequest{Buffer: data, OnComplete: c.writeDone()})
}

func (c *Ctx) writeDone() func(error) {
	m, addr := c.manager, c.RemoteAddr()
	return func(err error) {
		if err != nil && m != nil {
			m.logger.Debug().Err(err).Str("remote", addr).Msg("response write failed")
		}
	}
}

// String sends a text/plain response with a formatted body.
func (c *Ctx) String(code int, format string, args ...any) error {
	resp := NewResponse(code).AddContentTypeHeader("text/plain", "utf-8")
	if len(args) == 0 {
		resp.WriteString(format)
	} else {
		fmt.Fprintf(resp, format, args...)
	}
	return c.Send(resp)
}

// JSON sends v encoded as an application/json response.
func (c *Ctx) JSON(code int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	resp := NewResponse(code).AddContentTypeHeader("application/json", "utf-8")
	resp.SetBody(data)
	return c.Send(resp)
}
