package nstd

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/panjf2000/gnet/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ptomaine/nstd-sub001/log"
)

// stubConn is the part of gnet.Conn the event engine uses. Calling any
// other method panics.
type stubConn struct {
	gnet.Conn

	mu       sync.Mutex
	in       []byte
	out      [][]byte
	ctx      any
	wakes    int
	closed   bool
	writeErr error
}

func (s *stubConn) Context() any       { return s.ctx }
func (s *stubConn) SetContext(ctx any) { s.ctx = ctx }

func (s *stubConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP("192.0.2.1"), Port: 5555}
}

func (s *stubConn) Peek(n int) ([]byte, error) {
	if n < 0 || n > len(s.in) {
		return s.in, nil
	}
	return s.in[:n], nil
}

func (s *stubConn) Discard(n int) (int, error) {
	if n > len(s.in) {
		n = len(s.in)
	}
	s.in = s.in[n:]
	return n, nil
}

func (s *stubConn) Wake(gnet.AsyncCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wakes++
	return nil
}

func (s *stubConn) AsyncWrite(buf []byte, cb gnet.AsyncCallback) error {
	s.mu.Lock()
	s.out = append(s.out, append([]byte(nil), buf...))
	err := s.writeErr
	s.mu.Unlock()
	if cb != nil {
		return cb(s, err)
	}
	return nil
}

func (s *stubConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubConn) written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.out))
	for i, b := range s.out {
		out[i] = string(b)
	}
	return out
}

func newTestServer(t *testing.T, cfg ...Config) *Server {
	t.Helper()
	c := testConfig()
	if len(cfg) > 0 {
		c = cfg[0]
		if c.Logger == nil {
			c.Logger = log.New(io.Discard, log.DebugLevel)
		}
	}
	c.DisableStartupMessage = true
	s, err := New(c)
	require.NoError(t, err)
	t.Cleanup(s.manager.Close)
	return s
}

// TestNew tests the New function
func TestNew(t *testing.T) {
	s := newTestServer(t)
	require.NotNil(t, s.Manager())
	assert.NotNil(t, s.engine)
	assert.Equal(t, DefaultConfig().ReadBufferSize, s.cfg.ReadBufferSize)

	// zero sizes take their defaults
	s = newTestServer(t, Config{})
	assert.Equal(t, DefaultConfig().MaxRequestBytes, s.cfg.MaxRequestBytes)
	assert.Equal(t, DefaultConfig().MaxHeaderBytes, s.cfg.MaxHeaderBytes)
	assert.Equal(t, -1, s.cfg.CompressLevel)
}

// TestServerHTTPMethods tests the method registration helpers
func TestServerHTTPMethods(t *testing.T) {
	s := newTestServer(t)

	assert.Same(t, s, s.GET("/r", nopHandler))
	s.HEAD("/r", nopHandler)
	s.POST("/r", nopHandler)
	s.PUT("/r", nopHandler)
	s.DELETE("/r", nopHandler)
	s.CONNECT("/r", nopHandler)
	s.OPTIONS("/r", nopHandler)
	s.TRACE("/r", nopHandler)
	s.PATCH("/r", nopHandler, nopHandler)

	var methods []string
	for _, r := range s.Manager().Routes().Routes() {
		methods = append(methods, r.Method)
		assert.Equal(t, "/r", r.Pattern)
	}
	assert.Equal(t, []string{"CONNECT", "DELETE", "GET", "HEAD", "OPTIONS", "PATCH", "POST", "PUT", "TRACE"}, methods)

	route, _ := s.Manager().Routes().Match(MethodPatch, "/r")
	require.NotNil(t, route)
	assert.Len(t, route.Handlers, 2)

	assert.Panics(t, func() { s.GET("(", nopHandler) })
}

// TestServerAddRoute tests AddRoute and AddStatusHandler
func TestServerAddRoute(t *testing.T) {
	s := newTestServer(t)

	require.NoError(t, s.AddRoute(MethodGet, "/a", nopHandler, nopHandler))
	assert.ErrorIs(t, s.AddRoute(MethodGet, "(", nopHandler), ErrInvalidPattern)
	assert.ErrorIs(t, s.AddRoute(MethodUnknown, "/a", nopHandler), ErrUnknownMethod)
	require.NoError(t, s.AddStatusHandler(StatusNotFound, nopHandler))
	assert.Len(t, s.Manager().Routes().StatusHandlers(StatusNotFound), 1)

	s.SetRootPath("/srv")
	assert.Equal(t, "/srv", s.RootPath())
}

// TestShutdownBeforeStart tests Shutdown on a server that never ran
func TestShutdownBeforeStart(t *testing.T) {
	s := newTestServer(t)
	assert.ErrorIs(t, s.Shutdown(context.Background()), ErrNotRunning)
}

func openStub(t *testing.T, s *Server) *stubConn {
	t.Helper()
	c := &stubConn{}
	_, action := s.engine.OnOpen(c)
	require.Equal(t, gnet.None, action)
	require.IsType(t, &gnetConn{}, c.ctx)
	return c
}

func (s *stubConn) feed(data string) {
	s.in = append(s.in, data...)
}

// TestEngineTraffic tests framing and dispatch through the event engine
func TestEngineTraffic(t *testing.T) {
	s := newTestServer(t)
	s.GET("/hello/(.+)", func(c *Ctx) error {
		return c.String(StatusOK, "hello %s from %s", c.Capture(0), c.RemoteAddr())
	})

	c := openStub(t, s)
	gc := c.ctx.(*gnetConn)
	assert.Equal(t, "192.0.2.1:5555", gc.RemoteAddr())
	// the first read is parked while OnOpen runs, without a wake up
	assert.Zero(t, c.wakes)

	// two pipelined requests and the start of a third
	c.feed("GET /hello/a HTTP/1.1\r\n\r\n")
	c.feed("POST /hello/b HTTP/1.1\r\nContent-Length: 3\r\n\r\nxyz")
	c.feed("GET /hello/c HTTP/1.1\r\n")
	assert.Equal(t, gnet.None, s.engine.OnTraffic(c))

	out := c.written()
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "hello a from 192.0.2.1:5555")
	assert.True(t, strings.HasPrefix(out[1], "HTTP/1.1 404 Not Found"))
	assert.Equal(t, "GET /hello/c HTTP/1.1\r\n", string(c.in))

	c.feed("\r\n")
	s.engine.OnTraffic(c)
	out = c.written()
	require.Len(t, out, 3)
	assert.Contains(t, out[2], "hello c")
	assert.Empty(t, c.in)
	assert.Zero(t, c.wakes)
}

// TestEngineRequestTooLarge tests that oversized requests close the connection
func TestEngineRequestTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestBytes = 64
	s := newTestServer(t, cfg)

	c := openStub(t, s)
	c.feed("GET /" + strings.Repeat("a", 100) + " HTTP/1.1\r\n\r\n")
	s.engine.OnTraffic(c)

	assert.Empty(t, c.written())
	assert.True(t, c.closed)
}

// TestEngineClose tests that closing fails the parked read
func TestEngineClose(t *testing.T) {
	s := newTestServer(t)
	c := openStub(t, s)
	gc := c.ctx.(*gnetConn)

	assert.Equal(t, gnet.None, s.engine.OnClose(c, nil))
	assert.True(t, c.closed, "failed read should disconnect")

	// reads after close fail right away
	called := false
	gc.AsyncRead(1024, func(ok bool, buf []byte) {
		called = true
		assert.False(t, ok)
		assert.Nil(t, buf)
	})
	assert.True(t, called)
}

// TestGnetConnAsyncRead tests that reads parked off the event loop wake it
func TestGnetConnAsyncRead(t *testing.T) {
	c := &stubConn{}
	gc := &gnetConn{conn: c}

	gc.AsyncRead(10, func(bool, []byte) {})
	assert.Equal(t, 1, c.wakes)
	assert.NotNil(t, gc.pending)
	assert.Equal(t, 10, gc.maxBytes)
}

// TestGnetConnAsyncWrite tests the write completion bridge
func TestGnetConnAsyncWrite(t *testing.T) {
	c := &stubConn{}
	gc := &gnetConn{conn: c}

	var got error = errors.New("not called")
	require.NoError(t, gc.AsyncWrite(WriteRequest{Buffer: []byte("abc"), OnComplete: func(err error) { got = err }}))
	assert.NoError(t, got)
	assert.Equal(t, []string{"abc"}, c.written())

	c.writeErr = errors.New("broken pipe")
	require.NoError(t, gc.AsyncWrite(WriteRequest{Buffer: []byte("def"), OnComplete: func(err error) { got = err }}))
	assert.EqualError(t, got, "broken pipe")

	// OnComplete is optional
	require.NoError(t, gc.AsyncWrite(WriteRequest{Buffer: []byte("ghi")}))

	require.NoError(t, gc.Disconnect())
	assert.True(t, c.closed)
}

// TestEngineOffload tests that a read parked by a worker wakes the loop
func TestEngineOffload(t *testing.T) {
	cfg := testConfig()
	cfg.Offload = true
	cfg.Workers = 1
	s := newTestServer(t, cfg)

	release := make(chan struct{})
	s.GET("/", func(c *Ctx) error {
		<-release
		return c.String(StatusOK, "ok")
	})

	c := openStub(t, s)
	c.feed("GET / HTTP/1.1\r\n\r\n")
	s.engine.OnTraffic(c)

	// the loop has moved on, so the next read must wake it
	close(release)
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.wakes == 1
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, c.written(), 1)
}
