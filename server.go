package nstd

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/gnet/v2"

	"github.com/Ptomaine/nstd-sub001/internal/httpparser"
	"github.com/Ptomaine/nstd-sub001/log"
)

// Server serves the routes of a Manager over TCP.
type Server struct {
	cfg     Config
	manager *Manager
	logger  log.ILogger
	engine  *eventEngine
}

// eventEngine adapts gnet connections to Connection.
type eventEngine struct {
	gnet.BuiltinEventEngine

	manager *Manager
	framer  *httpparser.Framer
	logger  log.ILogger

	eng     gnet.Engine
	running atomic.Bool
}

// New creates a new server with the given configuration.
// This is the main entry point for creating a server instance.
//
// Parameters:
//   - config: The server configuration (use DefaultConfig() for sensible defaults)
//
// Returns:
//   - A new Server instance ready to be configured with routes
func New(config ...Config) (*Server, error) {
	// Use default config if none provided
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	cfg = cfg.withDefaults()

	if cfg.Logger == nil {
		cfg.Logger = initLogger(cfg.LogLevel)
	}

	m, err := NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:     cfg,
		manager: m,
		logger:  cfg.Logger,
		engine: &eventEngine{
			manager: m,
			framer:  httpparser.NewFramer(cfg.MaxHeaderBytes),
			logger:  cfg.Logger,
		},
	}, nil
}

// Manager returns the manager dispatching the server's requests.
func (s *Server) Manager() *Manager { return s.manager }

// AddRoute registers handlers for requests of method whose resource matches
// pattern.
func (s *Server) AddRoute(method Method, pattern string, handlers ...Handler) error {
	for _, h := range handlers {
		if err := s.manager.AddRoute(method, pattern, h); err != nil {
			return err
		}
	}
	return nil
}

// AddStatusHandler appends handler to the chain for code.
func (s *Server) AddStatusHandler(code int, handler Handler) error {
	return s.manager.AddStatusHandler(code, handler)
}

// SetRootPath sets the directory static content is served from.
func (s *Server) SetRootPath(path string) { s.manager.SetRootPath(path) }

// RootPath returns the directory static content is served from.
func (s *Server) RootPath() string { return s.manager.RootPath() }

func (s *Server) mustAdd(method Method, pattern string, handlers []Handler) *Server {
	for _, h := range handlers {
		s.manager.routes.MustAddRoute(method, pattern, h)
	}
	return s
}

// GET registers a new route with the GET method. It panics on an invalid
// pattern.
func (s *Server) GET(pattern string, handlers ...Handler) *Server {
	return s.mustAdd(MethodGet, pattern, handlers)
}

// HEAD registers a new route with the HEAD method.
func (s *Server) HEAD(pattern string, handlers ...Handler) *Server {
	return s.mustAdd(MethodHead, pattern, handlers)
}

// POST registers a new route with the POST method.
func (s *Server) POST(pattern string, handlers ...Handler) *Server {
	return s.mustAdd(MethodPost, pattern, handlers)
}

// PUT registers a new route with the PUT method.
func (s *Server) PUT(pattern string, handlers ...Handler) *Server {
	return s.mustAdd(MethodPut, pattern, handlers)
}

// DELETE registers a new route with the DELETE method.
func (s *Server) DELETE(pattern string, handlers ...Handler) *Server {
	return s.mustAdd(MethodDelete, pattern, handlers)
}

// CONNECT registers a new route with the CONNECT method.
func (s *Server) CONNECT(pattern string, handlers ...Handler) *Server {
	return s.mustAdd(MethodConnect, pattern, handlers)
}

// OPTIONS registers a new route with the OPTIONS method.
func (s *Server) OPTIONS(pattern string, handlers ...Handler) *Server {
	return s.mustAdd(MethodOptions, pattern, handlers)
}

// TRACE registers a new route with the TRACE method.
func (s *Server) TRACE(pattern string, handlers ...Handler) *Server {
	return s.mustAdd(MethodTrace, pattern, handlers)
}

// PATCH registers a new route with the PATCH method.
func (s *Server) PATCH(pattern string, handlers ...Handler) *Server {
	return s.mustAdd(MethodPatch, pattern, handlers)
}

// Start listens on host:port. It blocks until the server stops.
func (s *Server) Start(host string, port int) error {
	return s.Listen(net.JoinHostPort(host, strconv.Itoa(port)))
}

// Listen starts the server and listens for incoming connections.
func (s *Server) Listen(addr string) error {
	if addr == "" {
		addr = ":3000" // Default address if none provided
	}

	if !s.cfg.DisableStartupMessage {
		displayStartupMessage(s.logger, addr, len(s.manager.routes.Routes()))
	}

	defer s.manager.Close()
	return gnet.Run(
		s.engine,
		"tcp://"+addr,
		gnet.WithMulticore(s.cfg.Multicore),
		gnet.WithReuseAddr(true),
		gnet.WithReusePort(true),
		gnet.WithLogger(gnetLogger{s.logger}),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
		gnet.WithTCPKeepAlive(s.cfg.TCPKeepAlive),
		gnet.WithReadBufferCap(s.cfg.ReadBufferSize),
	)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.engine.running.Load() {
		return ErrNotRunning
	}
	err := s.engine.eng.Stop(ctx)
	s.manager.Close()
	return err
}

func (e *eventEngine) OnBoot(eng gnet.Engine) gnet.Action {
	e.eng = eng
	e.running.Store(true)
	return gnet.None
}

func (e *eventEngine) OnShutdown(gnet.Engine) {
	e.running.Store(false)
}

func (e *eventEngine) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	gc := &gnetConn{conn: c, onLoop: true}
	if addr := c.RemoteAddr(); addr != nil {
		gc.addr = addr.String()
	}
	c.SetContext(gc)

	e.manager.Accept(gc)

	gc.mu.Lock()
	gc.onLoop = false
	gc.mu.Unlock()
	return nil, gnet.None
}

// OnTraffic hands complete requests to the parked read callback, one at a
// time. Bytes stay in gnet's inbound buffer while no read is parked.
func (e *eventEngine) OnTraffic(c gnet.Conn) gnet.Action {
	gc, ok := c.Context().(*gnetConn)
	if !ok {
		return gnet.Close
	}

	for {
		gc.mu.Lock()
		onRead, maxBytes := gc.pending, gc.maxBytes
		if onRead == nil {
			gc.onLoop = false
			gc.mu.Unlock()
			return gnet.None
		}

		buf, _ := c.Peek(-1)
		n := e.framer.Frame(buf)
		if n == 0 && len(buf) <= maxBytes {
			gc.onLoop = false
			gc.mu.Unlock()
			return gnet.None
		}
		gc.pending = nil
		if n == 0 || n > maxBytes {
			gc.onLoop = false
			gc.mu.Unlock()
			e.logger.Debug().Str("remote", gc.addr).Int("bytes", len(buf)).Msg("request too large")
			onRead(false, nil)
			return gnet.None
		}

		// the inbound buffer is reused by gnet, the request gets its own copy
		data := make([]byte, n)
		copy(data, buf[:n])
		_, _ = c.Discard(n)
		gc.onLoop = true
		gc.mu.Unlock()

		onRead(true, data)
	}
}

func (e *eventEngine) OnClose(c gnet.Conn, _ error) gnet.Action {
	if gc, ok := c.Context().(*gnetConn); ok {
		gc.fail()
	}
	return gnet.None
}

// gnetConn is the Connection of one gnet connection.
type gnetConn struct {
	conn gnet.Conn
	addr string

	mu       sync.Mutex
	pending  func(ok bool, buf []byte)
	maxBytes int
	onLoop   bool
	closed   bool
}

func (g *gnetConn) AsyncRead(maxBytes int, onRead func(ok bool, buf []byte)) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		onRead(false, nil)
		return
	}
	g.pending, g.maxBytes = onRead, maxBytes
	wake := !g.onLoop
	g.mu.Unlock()

	// buffered bytes are only looked at from the event loop
	if wake {
		_ = g.conn.Wake(nil)
	}
}

func (g *gnetConn) AsyncWrite(req WriteRequest) error {
	return g.conn.AsyncWrite(req.Buffer, func(_ gnet.Conn, err error) error {
		if req.OnComplete != nil {
			req.OnComplete(err)
		}
		return nil
	})
}

func (g *gnetConn) Disconnect() error { return g.conn.Close() }

func (g *gnetConn) RemoteAddr() string { return g.addr }

// fail marks the connection closed and fails a parked read.
func (g *gnetConn) fail() {
	g.mu.Lock()
	g.closed = true
	onRead := g.pending
	g.pending = nil
	g.mu.Unlock()
	if onRead != nil {
		onRead(false, nil)
	}
}
