package nstd

import (
	"context"
	"fmt"
	"math"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Ptomaine/nstd-sub001/internal/ratelimit"
	"github.com/Ptomaine/nstd-sub001/internal/workerpool"
	"github.com/Ptomaine/nstd-sub001/log"
	"github.com/Ptomaine/nstd-sub001/metrics"
)

// Manager owns the route table and dispatches the requests read from
// connections to it.
//
// A request goes through parse, route match and the handler chain of the
// matched route. Requests that match nothing, including malformed ones, go
// to the 404 status chain and then to the NotFound fallback. A failing
// handler completes the request with a 500 (or the code of an *HttpError),
// answered by that code's status chain or a plain text response carrying the
// error message.
type Manager struct {
	routes   *RouteTable
	notFound atomic.Pointer[Handler]
	rootPath atomic.Pointer[string]

	workers *workerpool.Pool
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	logger  log.ILogger
	access  *accessLogger

	maxRequestBytes int
	compress        bool
	compressLevel   int

	stop   context.CancelFunc
	closed atomic.Bool
}

// NewManager creates a manager configured by cfg. Zero sizes take their
// defaults.
func NewManager(cfg Config) (*Manager, error) {
	cfg = cfg.withDefaults()

	m := &Manager{
		routes:          NewRouteTable(),
		metrics:         metrics.New(cfg.Registerer),
		logger:          cfg.Logger,
		maxRequestBytes: cfg.MaxRequestBytes,
		compress:        cfg.Compress,
		compressLevel:   cfg.CompressLevel,
	}
	if m.logger == nil {
		m.logger = log.GetLogger()
	}
	if cfg.AccessLog {
		m.access = newAccessLogger(cfg.AccessLogFormat, m.logger)
	}
	m.SetNotFound(defaultNotFound)
	m.SetRootPath(cfg.RootPath)

	if cfg.Offload {
		workers, err := workerpool.New(cfg.Workers, workerpool.WithLogger(antsLogger{m.logger}))
		if err != nil {
			return nil, fmt.Errorf("nstd: worker pool: %w", err)
		}
		m.workers = workers
		m.metrics.WatchWorkerPool(workers.Size, workers.Len)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.stop = cancel
	if cfg.RateLimit != nil {
		m.limiter = ratelimit.New(ratelimit.Config(*cfg.RateLimit))
		go m.limiter.Run(ctx)
	}
	return m, nil
}

// defaultNotFound answers unmatched requests with a plain 404 page.
func defaultNotFound(c *Ctx) error {
	return c.String(StatusNotFound, "%s", StatusText(StatusNotFound))
}

// Routes returns the route table.
func (m *Manager) Routes() *RouteTable { return m.routes }

// AddRoute registers handler for requests of method whose resource matches
// pattern, a regular expression matched case-insensitively against the
// whole decoded path.
func (m *Manager) AddRoute(method Method, pattern string, handler Handler) error {
	return m.routes.AddRoute(method, pattern, handler)
}

// AddStatusHandler appends handler to the chain for code.
func (m *Manager) AddStatusHandler(code int, handler Handler) error {
	return m.routes.AddStatusHandler(code, handler)
}

// SetNotFound sets the handler run for unmatched requests when the 404
// chain is empty. nil sends nothing.
func (m *Manager) SetNotFound(h Handler) {
	if h == nil {
		m.notFound.Store(nil)
		return
	}
	m.notFound.Store(&h)
}

// NotFound returns the fallback for unmatched requests.
func (m *Manager) NotFound() Handler {
	if h := m.notFound.Load(); h != nil {
		return *h
	}
	return nil
}

// SetRootPath sets the directory static content is served from.
func (m *Manager) SetRootPath(path string) { m.rootPath.Store(&path) }

// RootPath returns the directory static content is served from.
func (m *Manager) RootPath() string {
	if p := m.rootPath.Load(); p != nil {
		return *p
	}
	return ""
}

// Metrics returns the collectors of the manager.
func (m *Manager) Metrics() *metrics.Metrics { return m.metrics }

// Accept starts the read cycle of conn.
func (m *Manager) Accept(conn Connection) {
	m.readNext(conn)
}

// Close stops the worker pool and the rate limiter sweeper. Requests
// already running finish; queued ones are dropped.
func (m *Manager) Close() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	m.stop()
	if m.workers != nil {
		m.workers.Shutdown()
	}
}

func (m *Manager) readNext(conn Connection) {
	conn.AsyncRead(m.maxRequestBytes, func(ok bool, buf []byte) {
		if !ok {
			_ = conn.Disconnect()
			return
		}
		if m.workers != nil {
			err := m.workers.Submit(func() { m.OnNewRequest(conn, buf) })
			if err == nil {
				return
			}
		}
		m.OnNewRequest(conn, buf)
	})
}

// OnNewRequest dispatches the request in raw, then asks conn for the next
// one. raw is owned by the manager from here on.
func (m *Manager) OnNewRequest(conn Connection, raw []byte) {
	m.dispatch(conn, raw)
	m.readNext(conn)
}

func (m *Manager) dispatch(conn Connection, raw []byte) {
	m.metrics.RequestStarted()
	c := acquireCtx(m, conn, raw)
	defer releaseCtx(c)

	if m.limiter != nil {
		if ok, wait := m.limiter.Allow(remoteIP(c.RemoteAddr())); !ok {
			m.rateLimited(c, wait)
			m.finish(c)
			return
		}
	}

	matched := false
	if c.request.OK() {
		u, err := c.request.ResourceURI()
		if err != nil {
			m.logger.Debug().Err(err).Str("resource", c.request.Resource()).Msg("bad request resource")
		} else {
			c.uri = u
			c.resource = u.Path()
			if route, captures := m.routes.Match(c.request.Method(), c.resource); route != nil {
				matched = true
				c.pattern = route.Pattern
				c.captures = captures
				if err := m.run(c, route.Handlers); err != nil {
					m.fail(c, err)
				}
			}
		}
	}

	if !matched {
		m.unmatched(c)
	}
	m.finish(c)
}

// run invokes handlers in order until one completes c or fails.
func (m *Manager) run(c *Ctx, handlers []Handler) error {
	for _, h := range handlers {
		if err := call(c, h); err != nil {
			return err
		}
		if c.completed {
			return nil
		}
	}
	return nil
}

// call runs h, turning a panic into an error.
func call(c *Ctx, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()
	return h(c)
}

// fail completes c after a handler failure and answers it, unless a
// response already went out.
func (m *Manager) fail(c *Ctx, err error) {
	c.completed = true
	c.err = err
	m.metrics.HandlerFailed()
	m.logger.Error().Err(err).
		Str("method", c.request.MethodName()).
		Str("resource", c.resource).
		Msg("handler failed")

	if c.sent {
		return
	}

	code := errorStatus(err)
	if chain := m.routes.StatusHandlers(code); len(chain) > 0 {
		c.completed = false
		if serr := m.run(c, chain); serr != nil {
			m.logger.Error().Err(serr).Int("status", code).Msg("status handler failed")
		}
		c.completed = true
		if c.sent {
			return
		}
	}

	resp := NewResponse(code).AddContentTypeHeader("text/plain", "utf-8")
	resp.WriteString(err.Error())
	if serr := c.Send(resp); serr != nil {
		m.logger.Debug().Err(serr).Msg("error response not sent")
	}
}

// unmatched hands c to the 404 chain, or to the NotFound fallback when the
// chain is empty.
func (m *Manager) unmatched(c *Ctx) {
	m.metrics.Unmatched()
	m.logger.Debug().
		Str("method", c.request.MethodName()).
		Str("resource", c.request.Resource()).
		Msg("no route matched")

	chain := m.routes.StatusHandlers(StatusNotFound)
	if len(chain) == 0 {
		if h := m.NotFound(); h != nil {
			chain = []Handler{h}
		}
	}
	if err := m.run(c, chain); err != nil {
		m.fail(c, err)
	}
}

// rateLimited answers c through the 503 chain, or with a plain 503 and a
// Retry-After header.
func (m *Manager) rateLimited(c *Ctx, wait time.Duration) {
	m.metrics.RateLimited()
	m.logger.Warn().
		Str("remote", c.RemoteAddr()).
		Dur("retry_after", wait).
		Msg("rate limit exceeded")

	retryAfter := strconv.Itoa(int(math.Ceil(wait.Seconds())))
	c.Locals("retry_after", retryAfter)
	if chain := m.routes.StatusHandlers(StatusServiceUnavailable); len(chain) > 0 {
		if err := m.run(c, chain); err != nil {
			m.fail(c, err)
		}
		if c.sent {
			return
		}
	}

	resp := NewResponse(StatusServiceUnavailable).
		AddHeader("Retry-After", retryAfter).
		AddContentTypeHeader("text/plain", "utf-8")
	resp.WriteString(StatusText(StatusServiceUnavailable))
	_ = c.Send(resp)
}

func (m *Manager) finish(c *Ctx) {
	elapsed := time.Since(c.start)
	m.metrics.RequestFinished(c.request.MethodName(), c.status, elapsed)
	m.access.log(c, elapsed)
}

// remoteIP strips the port from a transport address.
func remoteIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// antsLogger routes worker pool messages to the server log.
type antsLogger struct {
	logger log.ILogger
}

func (l antsLogger) Printf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}
