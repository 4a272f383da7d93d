package nstd

import (
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
)

// Handler handles one request. A returned error, or a panic, fails the
// request: the context is completed and answered with 500, or with the code
// of an *HttpError.
type Handler func(c *Ctx) error

// Route is one (method, pattern) binding with its handler chain.
type Route struct {
	Method   Method
	Pattern  string
	Handlers []Handler

	re *regexp.Regexp
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method   string
	Pattern  string
	Handlers int
}

// routeSnapshot is an immutable view of the table. Writers copy it, change
// the copy and publish it; readers never lock.
type routeSnapshot struct {
	routes [methodCount][]*Route
	status map[int][]Handler
}

// RouteTable holds the routes of every method in registration order and the
// status handler chains.
type RouteTable struct {
	mu   sync.Mutex
	snap atomic.Pointer[routeSnapshot]
}

// NewRouteTable creates an empty table.
func NewRouteTable() *RouteTable {
	t := &RouteTable{}
	t.snap.Store(&routeSnapshot{status: map[int][]Handler{}})
	return t
}

// compilePattern anchors pattern to the whole resource, case-insensitively.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	return re, nil
}

// AddRoute appends handler to the route for (method, pattern), creating the
// route at the end of the method's list when it does not exist yet.
func (t *RouteTable) AddRoute(method Method, pattern string, handler Handler) error {
	if method <= MethodUnknown || int(method) >= methodCount {
		return fmt.Errorf("%w: %d", ErrUnknownMethod, method)
	}
	if handler == nil {
		return ErrNilHandler
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.snap.Load()
	routes := cur.routes[method]
	for i, r := range routes {
		if r.Pattern != pattern {
			continue
		}
		updated := &Route{
			Method:   r.Method,
			Pattern:  r.Pattern,
			Handlers: append(r.Handlers[:len(r.Handlers):len(r.Handlers)], handler),
			re:       r.re,
		}
		next := *cur
		next.routes[method] = append(routes[:0:0], routes...)
		next.routes[method][i] = updated
		t.snap.Store(&next)
		return nil
	}

	re, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	next := *cur
	next.routes[method] = append(routes[:len(routes):len(routes)], &Route{
		Method:   method,
		Pattern:  pattern,
		Handlers: []Handler{handler},
		re:       re,
	})
	t.snap.Store(&next)
	return nil
}

// MustAddRoute is like AddRoute but panics on error.
func (t *RouteTable) MustAddRoute(method Method, pattern string, handler Handler) {
	if err := t.AddRoute(method, pattern, handler); err != nil {
		panic(err)
	}
}

// AddStatusHandler appends handler to the chain for code.
func (t *RouteTable) AddStatusHandler(code int, handler Handler) error {
	if handler == nil {
		return ErrNilHandler
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.snap.Load()
	status := make(map[int][]Handler, len(cur.status)+1)
	for k, v := range cur.status {
		status[k] = v
	}
	chain := cur.status[code]
	status[code] = append(chain[:len(chain):len(chain)], handler)

	next := *cur
	next.status = status
	t.snap.Store(&next)
	return nil
}

// Match returns the first route of method whose pattern matches resource,
// and the capture groups of that match.
func (t *RouteTable) Match(method Method, resource string) (*Route, []string) {
	if method <= MethodUnknown || int(method) >= methodCount {
		return nil, nil
	}
	for _, r := range t.snap.Load().routes[method] {
		if m := r.re.FindStringSubmatch(resource); m != nil {
			return r, m[1:]
		}
	}
	return nil, nil
}

// StatusHandlers returns the chain registered for code.
func (t *RouteTable) StatusHandlers(code int) []Handler {
	return t.snap.Load().status[code]
}

// Routes lists every route, grouped by method in method order.
func (t *RouteTable) Routes() []RouteInfo {
	snap := t.snap.Load()
	var out []RouteInfo
	for m := range snap.routes {
		for _, r := range snap.routes[m] {
			out = append(out, RouteInfo{
				Method:   r.Method.String(),
				Pattern:  r.Pattern,
				Handlers: len(r.Handlers),
			})
		}
	}
	return out
}
