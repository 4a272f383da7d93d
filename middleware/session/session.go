package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	nstd "github.com/Ptomaine/nstd-sub001"
	"github.com/Ptomaine/nstd-sub001/internal/memory"
)

// ErrNotFound is what a Storage returns for an unknown session ID.
var ErrNotFound = memory.ErrNotFound

// localsKey is the Ctx.Locals key the handler stores the session under.
const localsKey = "session"

// Storage persists encoded sessions.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Config represents the configuration for the Session middleware.
type Config struct {
	// Expiration is the duration after which the session will expire
	Expiration time.Duration
	// CookieName is the name of the cookie that stores the session ID
	CookieName string
	// KeyGenerator is a function that generates a new session ID
	// If nil, UUIDv4 is used
	KeyGenerator func() string
	// Path is the cookie path
	Path string
	// Domain is the cookie domain
	Domain string
	// Secure indicates if the cookie should only be sent over HTTPS
	Secure bool
	// HttpOnly indicates if the cookie should only be accessible via HTTP(S) requests
	HttpOnly bool
	// Storage is the storage backend for sessions
	// If nil, an in-memory storage is used
	Storage Storage
}

// DefaultConfig returns the default configuration for the Session middleware.
func DefaultConfig() Config {
	return Config{
		Expiration:   24 * time.Hour,
		CookieName:   "session_id",
		KeyGenerator: UUIDv4,
		Path:         "/",
		HttpOnly:     true,
	}
}

// Store loads and saves the sessions of requests.
type Store struct {
	cfg    Config
	memory *memory.Storage
}

// New creates a Store. Missing config fields take their defaults.
func New(config ...Config) *Store {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
		def := DefaultConfig()
		if cfg.Expiration <= 0 {
			cfg.Expiration = def.Expiration
		}
		if cfg.CookieName == "" {
			cfg.CookieName = def.CookieName
		}
		if cfg.KeyGenerator == nil {
			cfg.KeyGenerator = def.KeyGenerator
		}
		if cfg.Path == "" {
			cfg.Path = def.Path
		}
	}

	s := &Store{cfg: cfg}
	if cfg.Storage == nil {
		s.memory = memory.New(time.Minute)
		s.cfg.Storage = s.memory
	}
	return s
}

// Close releases the in-memory storage created by New.
func (s *Store) Close() error {
	if s.memory != nil {
		return s.memory.Close()
	}
	return nil
}

// Handler returns a handler that loads the session of the request, or
// starts a new one, and stores it in the Ctx for Get. It never completes
// the request.
func (s *Store) Handler() nstd.Handler {
	return func(c *nstd.Ctx) error {
		sess, err := s.Load(c)
		if err != nil {
			return err
		}
		c.Locals(localsKey, sess)
		return nil
	}
}

// Load returns the session named by the request's cookie. A new session is
// started when the request carries none or it has expired; its cookie is
// added to the response.
func (s *Store) Load(c *nstd.Ctx) (*Session, error) {
	if id := cookieValue(c.Header("Cookie"), s.cfg.CookieName); id != "" {
		data, err := s.cfg.Storage.Get(context.Background(), id)
		switch {
		case err == nil:
			sess := &Session{store: s}
			if err := json.Unmarshal(data, sess); err != nil {
				return nil, fmt.Errorf("session: decode %s: %w", id, err)
			}
			if time.Now().Before(sess.ExpiresAt) {
				return sess, nil
			}
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("session: load %s: %w", id, err)
		}
	}

	now := time.Now()
	sess := &Session{
		ID:        s.cfg.KeyGenerator(),
		Values:    make(map[string]any),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.Expiration),
		store:     s,
	}
	c.Set("Set-Cookie", s.cookie(sess.ID, int(s.cfg.Expiration/time.Second)))
	return sess, nil
}

func (s *Store) cookie(id string, maxAge int) string {
	var b strings.Builder
	b.WriteString(s.cfg.CookieName)
	b.WriteByte('=')
	b.WriteString(id)
	b.WriteString("; Path=")
	b.WriteString(s.cfg.Path)
	if s.cfg.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(s.cfg.Domain)
	}
	b.WriteString("; Max-Age=")
	b.WriteString(strconv.Itoa(maxAge))
	if s.cfg.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	if s.cfg.Secure {
		b.WriteString("; Secure")
	}
	return b.String()
}

// Get returns the session the Store's handler loaded for c, or nil.
func Get(c *nstd.Ctx) *Session {
	sess, _ := c.Locals(localsKey).(*Session)
	return sess
}

// Session represents a user session with identification, data storage, and expiration information.
// Values round-trip through JSON, so numbers read back from storage are float64.
type Session struct {
	ID        string         `json:"id"`
	Values    map[string]any `json:"values"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`

	store *Store
}

// Set stores a value in the session.
func (s *Session) Set(key string, value any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = value
}

// Get returns the value stored for key.
func (s *Session) Get(key string) any { return s.Values[key] }

// Delete removes key from the session.
func (s *Session) Delete(key string) { delete(s.Values, key) }

// Keys returns the keys of the session in sorted order.
func (s *Session) Keys() []string {
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetExpiry moves the expiration to expiry from now.
func (s *Session) SetExpiry(expiry time.Duration) {
	s.ExpiresAt = time.Now().Add(expiry)
}

// Save writes the session to storage.
func (s *Session) Save() error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return s.store.cfg.Storage.Delete(context.Background(), s.ID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", s.ID, err)
	}
	return s.store.cfg.Storage.Set(context.Background(), s.ID, data, ttl)
}

// Destroy removes the session from storage and expires its cookie.
func (s *Session) Destroy(c *nstd.Ctx) error {
	s.Values = make(map[string]any)
	if c != nil {
		c.Set("Set-Cookie", s.store.cookie("", 0))
	}
	return s.store.cfg.Storage.Delete(context.Background(), s.ID)
}

// cookieValue returns the value of the cookie called name in a Cookie
// header.
func cookieValue(header, name string) string {
	for _, part := range strings.Split(header, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && k == name {
			return strings.Trim(v, `"`)
		}
	}
	return ""
}

// UUIDv4 generates a random UUID v4 string.
// This function is compatible with the KeyGenerator type in Config.
func UUIDv4() string {
	u := make([]byte, 16)
	if _, err := rand.Read(u); err != nil {
		return "00000000-0000-0000-0000-000000000000"
	}

	// Set version (4) and variant (2)
	u[6] = (u[6] & 0x0f) | 0x40
	u[8] = (u[8] & 0x3f) | 0x80

	return fmt.Sprintf("%x-%x-%x-%x-%x", u[0:4], u[4:6], u[6:8], u[8:10], u[10:])
}
