package donetick

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/chorebridge/internal/cache"
	"github.com/dukerupert/chorebridge/internal/model"
	"github.com/dukerupert/chorebridge/internal/ratelimit"
)

// Timeouts bounds each phase of a request.
type Timeouts struct {
	Connect time.Duration // dial and TLS handshake
	Read    time.Duration // wait for response headers
	Write   time.Duration // sending the request body
	Pool    time.Duration // waiting for a pooled connection
}

// Attempt is the overall deadline for one attempt.
func (t Timeouts) Attempt() time.Duration {
	return t.Connect + t.Write + t.Read + t.Pool
}

// Config holds client configuration.
type Config struct {
	BaseURL  string
	Username string
	Password string
	// APIToken, when set, is sent as the secretkey header and no login
	// happens.
	APIToken string

	RatePerSecond float64
	RateBurst     int
	CacheTTL      time.Duration
	MaxAttempts   int
	Timeouts      Timeouts
	// AuthMargin is how long before expiry a token is treated as expired.
	AuthMargin time.Duration
}

// Client talks to the chore service. It is safe for concurrent use.
type Client struct {
	cfg         Config
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
	limiter     *ratelimit.Bucket
	chores      *cache.Cache[int, model.Chore]
	session     *session
	now         func() time.Time
	backoffBase time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithClock replaces the time source used for token expiry and caching.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithBackoff sets the base delay between retries.
func WithBackoff(base time.Duration) Option {
	return func(c *Client) {
		c.backoffBase = base
	}
}

// NewClient creates a client. Zero config values get defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.RatePerSecond == 0 {
		cfg.RatePerSecond = 10
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 10
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.AuthMargin == 0 {
		cfg.AuthMargin = time.Minute
	}
	if cfg.Timeouts == (Timeouts{}) {
		cfg.Timeouts = Timeouts{
			Connect: 10 * time.Second,
			Read:    30 * time.Second,
			Write:   10 * time.Second,
			Pool:    5 * time.Second,
		}
	}

	c := &Client{
		cfg:         cfg,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		logger:      slog.Default(),
		limiter:     ratelimit.New(cfg.RatePerSecond, cfg.RateBurst),
		now:         time.Now,
		backoffBase: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: newTransport(cfg.Timeouts)}
	}
	c.logger = c.logger.With("component", "donetick")
	c.chores = cache.New[int, model.Chore](cfg.CacheTTL).WithClock(c.now)
	c.session = newSession(c.login, c.now, cfg.AuthMargin, c.logger)
	return c
}

func newTransport(t Timeouts) *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = (&net.Dialer{Timeout: t.Connect, KeepAlive: 30 * time.Second}).DialContext
	tr.TLSHandshakeTimeout = t.Connect
	tr.ResponseHeaderTimeout = t.Read
	return tr
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.cfg.APIToken != "" || (c.cfg.Username != "" && c.cfg.Password != "")
}

// RateStatus describes the outbound rate limiter.
type RateStatus struct {
	PerSecond float64 // +Inf when unlimited
	Burst     int
	Tokens    float64
}

// RateStatus reports the limiter settings and how many requests can go out
// right now without waiting.
func (c *Client) RateStatus() RateStatus {
	return RateStatus{
		PerSecond: c.limiter.Rate(),
		Burst:     c.limiter.Burst(),
		Tokens:    c.limiter.Tokens(),
	}
}

// ClearCache drops every cached chore.
func (c *Client) ClearCache() {
	c.chores.Clear()
}

// SessionState reports the login state for diagnostics.
func (c *Client) SessionState() string {
	if c.cfg.APIToken != "" {
		return "api-token"
	}
	return c.session.State().String()
}
