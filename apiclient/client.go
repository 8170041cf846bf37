package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/guardian/observe"
	"github.com/jonwraymond/guardian/resilience"
	"github.com/jonwraymond/guardian/tokenstore"
)

// ErrInvalidConfig is returned by New for an unusable configuration.
var ErrInvalidConfig = errors.New("apiclient: invalid config")

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// RequestIDHeader carries a per-request identifier for correlating logs.
const RequestIDHeader = "X-Request-ID"

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.example.org".
	BaseURL string

	// Endpoints overrides request paths. Zero fields use DefaultEndpoints.
	Endpoints Endpoints

	// Store holds the session tokens. Required.
	Store tokenstore.Store

	// HTTPClient sends requests. If nil, a client with Timeout is used.
	HTTPClient *http.Client

	// Timeout applies when HTTPClient is nil.
	// Default: 30s
	Timeout time.Duration

	// Middleware instruments every exchange. Default: no-op.
	Middleware *observe.Middleware

	// Retry resends idempotent GETs that failed on the network. A 401 is
	// never retried here. Nil disables network retries.
	Retry *resilience.Retry

	// DisableRefreshCoalescing gives every 401 its own refresh call instead
	// of sharing one in-flight refresh per refresh token.
	DisableRefreshCoalescing bool
}

// Client talks to the backend on behalf of one session.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: every call honors cancellation of its context.
type Client struct {
	baseURL   string
	endpoints Endpoints
	store     tokenstore.Store
	http      *http.Client
	mw        *observe.Middleware
	log       observe.Logger
	retry     *resilience.Retry
	coalesce  bool

	refreshes singleflight.Group

	mu        sync.RWMutex
	onExpired []func(context.Context)
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q must be an absolute http(s) URL", ErrInvalidConfig, cfg.BaseURL)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, tokenstore.ErrNilStore)
	}

	if cfg.HTTPClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	if cfg.Middleware == nil {
		cfg.Middleware = observe.NopMiddleware()
	}
	if cfg.Retry != nil {
		// Auth failures are never resent, whatever the caller's policy says.
		rc := cfg.Retry.Config()
		retryIf := rc.RetryIf
		rc.RetryIf = func(err error) bool {
			return retryable(err) && retryIf(err)
		}
		cfg.Retry = resilience.NewRetry(rc)
	}

	return &Client{
		baseURL:   strings.TrimRight(u.String(), "/"),
		endpoints: cfg.Endpoints.withDefaults(),
		store:     cfg.Store,
		http:      cfg.HTTPClient,
		mw:        cfg.Middleware,
		log:       cfg.Middleware.Logger(),
		retry:     cfg.Retry,
		coalesce:  !cfg.DisableRefreshCoalescing,
	}, nil
}

// OnSessionExpired registers fn to run after an unrecoverable 401 removed the
// stored tokens. Handlers run synchronously on the failing request's goroutine.
func (c *Client) OnSessionExpired(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.onExpired = append(c.onExpired, fn)
	c.mu.Unlock()
}

// Store returns the token store used by the client.
func (c *Client) Store() tokenstore.Store {
	return c.store
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call is one logical request. attempt counts how many times the request was
// resent after a 401; it is never reset.
type call struct {
	endpoint observe.EndpointMeta
	body     []byte
	auth     bool

	attempt int
	bearer  string // token to send; empty reads the store
	sent    string // token sent on the latest exchange
}

func newCall(name, method, path string, payload any, auth bool) (*call, error) {
	cl := &call{
		endpoint: observe.EndpointMeta{Name: name, Method: method, Path: path},
		auth:     auth,
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("apiclient: encode %s request: %w", name, err)
		}
		cl.body = body
	}
	return cl, nil
}

type response struct {
	status int
	body   []byte
}

// execute runs cl through the refresh state machine and, for GETs, the
// network retry policy. The decoded 2xx body is written into out when out is
// non-nil.
func (c *Client) execute(ctx context.Context, cl *call, out any) error {
	run := func(ctx context.Context) (*response, error) {
		return c.do(ctx, cl)
	}

	var (
		resp *response
		err  error
	)
	if cl.endpoint.Method == http.MethodGet && c.retry != nil {
		resp, err = resilience.Do(ctx, c.retry, run)
	} else {
		resp, err = run(ctx)
	}
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		if out != nil {
			return c.errorFor(cl, ErrMalformedResponse, resp, errors.New("empty body"))
		}
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return c.errorFor(cl, ErrMalformedResponse, resp, err)
	}
	return nil
}

// do sends cl and handles a 401 with at most one refresh and one resend.
func (c *Client) do(ctx context.Context, cl *call) (*response, error) {
	for {
		resp, err := c.send(ctx, cl)
		if err != nil {
			return nil, err
		}

		switch {
		case resp.status >= 200 && resp.status < 300:
			return resp, nil
		case resp.status != http.StatusUnauthorized:
			return nil, c.errorFor(cl, ErrServerError, resp, nil)
		case !cl.auth:
			return nil, c.errorFor(cl, ErrAuthFailure, resp, nil)
		case cl.attempt > 0:
			// Already refreshed once for this request.
			c.log.WithEndpoint(cl.endpoint).Warn(ctx, "request rejected after token refresh",
				observe.F("attempt", cl.attempt))
			return nil, c.errorFor(cl, ErrAuthFailure, resp, nil)
		}

		cl.attempt++
		if err := c.recoverUnauthorized(ctx, cl, resp); err != nil {
			return nil, err
		}
	}
}

// send performs one instrumented HTTP exchange.
func (c *Client) send(ctx context.Context, cl *call) (*response, error) {
	var resp *response
	_, err := c.mw.Wrap(func(ctx context.Context, _ observe.EndpointMeta) (int, error) {
		r, err := c.roundTrip(ctx, cl)
		if err != nil {
			return 0, err
		}
		resp = r
		return r.status, nil
	})(ctx, cl.endpoint)
	return resp, err
}

func (c *Client) roundTrip(ctx context.Context, cl *call) (*response, error) {
	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}

	req, err := http.NewRequestWithContext(ctx, cl.endpoint.Method, c.baseURL+cl.endpoint.Path, body)
	if err != nil {
		return nil, &Error{Kind: ErrNetworkFailure, Method: cl.endpoint.Method, Path: cl.endpoint.Path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	cl.sent = ""
	if cl.auth {
		if token := c.bearerFor(ctx, cl); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			cl.sent = token
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: ErrNetworkFailure, Method: cl.endpoint.Method, Path: cl.endpoint.Path, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Kind: ErrNetworkFailure, Method: cl.endpoint.Method, Path: cl.endpoint.Path, Status: res.StatusCode, Err: err}
	}
	return &response{status: res.StatusCode, body: data}, nil
}

// bearerFor returns the token to attach. A store read failure is logged and
// the request goes out unauthenticated.
func (c *Client) bearerFor(ctx context.Context, cl *call) string {
	if cl.bearer != "" {
		return cl.bearer
	}
	token, ok, err := c.store.Get(ctx, tokenstore.KeyAccessToken)
	if err != nil {
		c.log.WithEndpoint(cl.endpoint).Warn(ctx, "reading access token failed", observe.Err(err))
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

func (c *Client) errorFor(cl *call, kind error, resp *response, cause error) *Error {
	e := &Error{
		Kind:   kind,
		Method: cl.endpoint.Method,
		Path:   cl.endpoint.Path,
		Err:    cause,
	}
	if resp != nil {
		e.Status = resp.status
		e.Body = resp.body
	}
	return e
}
