// Package api is the console's client for the platform's admin REST API.
// Every call returns a normalized Result; an error comes back only when
// the request never completed or the response was not JSON.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vrsandeep/storydesk/internal/session"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// ErrSessionExpired means the backend (or the token's own exp claim)
// rejected the stored session. The session has already been cleared.
var ErrSessionExpired = errors.New("session expired, please log in again")

// expiredTokenCode is the backend's error code for an expired or invalid JWT.
const expiredTokenCode = 2002

// APIError is a business failure reported by the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsAuthError reports whether err means the operator has to log in (again).
func IsAuthError(err error) bool {
	return errors.Is(err, ErrSessionExpired) || errors.Is(err, session.ErrNotLoggedIn)
}

// Result is the outcome of one call. OK mirrors the HTTP 2xx range; Body is
// the parsed JSON body whatever the status, so error messages embedded in a
// non-2xx response stay reachable.
type Result struct {
	OK         bool
	StatusCode int
	Body       json.RawMessage

	// Normalized envelope. Success is true when the body carried either
	// `success: true` or `status: true`.
	Success bool
	Message string
	Data    json.RawMessage

	SessionExpired bool
}

// Err maps the result onto the console's error taxonomy.
func (r *Result) Err() error {
	if r.SessionExpired {
		return ErrSessionExpired
	}
	if r.OK && r.Success {
		return nil
	}
	return &APIError{Status: r.StatusCode, Message: r.Message}
}

type envelope struct {
	Success *bool           `json:"success"`
	Status  json.RawMessage `json:"status"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) succeeded() bool {
	if e.Success != nil && *e.Success {
		return true
	}
	var flag bool
	if json.Unmarshal(e.Status, &flag) == nil {
		return flag
	}
	var word string
	if json.Unmarshal(e.Status, &word) == nil {
		return strings.EqualFold(word, "success") || strings.EqualFold(word, "ok")
	}
	return false
}

func (e envelope) expiredToken(status int) bool {
	if status != http.StatusUnauthorized {
		return false
	}
	return e.Code == expiredTokenCode || e.Error == "jwt expired" || e.Message == "Invalid token"
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables throttling
	Session   session.Provider
}

// Client talks to the admin API on behalf of the logged-in operator.
type Client struct {
	client  *http.Client
	baseURL string
	session session.Provider
	limiter *rate.Limiter
	now     func() time.Time

	// OnSessionExpired runs after an expired session has been cleared.
	OnSessionExpired func()
}

// New creates a new Client.
func New(opts Options) *Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		log.Printf("Warning: cookie jar unavailable: %v", err)
		jar = nil
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c := &Client{
		client:  &http.Client{Timeout: timeout, Jar: jar},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		session: opts.Session,
		now:     time.Now,
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return c
}

// BaseURL returns the API root the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Body is a request payload.
type Body interface {
	encode() (io.Reader, string, error)
}

// JSON wraps a value that is sent as application/json.
type JSON struct {
	Value any
}

func (j JSON) encode() (io.Reader, string, error) {
	b, err := json.Marshal(j.Value)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(b), "application/json", nil
}

// request describes one call before it is sent.
type request struct {
	method string
	path   string
	query  url.Values
	body   Body
	public bool // no bearer token, e.g. login
}

func (c *Client) do(ctx context.Context, r request) (*Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var token string
	if !r.public {
		if c.session == nil {
			return nil, session.ErrNotLoggedIn
		}
		t, err := c.session.Token()
		if err != nil {
			return nil, err
		}
		if session.Expired(t, c.now()) {
			c.expire()
			return nil, ErrSessionExpired
		}
		token = t
	}

	var payload io.Reader
	contentType := ""
	if r.body != nil {
		p, ct, err := r.body.encode()
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload, contentType = p, ct
	}

	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	res := &Result{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid JSON in %s %s response (status %d)", r.method, r.path, resp.StatusCode)
	}
	res.Body = raw

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		res.Success = env.succeeded()
		res.Message = env.Message
		if res.Message == "" {
			res.Message = env.Error
		}
		res.Data = env.Data
		if !r.public && env.expiredToken(resp.StatusCode) {
			res.SessionExpired = true
			c.expire()
		}
	}
	return res, nil
}

func (c *Client) expire() {
	if c.session != nil {
		if err := c.session.Clear(); err != nil {
			log.Printf("Warning: failed to clear expired session: %v", err)
		}
	}
	if c.OnSessionExpired != nil {
		c.OnSessionExpired()
	}
}

// DecodeData decodes the envelope's data member.
func DecodeData[T any](r *Result) (T, error) {
	var v T
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return v, fmt.Errorf("failed to decode response data: %w", err)
	}
	return v, nil
}
