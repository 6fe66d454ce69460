package telemetry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
	HTTPClient        *http.Client
	Now               func() time.Time
}

// Client is the typed wrapper around the fleet backend. It does not cache:
// every call is a fresh round trip. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	now        func() time.Time

	mu      sync.RWMutex
	session Session
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type apiError struct {
	Detail any `json:"detail"`
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrValidation)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: base url %q: %v", ErrValidation, base, err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 8
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    newBreaker("fleet-backend", opts.BreakerFailures, opts.BreakerTimeout),
		now:        now,
	}, nil
}

// SetToken installs a pre-issued bearer token.
func (c *Client) SetToken(token string) error {
	session, err := ParseSession(token)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	return nil
}

// Session returns the current bearer session.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Login exchanges credentials for a bearer token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return Session{}, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var response tokenResponse
	if err := c.do(ctx, "login", http.MethodPost, "/token", nil, form, false, &response); err != nil {
		return Session{}, err
	}
	if strings.TrimSpace(response.AccessToken) == "" {
		return Session{}, fmt.Errorf("%w: backend returned no access token", ErrAuth)
	}
	if err := c.SetToken(response.AccessToken); err != nil {
		return Session{}, err
	}
	return c.Session(), nil
}

func (c *Client) ListVessels(ctx context.Context) ([]Vessel, error) {
	var vessels []Vessel
	if err := c.do(ctx, "list_vessels", http.MethodGet, "/ships/", nil, nil, true, &vessels); err != nil {
		return nil, err
	}
	if vessels == nil {
		vessels = []Vessel{}
	}
	return vessels, nil
}

func (c *Client) FleetOverview(ctx context.Context) ([]OverviewEntry, error) {
	var entries []OverviewEntry
	if err := c.do(ctx, "fleet_overview", http.MethodGet, "/ships/overview", nil, nil, true, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []OverviewEntry{}
	}
	return entries, nil
}

// Telemetry fetches a vessel's samples newest first, as the backend orders them.
// An empty slice is a valid result.
func (c *Client) Telemetry(ctx context.Context, mmsi string, q Query) ([]Sample, error) {
	mmsi = strings.TrimSpace(mmsi)
	if mmsi == "" {
		return nil, fmt.Errorf("%w: mmsi is required", ErrValidation)
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrValidation, q.Limit)
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.Start.After(q.End) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrValidation, q.Start.Format(time.RFC3339), q.End.Format(time.RFC3339))
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(q.Limit))
	if !q.Start.IsZero() {
		query.Set("start_date", q.Start.UTC().Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		query.Set("end_date", q.End.UTC().Format(time.RFC3339))
	}

	var samples []Sample
	path := "/telemetry/" + url.PathEscape(mmsi)
	if err := c.do(ctx, "telemetry", http.MethodGet, path, query, nil, true, &samples); err != nil {
		return nil, err
	}
	if samples == nil {
		samples = []Sample{}
	}
	return samples, nil
}

func (c *Client) bearer() (string, error) {
	session := c.Session()
	if session.Token == "" {
		return "", fmt.Errorf("%w: not logged in", ErrAuth)
	}
	if session.Expired(c.now()) {
		return "", fmt.Errorf("%w: bearer token expired at %s", ErrAuth, session.ExpiresAt.Format(time.RFC3339))
	}
	return session.Token, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, form url.Values, authenticated bool, out any) (err error) {
	started := time.Now()
	defer func() {
		gatewayDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
		gatewayRequests.WithLabelValues(operation, KindOf(err)).Inc()
	}()

	token := ""
	if authenticated {
		if token, err = c.bearer(); err != nil {
			return err
		}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", ErrNetwork, err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	blob, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, endpoint, token, form)
	})
	if err != nil {
		return breakerError(err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(blob, out); err != nil {
		return fmt.Errorf("%w: decode %s %s response: %v", ErrNetwork, method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint, token string, form url.Values) ([]byte, error) {
	var body io.Reader
	if form != nil {
		body = bytes.NewBufferString(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrValidation, err)
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s response: %v", ErrNetwork, method, req.URL.Path, err)
	}

	if resp.StatusCode >= 400 {
		detail := describeAPIError(blob)
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s %s: %s", ErrAuth, method, req.URL.Path, detail)
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: %s %s failed with status %d: %s", ErrNetwork, method, req.URL.Path, resp.StatusCode, detail)
		default:
			return nil, fmt.Errorf("%w: %s %s rejected with status %d: %s", ErrValidation, method, req.URL.Path, resp.StatusCode, detail)
		}
	}
	return blob, nil
}

func describeAPIError(blob []byte) string {
	var apiErr apiError
	if json.Unmarshal(blob, &apiErr) == nil && apiErr.Detail != nil {
		if text, ok := apiErr.Detail.(string); ok && strings.TrimSpace(text) != "" {
			return text
		}
		if encoded, err := json.Marshal(apiErr.Detail); err == nil {
			return string(encoded)
		}
	}
	text := strings.TrimSpace(string(blob))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return "no detail"
	}
	return text
}

// IsAuthFailure reports whether err must be surfaced to the session layer.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuth)
}
