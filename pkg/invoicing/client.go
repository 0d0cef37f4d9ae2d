// Package invoicing provides session-authenticated REST access to the
// external invoicing provider.
package invoicing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ridgeline-services/fieldops/internal/retry"
)

// Client defines the invoicing provider operations used by the pipeline.
type Client interface {
	// Authenticate establishes a session. Calling it is optional; data
	// methods authenticate lazily and reuse the session until it expires.
	Authenticate(ctx context.Context) error

	// ListInvoices fetches one page of invoices at the given offset,
	// newest first. The provider caps pageSize at 999.
	ListInvoices(ctx context.Context, offset, pageSize int) ([]Invoice, error)

	// GetCustomer fetches a single customer by external id.
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
}

// MaxPageSize is the largest page the provider accepts.
const MaxPageSize = 999

// Option configures the client.
type Option func(*restClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *restClient) {
		c.httpClient = hc
	}
}

// WithRateLimit sets a per-second rate limit for provider API calls.
func WithRateLimit(rps float64) Option {
	return func(c *restClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithSessionTTL sets how long an authenticated session is reused before
// re-authenticating. The provider expires sessions after 30 minutes; the
// default leaves headroom below that.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *restClient) {
		c.sessionTTL = ttl
	}
}

// WithRetry overrides the retry budget for provider calls.
func WithRetry(cfg retry.Config) Option {
	return func(c *restClient) {
		c.retryCfg = cfg
	}
}

// restClient is an explicit client handle: the session token lives here,
// not in package state, so each process constructs one and passes it down.
type restClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	sessionTTL time.Duration
	retryCfg   retry.Config

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewClient creates a new invoicing Client.
func NewClient(baseURL, username, password string, opts ...Option) Client {
	c := &restClient{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		sessionTTL: 25 * time.Minute,
		retryCfg:   retry.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginResponse struct {
	Token string `json:"token"`
}

// Authenticate implements Client.
func (c *restClient) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

func (c *restClient) authenticateLocked(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return eris.Wrap(err, "invoicing: marshal login")
	}

	login, err := retry.DoVal(ctx, c.retryCfg, func(ctx context.Context) (loginResponse, error) {
		var login loginResponse

		if err := c.limiter.Wait(ctx); err != nil {
			return login, eris.Wrap(err, "invoicing: rate limit")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/login", bytes.NewReader(payload))
		if err != nil {
			return login, eris.Wrap(err, "invoicing: build login request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return login, eris.Wrap(err, "invoicing: login request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("invoicing: login returned status %d", resp.StatusCode)
			if retry.RetryableStatus(resp.StatusCode) {
				return login, retry.Transient(statusErr)
			}
			return login, statusErr
		}

		if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
			return login, eris.Wrap(err, "invoicing: decode login response")
		}
		if login.Token == "" {
			return login, eris.New("invoicing: login returned empty token")
		}
		return login, nil
	})
	if err != nil {
		return err
	}

	c.token = login.Token
	c.expiresAt = time.Now().Add(c.sessionTTL)
	zap.L().Debug("invoicing: authenticated", zap.Time("session_expires", c.expiresAt))
	return nil
}

// sessionToken returns a valid token, re-authenticating when the cached
// session has expired.
func (c *restClient) sessionToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || time.Now().After(c.expiresAt) {
		if err := c.authenticateLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.token, nil
}

// get performs an authenticated GET and returns the response body. Throttle
// responses and server errors are retried within the configured budget.
func (c *restClient) get(ctx context.Context, path string) ([]byte, error) {
	token, err := c.sessionToken(ctx)
	if err != nil {
		return nil, err
	}

	return retry.DoVal(ctx, c.retryCfg, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "invoicing: rate limit")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "invoicing: build request %s", path)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "invoicing: request %s", path)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrapf(err, "invoicing: read response %s", path)
		}
		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("invoicing: %s returned status %d", path, resp.StatusCode)
			if retry.RetryableStatus(resp.StatusCode) {
				return nil, retry.Transient(statusErr)
			}
			return nil, statusErr
		}
		return body, nil
	})
}
