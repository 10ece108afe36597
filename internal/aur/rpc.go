package aur

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultURL is the public AUR instance.
	DefaultURL = "https://aur.archlinux.org"

	defaultBatchSize = 150
	defaultBackoff   = 500 * time.Millisecond
	defaultTimeout   = 20 * time.Second
)

// Client talks to the AUR RPC interface (v5).
type Client struct {
	l         hclog.Logger
	baseURL   string
	hClient   *http.Client
	batchSize int
	backoff   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l hclog.Logger) Option {
	return func(c *Client) {
		c.l = l.Named("aur")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.hClient = h
	}
}

// WithBatchSize bounds how many names go into one info request.
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithBackoff sets the pause before the single retry of a transient failure.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// New returns a client for the AUR instance at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		l:         hclog.NewNullLogger(),
		baseURL:   strings.TrimRight(baseURL, "/"),
		hClient:   &http.Client{Timeout: defaultTimeout},
		batchSize: defaultBatchSize,
		backoff:   defaultBackoff,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the registry root, without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Info fetches full metadata for the given names. Names unknown to the
// registry are simply absent from the result. Requests are batched and
// issued one after another.
func (c *Client) Info(ctx context.Context, names []string) ([]Package, error) {
	var out []Package
	for start := 0; start < len(names); start += c.batchSize {
		end := min(start+c.batchSize, len(names))
		q := url.Values{}
		for _, n := range names[start:end] {
			q.Add("arg[]", n)
		}
		c.l.Debug("Querying info", "count", end-start)
		res, err := c.get(ctx, "/rpc/v5/info?"+q.Encode())
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

// Search returns packages whose field selected by by matches query.
func (c *Client) Search(ctx context.Context, query string, by SearchBy) ([]Package, error) {
	if by == "" {
		by = ByName
	}
	c.l.Debug("Searching", "query", query, "by", string(by))
	return c.get(ctx, "/rpc/v5/search/"+url.PathEscape(query)+"?by="+url.QueryEscape(string(by)))
}

func (c *Client) get(ctx context.Context, path string) ([]Package, error) {
	res, err := c.do(ctx, path)
	if err != nil && isTransient(err) && ctx.Err() == nil {
		c.l.Warn("Transient registry failure, retrying once", "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff):
		}
		res, err = c.do(ctx, path)
	}
	return res, err
}

// statusError is returned for non-200 responses.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("aur rpc: HTTP %d", e.code)
}

func (c *Client) do(ctx context.Context, path string) ([]Package, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aur rpc: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{code: resp.StatusCode}
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding aur response: %w", err)
	}
	if r.Type == "error" || r.Error != "" {
		return nil, fmt.Errorf("aur rpc: %s", r.Error)
	}
	return r.Results, nil
}

// isTransient reports timeouts and server-side failures.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
