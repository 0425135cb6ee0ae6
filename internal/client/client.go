// Package client is the typed gateway to the Central Illustration API. Every
// method is a single request with no retries; non-2xx replies come back as
// *apierr.Error carrying the backend's detail message when it sent one.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"central-illustration/internal/apierr"
)

const (
	// DefaultPort is the API port assumed when the base URL is derived from
	// the caller's origin.
	DefaultPort    = "8000"
	DefaultBaseURL = "http://localhost:" + DefaultPort
)

// TokenSource supplies the bearer token for each request. An empty token
// means the request goes out anonymously.
type TokenSource interface {
	Token() string
}

type StaticToken string

func (s StaticToken) Token() string { return string(s) }

type Option func(*Client)

// WithBaseURL pins the API origin. It takes precedence over any origin
// carried in a request context.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func New(opts ...Option) *Client {
	c := &Client{http: &http.Client{Timeout: 60 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c
}

type (
	originKey struct{}
	tokenKey  struct{}
)

// WithToken overrides the TokenSource for calls made with ctx. It lets a
// caller use a freshly issued token before anything has stored it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func (c *Client) token(ctx context.Context) string {
	if tok, ok := ctx.Value(tokenKey{}).(string); ok {
		return tok
	}
	if c.tokens != nil {
		return c.tokens.Token()
	}
	return ""
}

// WithOrigin records the origin the caller is being served from, e.g. the
// page a browser has open. The API is then assumed to live on the same host
// at DefaultPort.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// BaseURL resolves the API origin for one call: the configured URL, else the
// context origin's scheme and hostname with DefaultPort, else DefaultBaseURL.
func (c *Client) BaseURL(ctx context.Context) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	if origin, ok := ctx.Value(originKey{}).(string); ok && origin != "" {
		if u, err := url.Parse(origin); err == nil && u.Scheme != "" && u.Hostname() != "" {
			return u.Scheme + "://" + net.JoinHostPort(u.Hostname(), DefaultPort)
		}
	}
	return DefaultBaseURL
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	u := c.BaseURL(ctx) + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, err
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.token(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

// decodeError keeps a string detail as is; structured validation details
// are flattened to their JSON text.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &apierr.Error{Status: resp.StatusCode}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(data, &payload) == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			e.Detail = s
		} else {
			e.Detail = string(payload.Detail)
		}
	}
	if e.Detail == "" {
		e.Err = fmt.Errorf("%s", http.StatusText(resp.StatusCode))
	}
	return e
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	r := request{method: method, path: path}
	if in != nil {
		body, err := jsonBody(in)
		if err != nil {
			return err
		}
		r.body = body
		r.contentType = "application/json"
	}
	return c.do(ctx, r, out)
}
