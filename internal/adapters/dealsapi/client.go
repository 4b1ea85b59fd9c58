// internal/adapters/dealsapi/client.go
package dealsapi

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"vacation_deals/internal/adapters/observability"
	"vacation_deals/internal/domain"
)

// Client talks to the document API that stores deals and serves the
// destination/hotel/airport directories.
type Client struct {
	base  string
	hc    *http.Client
	token string
	rl    *rate.Limiter
}

func New(base, token string, rps int) (*Client, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("deals API base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: 20 * time.Second},
		token: token,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var (
	ErrNotFound     = fmt.Errorf("deals api: %w", domain.ErrNotFound)
	ErrUnauthorized = fmt.Errorf("deals api: %w", domain.ErrUnauthorized)
)

// APIError is a non-success answer. Message is the API's own text, if any.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("deals api: status %d", e.Status)
}

// ---- Public API ----

func (c *Client) GetDeal(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	return out, c.do(ctx, http.MethodGet, "/deals/"+url.PathEscape(id), nil, &out)
}

func (c *Client) ListDeals(ctx context.Context) ([]map[string]any, error) {
	return c.list(ctx, "/deals")
}

func (c *Client) CreateDeal(ctx context.Context, p domain.DealPayload) (map[string]any, error) {
	var out map[string]any
	return out, c.do(ctx, http.MethodPost, "/deals", p, &out)
}

func (c *Client) UpdateDeal(ctx context.Context, id string, p domain.DealPayload) (map[string]any, error) {
	var out map[string]any
	return out, c.do(ctx, http.MethodPut, "/deals/"+url.PathEscape(id), p, &out)
}

func (c *Client) DeleteDeal(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/deals/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeletePrice(ctx context.Context, dealID, priceID string) error {
	return c.do(ctx, http.MethodDelete,
		"/deals/"+url.PathEscape(dealID)+"/prices/"+url.PathEscape(priceID), nil, nil)
}

func (c *Client) ListDestinations(ctx context.Context) ([]map[string]any, error) {
	return c.list(ctx, "/destinations")
}

func (c *Client) ListHotels(ctx context.Context) ([]map[string]any, error) {
	return c.list(ctx, "/hotels")
}

func (c *Client) ListAirports(ctx context.Context) ([]map[string]any, error) {
	return c.list(ctx, "/airports")
}

// ---- Internals ----

// list accepts a bare array or an envelope {"data": [...]}.
func (c *Client) list(ctx context.Context, path string) ([]map[string]any, error) {
	var raw any
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	if env, ok := raw.(map[string]any); ok {
		raw = env["data"]
	}
	items, _ := raw.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// do performs one call with client-side rate limiting and JSON in/out.
// Idempotent methods are retried on 429 and transient 5xx, honoring
// Retry-After when provided; POST is never retried.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = b
	}
	attempts := 4
	if method == http.MethodPost {
		attempts = 1
	}
	endpoint := endpointLabel(path)

	var lastErr error
	for i := 0; i < attempts; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "vacation-deals/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("dealsapi", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < attempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("dealsapi", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			defer resp.Body.Close()
			if out == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil
			}
			return json.NewDecoder(resp.Body).Decode(out)

		case http.StatusNoContent:
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			lastErr = readAPIError(resp)
			if wait == 0 {
				wait = backoff(i)
			}
			if i < attempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			return readAPIError(resp)
		}
	}
	if lastErr == nil {
		lastErr = errors.New("deals api: no attempt made")
	}
	return lastErr
}

// readAPIError reads a small error body: {"message": "..."} or {"error": "..."}
// or plain text. Closes the body.
func readAPIError(resp *http.Response) error {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(b))
	var env map[string]any
	if json.Unmarshal(b, &env) == nil {
		msg = ""
		for _, k := range []string{"message", "error", "detail"} {
			if s, ok := env[k].(string); ok && strings.TrimSpace(s) != "" {
				msg = strings.TrimSpace(s)
				break
			}
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// endpointLabel keeps metric cardinality low: "/deals/123/prices/9" -> "/deals/:id/prices/:id".
func endpointLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 1; i < len(parts); i += 2 {
		parts[i] = ":id"
	}
	return "/" + strings.Join(parts, "/")
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay (200ms, 400ms, 800ms...) with up to
// +50% jitter from crypto/rand.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
