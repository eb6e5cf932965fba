package novx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mdragan85/venuepoll/internal/auth"
	"github.com/mdragan85/venuepoll/internal/model"
	"github.com/mdragan85/venuepoll/internal/venue"
)

// Client is the novx REST venue adapter. One Client is shared across a
// venue's goroutines for Discover, but each worker wraps it with its own
// *http.Client (see NewWorkerClient) so HTTP connection pools never cross
// worker boundaries.
type Client struct {
	baseURL string
	creds   *auth.Credentials
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithCredentials signs every request with the given venue credentials. Pass
// no option to make unauthenticated requests.
func WithCredentials(creds *auth.Credentials) Option {
	return func(c *Client) { c.creds = creds }
}

// WithHTTPClient overrides the default HTTP client. Per-worker transports do
// not go through this option; NewWorkerClient builds its own client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a novx REST client against baseURL (e.g.
// "https://api.novex.example/v1").
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWorkerClient returns a copy of c with its own *http.Transport, so a
// worker goroutine never shares a connection pool with another worker.
func (c *Client) NewWorkerClient(timeout time.Duration) *Client {
	return &Client{
		baseURL: c.baseURL,
		creds:   c.creds,
		http: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
	}
}

// marketsResponse is the venue's /markets listing page.
type marketsResponse struct {
	Markets []marketEntry `json:"markets"`
	Cursor  string        `json:"cursor"`
}

type marketEntry struct {
	Ticker         string `json:"ticker"`
	MarketID       string `json:"market_id"`
	Title          string `json:"title"`
	Slug           string `json:"slug"`
	Underlying     string `json:"underlying"`
	Status         string `json:"status"`
	ExpirationTime int64  `json:"expiration_time_ms"`
}

// Discover enumerates novx's currently listed markets, filtered by the
// venue's opaque rules (e.g. status allow-list), and returns them as
// Instruments. rules, if non-nil, must be a *Rules.
func (c *Client) Discover(ctx context.Context, rules any) ([]model.Instrument, error) {
	filter, _ := rules.(*Rules)

	var out []model.Instrument
	cursor := ""
	for {
		page, err := c.fetchMarketsPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("novx: discover: %w", err)
		}
		for _, m := range page.Markets {
			if filter != nil && !filter.Allows(m.Status) {
				continue
			}
			out = append(out, model.Instrument{
				Venue:        "novx",
				PollKey:      m.Ticker,
				MarketID:     m.MarketID,
				ExpirationMs: m.ExpirationTime,
				Slug:         m.Slug,
				Title:        m.Title,
				Underlying:   m.Underlying,
				Rule:         "novx_markets_v1",
			})
		}
		if page.Cursor == "" {
			return out, nil
		}
		cursor = page.Cursor
	}
}

// Rules filters novx markets returned by Discover to those whose status is
// in Statuses (e.g. {"open"}). A nil or empty Rules allows everything.
type Rules struct {
	Statuses map[string]struct{}
}

// NewRules builds a Rules from a set of allowed statuses.
func NewRules(statuses ...string) *Rules {
	r := &Rules{Statuses: make(map[string]struct{}, len(statuses))}
	for _, s := range statuses {
		r.Statuses[s] = struct{}{}
	}
	return r
}

// Allows reports whether status passes the filter.
func (r *Rules) Allows(status string) bool {
	if r == nil || len(r.Statuses) == 0 {
		return true
	}
	_, ok := r.Statuses[status]
	return ok
}

func (c *Client) fetchMarketsPage(ctx context.Context, cursor string) (*marketsResponse, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(1000))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	body, err := c.get(ctx, "/markets", query)
	if err != nil {
		return nil, err
	}
	var resp marketsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal markets page: %w", err)
	}
	return &resp, nil
}

// orderbookResponse is the venue's raw per-market orderbook payload.
type orderbookResponse struct {
	TsMs int64              `json:"ts_ms"`
	Bids []model.PriceLevel `json:"bids"`
	Asks []model.PriceLevel `json:"asks"`
}

// GetOrderbook fetches pollKey's current order book. The full response body
// is returned as raw for the Normalizer; obTsMs is lifted from the response's
// own ts_ms field when present.
func (c *Client) GetOrderbook(ctx context.Context, pollKey string) ([]byte, *int64, error) {
	body, err := c.get(ctx, "/markets/"+pollKey+"/orderbook", nil)
	if err != nil {
		return nil, nil, err
	}

	var probe orderbookResponse
	if jsonErr := json.Unmarshal(body, &probe); jsonErr == nil && probe.TsMs > 0 {
		ts := probe.TsMs
		return body, &ts, nil
	}
	return body, nil, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.creds != nil {
		headers, err := c.creds.SignRequest(http.MethodGet, path)
		if err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &venue.FetchError{Kind: venue.KindNetwork, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		return nil, &venue.FetchError{
			Kind:       venue.KindFromHTTPStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("novx api error %d: %s", resp.StatusCode, string(body)),
		}
	}

	return body, nil
}

// classifyTransportError turns a transport-level failure (DNS, connect,
// context deadline) into the venue's FetchError taxonomy.
func classifyTransportError(err error) error {
	if isTimeout(err) {
		return &venue.FetchError{Kind: venue.KindTimeout, Err: err}
	}
	return &venue.FetchError{Kind: venue.KindNetwork, Err: err}
}

type timeoutError interface {
	Timeout() bool
}

// isTimeout unwraps a *url.Error (the usual shape of http.Client.Do errors)
// looking for an underlying net.Error with Timeout() true.
func isTimeout(err error) bool {
	if ue, ok := err.(*url.Error); ok {
		err = ue.Err
	}
	te, ok := err.(timeoutError)
	return ok && te.Timeout()
}

var _ venue.Client = (*Client)(nil)
