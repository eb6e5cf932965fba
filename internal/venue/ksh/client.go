package ksh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mdragan85/venuepoll/internal/auth"
	"github.com/mdragan85/venuepoll/internal/model"
	"github.com/mdragan85/venuepoll/internal/venue"
)

// Client holds one persistent WebSocket connection, meant to be owned by a
// single worker goroutine for its lifetime. It reconnects on drop; Discover
// and GetOrderbook are request/response commands correlated by ID, not
// streaming subscriptions.
type Client struct {
	url   string
	creds *auth.Credentials

	mu   sync.Mutex
	conn *websocket.Conn

	cmdID   int64
	pendMu  sync.Mutex
	pending map[int64]chan response

	readErrOnce sync.Once
	readErr     chan error
	done        chan struct{}
}

// NewClient creates a ksh client targeting a WebSocket URL
// (e.g. "wss://api.ksh.example/ws/v1"). Calling Connect first is optional:
// the first request dials the connection if it is not yet open.
func NewClient(url string, creds *auth.Credentials) *Client {
	return &Client{
		url:     url,
		creds:   creds,
		pending: make(map[int64]chan response),
		readErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
}

// Connect dials the WebSocket endpoint and starts the read loop. Safe to
// call again after a disconnect to reconnect.
func (c *Client) Connect(ctx context.Context) error {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.creds != nil {
		headers, err := c.creds.SignWebSocket()
		if err != nil {
			return fmt.Errorf("ksh: sign websocket: %w", err)
		}
		for k, v := range headers {
			header.Set(k, v)
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return &venue.FetchError{Kind: venue.KindNetwork, Err: fmt.Errorf("ksh: dial: %w", err)}
	}

	c.mu.Lock()
	c.conn = conn
	c.done = make(chan struct{})
	c.readErr = make(chan error, 1)
	c.readErrOnce = sync.Once{}
	c.mu.Unlock()

	go c.readLoop()
	return nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	default:
		close(done)
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// ensureConnected dials the connection on first use and transparently
// reconnects after a drop, so a worker can hold one *Client for its whole
// lifetime without the caller managing reconnection itself.
func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	connected := c.conn != nil
	c.mu.Unlock()
	if connected {
		return nil
	}
	return c.Connect(ctx)
}

func (c *Client) readLoop() {
	c.mu.Lock()
	conn := c.conn
	done := c.done
	c.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			c.readErrOnce.Do(func() {
				select {
				case c.readErr <- err:
				case <-done:
				}
			})
			return
		}

		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			continue // malformed frame; the in-flight request will time out
		}

		c.pendMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendMu.Unlock()

		if ok {
			select {
			case ch <- resp:
			default:
			}
		}
	}
}

// call sends cmd and waits up to timeout for its correlated response. It
// connects lazily, and reconnects transparently if a prior connection
// dropped, so callers never need to manage Connect/Close themselves.
func (c *Client) call(ctx context.Context, timeout time.Duration, cmdName string, params any) (json.RawMessage, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	conn := c.conn
	readErr := c.readErr
	c.mu.Unlock()

	id := atomic.AddInt64(&c.cmdID, 1)
	respCh := make(chan response, 1)
	c.pendMu.Lock()
	c.pending[id] = respCh
	c.pendMu.Unlock()
	defer func() {
		c.pendMu.Lock()
		delete(c.pending, id)
		c.pendMu.Unlock()
	}()

	data, err := json.Marshal(command{ID: id, Cmd: cmdName, Params: params})
	if err != nil {
		return nil, fmt.Errorf("ksh: marshal command: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return nil, &venue.FetchError{Kind: venue.KindNetwork, Err: fmt.Errorf("ksh: send: %w", err)}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, &venue.FetchError{Kind: venue.KindTimeout, Err: ctx.Err()}
	case <-timer.C:
		return nil, &venue.FetchError{Kind: venue.KindTimeout, Err: fmt.Errorf("ksh: %s timed out after %s", cmdName, timeout)}
	case err := <-readErr:
		return nil, &venue.FetchError{Kind: venue.KindNetwork, Err: fmt.Errorf("ksh: connection dropped: %w", err)}
	case resp := <-respCh:
		if resp.Type == "error" {
			var em errorMsg
			json.Unmarshal(resp.Msg, &em)
			return nil, &venue.FetchError{Kind: venue.KindProtocol, Err: fmt.Errorf("ksh: %s: %s", em.Code, em.Message)}
		}
		return resp.Msg, nil
	}
}

// Discover enumerates ksh's currently listed YES/NO instruments. rules, if
// non-nil, must be a *Rules.
func (c *Client) Discover(ctx context.Context, rules any) ([]model.Instrument, error) {
	filter, _ := rules.(*Rules)

	var out []model.Instrument
	cursor := ""
	for {
		raw, err := c.call(ctx, 10*time.Second, "list_markets", listMarketsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("ksh: discover: %w", err)
		}
		var page listMarketsMsg
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("ksh: discover: unmarshal page: %w", err)
		}
		for _, m := range page.Markets {
			if filter != nil && !filter.Allows(m.Status) {
				continue
			}
			out = append(out, model.Instrument{
				Venue:        "ksh",
				PollKey:      pollKeyFor(m.MarketTicker, m.Outcome),
				MarketID:     m.EventTicker,
				ExpirationMs: m.ExpirationTime,
				Title:        m.Title,
				Outcome:      m.Outcome,
				Rule:         "ksh_list_markets_v1",
			})
		}
		if page.Cursor == "" {
			return out, nil
		}
		cursor = page.Cursor
	}
}

// GetOrderbook fetches pollKey's current side of the book. The full
// orderbook response (both sides) is returned as raw so the Normalizer can
// select the side matching pollKey's outcome suffix.
func (c *Client) GetOrderbook(ctx context.Context, pollKey string) ([]byte, *int64, error) {
	ticker, _ := splitPollKey(pollKey)
	raw, err := c.call(ctx, 5*time.Second, "get_orderbook", getOrderbookParams{MarketTicker: ticker})
	if err != nil {
		return nil, nil, err
	}

	var ob orderbookMsg
	if jsonErr := json.Unmarshal(raw, &ob); jsonErr == nil && ob.TsMs > 0 {
		ts := ob.TsMs
		return raw, &ts, nil
	}
	return raw, nil, nil
}

// Rules filters ksh markets returned by Discover to those whose status is in
// Statuses. A nil or empty Rules allows everything.
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

// pollKeyFor builds the opaque poll_key for one outcome side of a market.
func pollKeyFor(marketTicker, outcome string) string {
	return marketTicker + ":" + outcome
}

// splitPollKey recovers the market ticker and outcome side from a poll_key
// built by pollKeyFor.
func splitPollKey(pollKey string) (ticker, outcome string) {
	idx := strings.LastIndex(pollKey, ":")
	if idx < 0 {
		return pollKey, ""
	}
	return pollKey[:idx], pollKey[idx+1:]
}

var _ venue.Client = (*Client)(nil)
