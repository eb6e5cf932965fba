package ksh

import "encoding/json"

// command is a one-shot request sent over the persistent connection.
type command struct {
	ID     int64  `json:"id"`
	Cmd    string `json:"cmd"`
	Params any    `json:"params"`
}

// response is the server's reply, correlated back to a command by ID.
type response struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"` // "ok", "error"
	Msg  json.RawMessage `json:"msg"`
}

// errorMsg is the response Msg payload when Type == "error".
type errorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// listMarketsParams requests the venue's current instrument listing.
type listMarketsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// listMarketsMsg is the response Msg payload for "list_markets".
type listMarketsMsg struct {
	Markets []marketEntry `json:"markets"`
	Cursor  string        `json:"cursor"`
}

type marketEntry struct {
	MarketTicker   string `json:"market_ticker"`
	EventTicker    string `json:"event_ticker"`
	Outcome        string `json:"outcome"` // "YES" or "NO"
	Title          string `json:"title"`
	Status         string `json:"status"`
	ExpirationTime int64  `json:"expiration_time_ms"`
}

// getOrderbookParams requests a market's current book; the reply carries both
// the YES and NO sides.
type getOrderbookParams struct {
	MarketTicker string `json:"market_ticker"`
}

// orderbookMsg is the response Msg payload for "get_orderbook"; it is also
// the shape the Normalizer decodes from the raw bytes a worker captured.
type orderbookMsg struct {
	TsMs int64       `json:"ts_ms"`
	Yes  [][2]string `json:"yes"` // [price, size] pairs for the YES side
	No   [][2]string `json:"no"`  // [price, size] pairs for the NO side
}
