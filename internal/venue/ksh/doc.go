// Package ksh is the venue adapter for "ksh", a dual-book YES/NO CLOB reached
// over a persistent WebSocket connection per worker. Each worker dials and
// holds its own *Client for the worker's lifetime (reconnecting on drop);
// Discover and GetOrderbook are one-shot request/response commands sent over
// that connection, correlated by a monotonic command ID, rather than
// subscriptions to a streaming channel.
package ksh
