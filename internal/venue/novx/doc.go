// Package novx is the venue adapter for "novx", a single-book CLOB reached
// over a plain REST API. Each worker holds its own *http.Client with an
// isolated *http.Transport so no worker shares a connection pool with
// another (see internal/venue.Client).
//
// Endpoints:
//   - GET /markets               -> Discover
//   - GET /markets/{poll_key}/orderbook -> GetOrderbook
package novx
