// Package venue defines the interface every venue adapter implements, plus
// the error categories the scheduler and telemetry dispatch on. Concrete
// adapters live in internal/venue/novx and internal/venue/ksh.
package venue

import (
	"context"
	"fmt"

	"github.com/mdragan85/venuepoll/internal/model"
)

// Client is the interface a venue adapter implements. Discover enumerates
// the currently tradeable instruments; GetOrderbook fetches one instrument's
// current order book as a raw, venue-specific payload.
type Client interface {
	// Discover returns the venue's currently active instruments, filtered by
	// the venue's own opaque rules. Failures wrap as DiscoveryError.
	Discover(ctx context.Context, rules any) ([]model.Instrument, error)

	// GetOrderbook fetches a single instrument's raw order book payload.
	// obTsMs, if the venue reports its own book timestamp, is the venue-side
	// timestamp; nil if unavailable. Failures wrap as FetchError.
	GetOrderbook(ctx context.Context, pollKey string) (raw []byte, obTsMs *int64, err error)
}

// Normalizer converts a venue's raw payload into an OrderbookRecord. Errors
// during normalization are treated identically to fetch failures.
type Normalizer func(raw []byte, pollKey string, tsMs int64, obTsMs *int64) (model.OrderbookRecord, error)

// ErrorKind categorizes a FetchError for AIMD and backoff dispatch.
type ErrorKind string

const (
	KindHTTP4xx  ErrorKind = "http_4xx"
	KindHTTP429  ErrorKind = "http_429"
	KindHTTP5xx  ErrorKind = "http_5xx"
	KindNetwork  ErrorKind = "network"
	KindTimeout  ErrorKind = "timeout"
	KindProtocol ErrorKind = "protocol" // malformed payload, normalization failure
)

// FetchError wraps a single-instrument poll failure with its category and,
// where applicable, the HTTP status observed.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("venue fetch failed (%s, status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("venue fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DiscoveryError wraps a venue-wide discovery cycle failure.
type DiscoveryError struct {
	Venue string
	Err   error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("venue %s discovery failed: %v", e.Venue, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// KindFromHTTPStatus classifies an HTTP status code into an ErrorKind.
func KindFromHTTPStatus(status int) ErrorKind {
	switch {
	case status == 429:
		return KindHTTP429
	case status >= 500:
		return KindHTTP5xx
	case status >= 400:
		return KindHTTP4xx
	default:
		return KindNetwork
	}
}
