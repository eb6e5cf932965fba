package model

import "fmt"

// SchemaVersion is the current wire schema version for emitted records.
// Readers must tolerate a missing schema_version (legacy = 0, best-effort).
const SchemaVersion = 1

// Instrument is a single pollable order-book stream at a venue.
type Instrument struct {
	Venue        string         `json:"venue"`
	PollKey      string         `json:"poll_key"`
	MarketID     string         `json:"market_id"`
	ExpirationMs int64          `json:"expiration_ms"`
	Slug         string         `json:"slug,omitempty"`
	Title        string         `json:"title,omitempty"`
	Outcome      string         `json:"outcome,omitempty"`
	Underlying   string         `json:"underlying,omitempty"`
	Rule         string         `json:"rule,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Key returns the globally unique instrument_key: venue + ":" + poll_key.
func (i Instrument) Key() string {
	return i.Venue + ":" + i.PollKey
}

// Equal reports whether two instruments carry the same metadata (used by the
// discovery diff to decide whether a MarketRecord needs to be emitted again).
func (i Instrument) Equal(other Instrument) bool {
	if i.Venue != other.Venue || i.PollKey != other.PollKey || i.MarketID != other.MarketID {
		return false
	}
	if i.ExpirationMs != other.ExpirationMs || i.Slug != other.Slug || i.Title != other.Title {
		return false
	}
	if i.Outcome != other.Outcome || i.Underlying != other.Underlying || i.Rule != other.Rule {
		return false
	}
	if len(i.Extra) != len(other.Extra) {
		return false
	}
	for k, v := range i.Extra {
		ov, ok := other.Extra[k]
		if !ok || fmt.Sprint(v) != fmt.Sprint(ov) {
			return false
		}
	}
	return true
}

// ActiveSet is a venue's current set of instruments to poll, produced wholesale
// by one Discovery run. It is totally replaced each run, never merged.
type ActiveSet struct {
	Venue       string                `json:"venue"`
	AsofMs      int64                 `json:"asof_ts_utc"`
	Count       int                   `json:"count"`
	Instruments map[string]Instrument `json:"instruments"`
}

// NewActiveSet builds an ActiveSet from a slice of instruments, dropping any
// that are expired as of nowMs and deduplicating by instrument key (keeping
// the one with the later expiration on conflict).
func NewActiveSet(venue string, instruments []Instrument, nowMs, asofMs int64) ActiveSet {
	out := make(map[string]Instrument, len(instruments))
	for _, inst := range instruments {
		if inst.ExpirationMs <= nowMs {
			continue
		}
		key := inst.Key()
		if existing, ok := out[key]; ok && existing.ExpirationMs >= inst.ExpirationMs {
			continue
		}
		out[key] = inst
	}
	return ActiveSet{
		Venue:       venue,
		AsofMs:      asofMs,
		Count:       len(out),
		Instruments: out,
	}
}

// PriceLevel is a single resting order book level.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OrderbookRecord is the wire record emitted per successful poll.
type OrderbookRecord struct {
	RecordType     string       `json:"record_type"`
	SchemaVersion  int          `json:"schema_version"`
	Venue          string       `json:"venue"`
	PollKey        string       `json:"poll_key"`
	InstrumentID   string       `json:"instrument_id"`
	TsMs           int64        `json:"ts_ms"`
	ObTsMs         *int64       `json:"ob_ts_ms,omitempty"`
	Bids           []PriceLevel `json:"bids,omitempty"`
	Asks           []PriceLevel `json:"asks,omitempty"`
	BestBid        string       `json:"best_bid,omitempty"`
	BestAsk        string       `json:"best_ask,omitempty"`
	Mid            string       `json:"mid,omitempty"`
	Spread         string       `json:"spread,omitempty"`
	Raw            string       `json:"raw,omitempty"`
}

// NewOrderbookRecord builds an OrderbookRecord for the given instrument key.
func NewOrderbookRecord(venue, pollKey, instrumentID string, tsMs int64, obTsMs *int64) OrderbookRecord {
	return OrderbookRecord{
		RecordType:    "orderbook",
		SchemaVersion: SchemaVersion,
		Venue:         venue,
		PollKey:       pollKey,
		InstrumentID:  instrumentID,
		TsMs:          tsMs,
		ObTsMs:        obTsMs,
	}
}

// MarketRecord is the wire record emitted on instrument membership/metadata change.
type MarketRecord struct {
	RecordType    string         `json:"record_type"`
	SchemaVersion int            `json:"schema_version"`
	Venue         string         `json:"venue"`
	PollKey       string         `json:"poll_key"`
	InstrumentID  string         `json:"instrument_id"`
	MarketID      string         `json:"market_id"`
	ExpirationMs  int64          `json:"expiration_ms"`
	Slug          string         `json:"slug,omitempty"`
	Title         string         `json:"title,omitempty"`
	Outcome       string         `json:"outcome,omitempty"`
	Underlying    string         `json:"underlying,omitempty"`
	Rule          string         `json:"rule,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// NewMarketRecord builds a MarketRecord from an Instrument.
func NewMarketRecord(inst Instrument) MarketRecord {
	return MarketRecord{
		RecordType:    "market",
		SchemaVersion: SchemaVersion,
		Venue:         inst.Venue,
		PollKey:       inst.PollKey,
		InstrumentID:  inst.Key(),
		MarketID:      inst.MarketID,
		ExpirationMs:  inst.ExpirationMs,
		Slug:          inst.Slug,
		Title:         inst.Title,
		Outcome:       inst.Outcome,
		Underlying:    inst.Underlying,
		Rule:          inst.Rule,
		Extra:         inst.Extra,
	}
}

// PollStats is the per-venue telemetry record emitted every stats_interval.
// Counters are deltas since the last emission.
type PollStats struct {
	Venue               string `json:"venue"`
	TsMs                int64  `json:"ts_ms"`
	ActiveCount         int    `json:"active_count"`
	Submitted           int64  `json:"submitted"`
	Succeeded           int64  `json:"succeeded"`
	Failed              int64  `json:"failed"`
	HTTP4xx             int64  `json:"http_4xx"`
	HTTP5xx             int64  `json:"http_5xx"`
	HTTP429             int64  `json:"http_429"`
	Timeouts            int64  `json:"timeouts"`
	P50LatencyMs        int64  `json:"p50_latency_ms"`
	P95LatencyMs        int64  `json:"p95_latency_ms"`
	CooldownRemainingMs int64  `json:"cooldown_remaining_ms"`
	InflightLimit       int    `json:"inflight_limit"`
	MaxWorkers          int    `json:"max_workers"`
}

// PollError is a sampled diagnostic record for a single fetch/normalize failure.
type PollError struct {
	Venue         string `json:"venue"`
	TsMs          int64  `json:"ts_ms"`
	InstrumentKey string `json:"instrument_key"`
	MarketID      string `json:"market_id"`
	Slug          string `json:"slug,omitempty"`
	HTTPStatus    int    `json:"http_status,omitempty"`
	LatencyMs     int64  `json:"latency_ms"`
	ErrorKind     string `json:"error_kind"`
	Message       string `json:"message"`
	RequestID     string `json:"request_id,omitempty"`
}

const maxErrorMessageLen = 256

// TruncateMessage truncates an error message to the wire limit.
func TruncateMessage(msg string) string {
	if len(msg) <= maxErrorMessageLen {
		return msg
	}
	return msg[:maxErrorMessageLen]
}
