package novx

import (
	"encoding/json"
	"fmt"

	"github.com/mdragan85/venuepoll/internal/model"
	"github.com/mdragan85/venuepoll/internal/venue"
)

// wirePayload mirrors orderbookResponse but is decoded independently by the
// Normalizer, which only ever sees the raw bytes a worker captured (the
// Normalizer is a pure function with no access to the Client that fetched
// the payload).
type wirePayload struct {
	TsMs int64              `json:"ts_ms"`
	Bids []model.PriceLevel `json:"bids"`
	Asks []model.PriceLevel `json:"asks"`
}

// Normalize converts a raw novx orderbook payload into an OrderbookRecord.
// It satisfies venue.Normalizer.
func Normalize(raw []byte, pollKey string, tsMs int64, obTsMs *int64) (model.OrderbookRecord, error) {
	var payload wirePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.OrderbookRecord{}, fmt.Errorf("novx: normalize %s: %w", pollKey, err)
	}

	rec := model.NewOrderbookRecord("novx", pollKey, "novx:"+pollKey, tsMs, obTsMs)
	rec.Bids = payload.Bids
	rec.Asks = payload.Asks
	if len(payload.Bids) > 0 {
		rec.BestBid = payload.Bids[0].Price
	}
	if len(payload.Asks) > 0 {
		rec.BestAsk = payload.Asks[0].Price
	}
	return rec, nil
}

var _ venue.Normalizer = Normalize
