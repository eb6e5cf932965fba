package ksh

import (
	"encoding/json"
	"fmt"

	"github.com/mdragan85/venuepoll/internal/model"
	"github.com/mdragan85/venuepoll/internal/venue"
)

// Normalize converts a raw ksh orderbook response into an OrderbookRecord
// for the single YES or NO side pollKey identifies. It satisfies
// venue.Normalizer.
func Normalize(raw []byte, pollKey string, tsMs int64, obTsMs *int64) (model.OrderbookRecord, error) {
	var payload orderbookMsg
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.OrderbookRecord{}, fmt.Errorf("ksh: normalize %s: %w", pollKey, err)
	}

	_, outcome := splitPollKey(pollKey)
	var side [][2]string
	switch outcome {
	case "NO":
		side = payload.No
	default:
		side = payload.Yes
	}

	// The dual-book venue quotes each outcome as one [price, size] list of
	// resting buy orders; every level of the selected side becomes a bid and
	// the record carries no asks.
	bids, asks := splitLevels(side)

	rec := model.NewOrderbookRecord("ksh", pollKey, "ksh:"+pollKey, tsMs, obTsMs)
	rec.Bids = bids
	rec.Asks = asks
	if len(bids) > 0 {
		rec.BestBid = bids[0].Price
	}
	if len(asks) > 0 {
		rec.BestAsk = asks[0].Price
	}
	return rec, nil
}

// splitLevels interprets a single outcome's [price, size] ladder: the venue
// returns it as one list of resting orders, so every level is simultaneously
// this side's own bid book (other participants offering to buy this
// outcome). ksh has no separate ask ladder per outcome — the ask side of a
// YES order book is the bid side of the corresponding NO order book — so
// asks is returned empty. Nothing downstream fills it in: the NO side's book
// is not merged into a YES record, or the other way round.
func splitLevels(levels [][2]string) (bids, asks []model.PriceLevel) {
	bids = make([]model.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		bids = append(bids, model.PriceLevel{Price: lvl[0], Size: lvl[1]})
	}
	return bids, nil
}

var _ venue.Normalizer = Normalize
