// Package discovery runs one slow-cadence loop per venue that calls
// venue.Client.Discover, diffs the result against the previously observed
// ActiveSet in memory, appends MarketRecords for additions/changes, and
// atomically republishes the snapshot file Polling reads. It generalizes the
// teacher's single market-registry reconciliation loop (internal/market)
// into N independent per-venue loops with unrelated cadences.
package discovery
