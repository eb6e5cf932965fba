// Package writer implements the rotating JSONL append-only log sink shared by
// Discovery (markets log) and Polling (orderbook, poll_stats, poll_errors logs).
//
// Layout per venue under a configured root:
//
//	<venue>/<stream>/date=YYYY-MM-DD/<prefix>.part-NNNN.jsonl
//
// Files are append-only; a record is one line of UTF-8 JSON. The writer
// buffers writes and fsyncs on a record-count or time trigger, whichever
// comes first, so the worst case on a hard kill is a truncated trailing
// partial line, which downstream readers must tolerate and skip.
package writer
