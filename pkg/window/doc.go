// Package window implements windowing constructs. In the world of data processing on an unbounded stream, Windowing
// is a concept of grouping data using temporal boundaries. We use event-time to discover temporal boundaries on an
// unbounded, infinite stream and Watermark to ensure the datasets within the boundaries are complete. The page
// counter applies a count on each group of data.
//
// Only Fixed windows (sometimes called tumbling windows) are supported. A fixed window is aligned, i.e. it applies
// across all the keys for the window of time in question, and every event time belongs to exactly one window.
//
// Window boundaries are aligned to the Unix epoch, so a 5s window always starts at a multiple of 5s since
// 1970-01-01T00:00:00Z. The interval is left inclusive and right exclusive, [Start, End).
//
// A window is kept open for a grace period after its End. Events arriving within the grace period are still
// counted, after that the window is closed and evicted, and any event mapping to it is a late event.
package window
