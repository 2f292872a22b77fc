package download

// Package download implements the parallel download coordinator: candidate
// selection across all source stores, a fixed-size worker pool with
// per-attempt deadlines and a per-worker courtesy delay, serialized status
// writes through each store's own lock, batched eager persistence, and the
// aggregated run summary.
//
// There is no retry loop inside one run. Failed records stay retryable, so
// re-running the download command resumes exactly the unfinished work.
