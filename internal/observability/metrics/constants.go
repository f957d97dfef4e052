// Package metrics provides constants used across metric definitions.
package metrics

// Operation label values.
const (
	// OpEnsure is the worksheet header check performed at startup.
	OpEnsure = "ensure"
	// OpRead is a full collection read.
	OpRead = "read"
	// OpReplace is a full collection rewrite.
	OpReplace = "replace"
)

// Status and outcome label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0

	BucketFactor2 = 2

	BucketCount10 = 10
	BucketCount12 = 12
)
