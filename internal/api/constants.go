package api

// API limits.
const (
	// MaxRequestBodySize caps request bodies (1 MB); member lists are small.
	MaxRequestBodySize = 1 << 20

	// DefaultOutstandingLimit is the page size for outstanding entries.
	DefaultOutstandingLimit = 500
)

// Cache-Control header values.
const (
	CacheNoStore = "no-store"
)
