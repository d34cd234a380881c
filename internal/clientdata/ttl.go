package clientdata

import "time"

const (
	// TTLMarketData is how long a fetched price history counts as fresh.
	TTLMarketData = time.Hour

	// RetentionMarketData is how long a stale entry is kept as a fallback
	// for provider outages before the cleanup job removes it.
	RetentionMarketData = 30 * 24 * time.Hour
)
