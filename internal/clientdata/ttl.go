package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// TTLNews is the default freshness window for the decorative news feed
	TTLNews = 15 * time.Minute
)
