package port

import "time"

// Cache is a TTL key-value store for share snapshots and CSRF tokens.
// Entries expire absolutely, not sliding. Implementations must treat a
// missing key as (value "", ok false, err nil); callers treat any error as
// a miss so a cache outage never fails the operation.
type Cache interface {
	// Get returns the cached value for key, or ok=false on a miss
	Get(key string) (string, bool, error)

	// Set stores value under key with an absolute TTL
	Set(key string, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}
