package utils

import (
	"time"

	"github.com/tomaszgubala/car-dealer/config"
)

// Cache TTLs for the public read paths. Listing pages churn with every import
// run so they stay short; filter options barely change.
const (
	ListingCacheTTL       = 60 * time.Second
	VehicleCacheTTL       = 120 * time.Second
	FilterOptionsCacheTTL = 300 * time.Second
)

func CacheGet(key string, dest interface{}) bool {
	found, err := config.GetRedisObject(key, dest)
	if err != nil {
		return false
	}
	return found
}

func CacheSet(key string, value interface{}, ttl time.Duration) {
	if err := config.SetRedisObject(key, value, ttl); err != nil {
		config.LogError(config.GetLogger(), "utils", "CacheSet", key, nil, err)
	}
}

// InvalidateListingCache drops every cached listing page, vehicle detail and
// filter-option set. Best-effort: a cache failure is logged and swallowed,
// callers never fail because of it.
func InvalidateListingCache() {
	logger := config.GetLogger()
	for _, pattern := range []string{"listing:*", "vehicle:*", "filters:*"} {
		if err := config.RemoveRedisPattern(pattern); err != nil {
			config.LogError(logger, "utils", "InvalidateListingCache", pattern, nil, err)
		}
	}
}
