package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const availabilityKeyPrefix = "availability:"

// checkAndReserveScript decrements availability only when enough remains, so
// hot units reject oversell before the durable ledger is touched.
var checkAndReserveScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return -1
end

current = tonumber(current)
if current >= quantity then
	redis.call('DECRBY', key, quantity)
	return 1
end

return 0
`)

// AvailabilityCache mirrors per-unit available capacity in Redis as a
// fast-path in front of the capacity ledger. The ledger stays authoritative;
// the cache is kept write-through and may be rebuilt with Sync at any time.
type AvailabilityCache struct {
	client *redis.Client
}

func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// Reserve atomically claims qty from the cached availability. It returns true
// when the claim fits, false when it does not; an unknown unit is treated as
// fitting so the ledger decides.
func (c *AvailabilityCache) Reserve(ctx context.Context, unitID string, qty int) (bool, error) {
	key := availabilityKeyPrefix + unitID

	result, err := checkAndReserveScript.Run(ctx, c.client, []string{key}, qty).Int()
	if err != nil {
		return false, err
	}
	return result != 0, nil
}

// Restore returns qty to the cached availability (release, expiry, rollback).
func (c *AvailabilityCache) Restore(ctx context.Context, unitID string, qty int) error {
	key := availabilityKeyPrefix + unitID
	return c.client.IncrBy(ctx, key, int64(qty)).Err()
}

// Sync overwrites the cached availability with the ledger's current value.
func (c *AvailabilityCache) Sync(ctx context.Context, unitID string, available int) error {
	key := availabilityKeyPrefix + unitID
	return c.client.Set(ctx, key, available, 0).Err()
}
