package metering

import (
	"fmt"
	"time"

	"github.com/DorianVeras/TradeGate/internal/pkg/cache"
)

// SnapshotCache holds short-lived copies of usage counters for cheap reads
// on dashboards and headers. It is never the system of record: every
// admission decision goes to the database.
type SnapshotCache interface {
	GetUsed(userID uint, periodKey string) (int, bool)
	SetUsed(userID uint, periodKey string, used int)
}

const snapshotTTL = 60 * time.Second

type redisSnapshotCache struct{}

// NewRedisSnapshotCache creates a snapshot cache on the shared redis client.
func NewRedisSnapshotCache() SnapshotCache {
	return redisSnapshotCache{}
}

func snapshotKey(userID uint, periodKey string) string {
	return fmt.Sprintf("usage:snapshot:%d:%s", userID, periodKey)
}

func (redisSnapshotCache) GetUsed(userID uint, periodKey string) (int, bool) {
	used, err := cache.GetInt(snapshotKey(userID, periodKey))
	if err != nil {
		return 0, false
	}
	return used, true
}

func (redisSnapshotCache) SetUsed(userID uint, periodKey string, used int) {
	// Best effort; a miss just falls back to the database.
	_ = cache.Set(snapshotKey(userID, periodKey), used, snapshotTTL)
}
