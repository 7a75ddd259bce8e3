package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/DorianVeras/TradeGate/app/models"
	"github.com/DorianVeras/TradeGate/internal/pkg/cache"
	"github.com/DorianVeras/TradeGate/internal/pkg/database"
)

const (
	CacheKeyAnalysesTotal       = "statistics:analyses:total"
	CacheKeyUsersTotal          = "statistics:users:total"
	CacheKeySubscriptionsActive = "statistics:subscriptions:active"
	CacheExpiration             = 30 * time.Minute
)

// StatisticsData holds the aggregate numbers shown on the landing and admin pages
type StatisticsData struct {
	TotalAnalyses       int
	TotalUsers          int
	ActiveSubscriptions int
}

// Cache refresh bookkeeping
var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached aggregates are due for a refresh
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached aggregates when the interval has passed
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next read to refresh the cache
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recomputes all aggregates and stores them in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalAnalyses int64
	if err := db.Model(&models.UsagePeriod{}).
		Select("COALESCE(SUM(analysis_count), 0)").
		Scan(&totalAnalyses).Error; err != nil {
		log.Printf("Error summing total analyses: %v", err)
		return err
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	var activeSubs int64
	if err := db.Model(&models.BillingSubscription{}).
		Where("status = ?", models.BillingStatusActive).
		Count(&activeSubs).Error; err != nil {
		log.Printf("Error counting active subscriptions: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyAnalysesTotal, strconv.FormatInt(totalAnalyses, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total analyses: %v", err)
		return err
	}
	if err := cache.Set(CacheKeyUsersTotal, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total users: %v", err)
		return err
	}
	if err := cache.Set(CacheKeySubscriptionsActive, strconv.FormatInt(activeSubs, 10), CacheExpiration); err != nil {
		log.Printf("Error caching active subscriptions: %v", err)
		return err
	}

	log.Printf("Statistics updated in cache: Total Analyses: %d, Total Users: %d, Active Subscriptions: %d",
		totalAnalyses, totalUsers, activeSubs)

	return nil
}

// GetTotalAnalyses returns the all-time analysis count from cache or database
func GetTotalAnalyses() int {
	val, err := cache.Get(CacheKeyAnalysesTotal)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.UsagePeriod{}).
			Select("COALESCE(SUM(analysis_count), 0)").
			Scan(&count).Error; err != nil {
			log.Printf("Error summing total analyses: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyAnalysesTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total analyses: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	val, err := cache.Get(CacheKeyUsersTotal)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total users: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyUsersTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total users: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetActiveSubscriptions returns the number of active subscriptions from cache or database
func GetActiveSubscriptions() int {
	val, err := cache.Get(CacheKeySubscriptionsActive)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.BillingSubscription{}).
			Where("status = ?", models.BillingStatusActive).
			Count(&count).Error; err != nil {
			log.Printf("Error counting active subscriptions: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeySubscriptionsActive, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching active subscriptions: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetStatisticsData returns all statistics data as StatisticsData structure
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TotalAnalyses:       GetTotalAnalyses(),
		TotalUsers:          GetTotalUsers(),
		ActiveSubscriptions: GetActiveSubscriptions(),
	}
}
