package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/internal/pkg/cache"
	"github.com/queryhub/QueryHub/internal/pkg/database"
)

const (
	CacheKeyUsersTotal     = "statistics:users:total"
	CacheKeyDocumentsTotal = "statistics:documents:total"
	CacheKeyDocumentsDaily = "statistics:documents:daily:%s" // Format with date YYYY-MM-DD
	CacheExpiration        = 30 * time.Minute
)

// StatisticsData holds the numbers shown on the admin dashboard
type StatisticsData struct {
	TotalUsers     int
	TotalDocuments int
	TodayDocuments int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache checks whether the cached statistics are stale
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the statistics cache when it is stale
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

// ResetCacheUpdateTimer forces the next check to refresh
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache updates all statistics in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting users: %v", err)
		return err
	}

	var totalDocuments int64
	if err := db.Model(&models.KnowledgeDocument{}).Count(&totalDocuments).Error; err != nil {
		log.Printf("Error counting documents: %v", err)
		return err
	}

	today := time.Now().Format("2006-01-02")
	var todayDocuments int64
	if err := db.Model(&models.KnowledgeDocument{}).
		Where("created_at >= ?", today+" 00:00:00").
		Count(&todayDocuments).Error; err != nil {
		log.Printf("Error counting today's documents: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsersTotal, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyDocumentsTotal, strconv.FormatInt(totalDocuments, 10), CacheExpiration); err != nil {
		return err
	}
	dailyKey := fmt.Sprintf(CacheKeyDocumentsDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayDocuments, 10), CacheExpiration); err != nil {
		return err
	}

	return nil
}

// GetStatistics reads the cached statistics, refreshing on a miss
func GetStatistics() StatisticsData {
	UpdateCacheIfNeeded()

	data := StatisticsData{}
	if v, err := cache.GetInt(CacheKeyUsersTotal); err == nil {
		data.TotalUsers = v
	}
	if v, err := cache.GetInt(CacheKeyDocumentsTotal); err == nil {
		data.TotalDocuments = v
	}
	dailyKey := fmt.Sprintf(CacheKeyDocumentsDaily, time.Now().Format("2006-01-02"))
	if v, err := cache.GetInt(dailyKey); err == nil {
		data.TodayDocuments = v
	}
	return data
}
