// Package featureflag evaluates named toggles with percentage rollouts.
// A FlagSet is an immutable snapshot built per request; there is no shared
// mutable flag state between concurrent requests.
package featureflag

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/cache"
)

const (
	flagCacheKey = "featureflags:all"
	flagCacheTTL = 60 * time.Second
)

// FlagSet is the evaluated flag state for one user at one point in time.
type FlagSet struct {
	userID string
	flags  map[string]models.FeatureFlag
}

// Loader builds per-request flag sets from storage, with a short-lived
// Redis cache in front to keep flag checks off the database's hot path.
type Loader struct {
	repo repository.FlagRepository
}

func NewLoader(repo repository.FlagRepository) *Loader {
	return &Loader{repo: repo}
}

// ForUser snapshots the current flag state for one user. The snapshot is
// immutable; later flag changes only affect later requests.
func (l *Loader) ForUser(userID uint) (*FlagSet, error) {
	flags, err := l.loadAll()
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]models.FeatureFlag, len(flags))
	for _, f := range flags {
		byKey[f.Key] = f
	}
	return &FlagSet{userID: strconv.FormatUint(uint64(userID), 10), flags: byKey}, nil
}

func (l *Loader) loadAll() ([]models.FeatureFlag, error) {
	if raw, err := cache.Get(flagCacheKey); err == nil && raw != "" {
		var flags []models.FeatureFlag
		if err := json.Unmarshal([]byte(raw), &flags); err == nil {
			return flags, nil
		}
		log.Warnf("[FeatureFlag] dropping corrupt flag cache entry")
	}

	flags, err := l.repo.GetAll()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(flags); err == nil {
		if err := cache.Set(flagCacheKey, string(data), flagCacheTTL); err != nil {
			log.Warnf("[FeatureFlag] failed to cache flags: %v", err)
		}
	}
	return flags, nil
}

// Invalidate drops the cached snapshot after a flag change.
func Invalidate() {
	if err := cache.Delete(flagCacheKey); err != nil {
		log.Warnf("[FeatureFlag] failed to invalidate flag cache: %v", err)
	}
}

// IsEnabled evaluates one flag for the set's user. Unknown flags are off.
// A disabled flag is off for everyone regardless of rollout; an enabled flag
// applies its rollout percentage through the stable bucket hash.
func (s *FlagSet) IsEnabled(key string) bool {
	flag, ok := s.flags[key]
	if !ok || !flag.Enabled {
		return false
	}
	return IsInPercentage(flag.Key, s.userID, flag.RolloutPercentage)
}

// All returns every known flag key with its evaluated state for this user.
func (s *FlagSet) All() map[string]bool {
	out := make(map[string]bool, len(s.flags))
	for key := range s.flags {
		out[key] = s.IsEnabled(key)
	}
	return out
}

// Buckets returns the rollout bucket this user hashes into per flag. The
// bucket is stable across requests, so clients can see where they sit
// relative to a flag's rollout percentage.
func (s *FlagSet) Buckets() map[string]int {
	out := make(map[string]int, len(s.flags))
	for key := range s.flags {
		out[key] = ComputeHashBucket(key, s.userID)
	}
	return out
}

// NewFlagSet builds a snapshot directly from flags, bypassing storage.
// Used by tests and startup code paths that already hold the flag list.
func NewFlagSet(userID uint, flags []models.FeatureFlag) *FlagSet {
	byKey := make(map[string]models.FeatureFlag, len(flags))
	for _, f := range flags {
		byKey[f.Key] = f
	}
	return &FlagSet{userID: strconv.FormatUint(uint64(userID), 10), flags: byKey}
}
