package featureflag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/queryhub/QueryHub/app/models"
)

func TestComputeHashBucketStable(t *testing.T) {
	first := ComputeHashBucket("new-editor", "42")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeHashBucket("new-editor", "42"))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, HashBucketCount)
}

func TestComputeHashBucketVariesByFlag(t *testing.T) {
	// Different flags should not all share one bucket for a user.
	buckets := map[int]bool{}
	for _, key := range []string{"flag-a", "flag-b", "flag-c", "flag-d", "flag-e", "flag-f"} {
		buckets[ComputeHashBucket(key, "42")] = true
	}
	assert.Greater(t, len(buckets), 1)
}

func TestIsInPercentageBounds(t *testing.T) {
	assert.False(t, IsInPercentage("any", "1", 0))
	assert.False(t, IsInPercentage("any", "1", -5))
	assert.True(t, IsInPercentage("any", "1", 100))
	assert.True(t, IsInPercentage("any", "1", 150))
}

func TestIsInPercentageRoughDistribution(t *testing.T) {
	included := 0
	for i := 0; i < 1000; i++ {
		if IsInPercentage("rollout-test", string(rune('a'+i%26))+string(rune('0'+i%10))+string(rune('A'+i%13)), 50) {
			included++
		}
	}
	// A 50% rollout over many users should land near half.
	assert.Greater(t, included, 300)
	assert.Less(t, included, 700)
}

func TestFlagSetEvaluation(t *testing.T) {
	flags := []models.FeatureFlag{
		{Key: "full-on", Enabled: true, RolloutPercentage: 100},
		{Key: "disabled", Enabled: false, RolloutPercentage: 100},
		{Key: "zero-rollout", Enabled: true, RolloutPercentage: 0},
	}
	set := NewFlagSet(42, flags)

	assert.True(t, set.IsEnabled("full-on"))
	assert.False(t, set.IsEnabled("disabled"))
	assert.False(t, set.IsEnabled("zero-rollout"))
	assert.False(t, set.IsEnabled("unknown"))
}

func TestFlagSetPartialRolloutStablePerUser(t *testing.T) {
	flags := []models.FeatureFlag{{Key: "partial", Enabled: true, RolloutPercentage: 40}}
	set := NewFlagSet(7, flags)

	first := set.IsEnabled("partial")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, set.IsEnabled("partial"))
	}
}

func TestFlagSetBuckets(t *testing.T) {
	flags := []models.FeatureFlag{
		{Key: "a", Enabled: true, RolloutPercentage: 40},
		{Key: "b", Enabled: false},
	}
	set := NewFlagSet(42, flags)

	buckets := set.Buckets()
	assert.Len(t, buckets, 2)
	assert.Equal(t, ComputeHashBucket("a", "42"), buckets["a"])
	assert.Equal(t, ComputeHashBucket("b", "42"), buckets["b"])
}

func TestFlagSetAll(t *testing.T) {
	flags := []models.FeatureFlag{
		{Key: "a", Enabled: true, RolloutPercentage: 100},
		{Key: "b", Enabled: false},
	}
	set := NewFlagSet(1, flags)

	all := set.All()
	assert.Len(t, all, 2)
	assert.True(t, all["a"])
	assert.False(t, all["b"])
}
