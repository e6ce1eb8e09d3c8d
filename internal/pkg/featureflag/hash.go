package featureflag

import "hash/fnv"

// HashBucketCount is the number of rollout buckets (0-99)
const HashBucketCount = 100

// ComputeHashBucket maps a flag key and user id to a stable bucket. The same
// combination always lands in the same bucket, so a user does not flip-flop
// between rollout states across requests.
func ComputeHashBucket(flagKey, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(flagKey + ":" + userID))
	return int(h.Sum32() % HashBucketCount)
}

// IsInPercentage checks if a user falls within the given rollout percentage
// for a flag. percentage should be 0-100.
func IsInPercentage(flagKey, userID string, percentage int) bool {
	if percentage <= 0 {
		return false
	}
	if percentage >= 100 {
		return true
	}
	return ComputeHashBucket(flagKey, userID) < percentage
}
