package counter

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/queryhub/QueryHub/internal/pkg/cache"
	"github.com/queryhub/QueryHub/internal/pkg/database"
)

const (
	documentQueriesKey = "document:counters:queries"
	userQueriesKey     = "user:counters:queries:daily"
)

// AddDocumentQuery increments the pending query counter for a document in Redis
func AddDocumentQuery(documentID uint) error {
	ctx := context.Background()
	field := strconv.FormatUint(uint64(documentID), 10)
	return cache.GetClient().HIncrBy(ctx, documentQueriesKey, field, 1).Err()
}

// AddUserQuery increments the caller's daily query counter. The key rolls
// over at midnight UTC and expires after 48 hours; entitlement checks read
// it directly.
func AddUserQuery(userID uint) (int64, error) {
	ctx := context.Background()
	key := userQueriesKey + ":" + time.Now().UTC().Format("2006-01-02")
	field := strconv.FormatUint(uint64(userID), 10)

	count, err := cache.GetClient().HIncrBy(ctx, key, field, 1).Result()
	if err != nil {
		return 0, err
	}
	cache.GetClient().Expire(ctx, key, 48*time.Hour)
	return count, nil
}

// UserQueriesToday returns the caller's query count for the current UTC day.
func UserQueriesToday(userID uint) (int64, error) {
	ctx := context.Background()
	key := userQueriesKey + ":" + time.Now().UTC().Format("2006-01-02")
	field := strconv.FormatUint(uint64(userID), 10)

	raw, err := cache.GetClient().HGet(ctx, key, field).Result()
	if err != nil {
		if err.Error() == "redis: nil" {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

// FlushAll flushes pending document query counters to the database
func FlushAll() error {
	return flushHashToTable(documentQueriesKey, "knowledge_documents", "query_count")
}

// flushHashToTable drains a Redis hash atomically and applies batched increments.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func flushHashToTable(redisKey, table, column string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	tmpKey := redisKey + ":tmp:" + strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	type pair struct {
		id  uint64
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		id, perr := strconv.ParseUint(k, 10, 64)
		if perr != nil {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{id: id, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	// UPDATE <table> SET <column> = <column> + CASE id WHEN ? THEN ? ... END WHERE id IN (...)
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE id ")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	builder.WriteString(" END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.id)
	}
	builder.WriteString(")")

	db := database.GetDB()
	if err := db.Exec(builder.String(), args...).Error; err != nil {
		return err
	}
	return nil
}
