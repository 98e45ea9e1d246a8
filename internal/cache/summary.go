// Package cache keeps computed attendance summaries in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"attendtrack/internal/model"
)

const keyPrefix = "attendance:summary:"

// Summaries is a Redis-backed attendance summary cache.
type Summaries struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaries caches entries for ttl; a non-positive ttl means 10 minutes.
func NewSummaries(client *redis.Client, ttl time.Duration) *Summaries {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Summaries{client: client, ttl: ttl}
}

func key(courseID, studentID string) string {
	return keyPrefix + courseID + ":" + studentID
}

// Get returns nil, nil on a miss.
func (c *Summaries) Get(ctx context.Context, courseID, studentID string) (*model.Summary, error) {
	raw, err := c.client.Get(ctx, key(courseID, studentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var s model.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode cached summary: %w", err)
	}
	return &s, nil
}

// Set stores s under its (course, student) key.
func (c *Summaries) Set(ctx context.Context, s model.Summary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(s.CourseID, s.StudentID), raw, c.ttl).Err()
}

// Invalidate drops the cached entry, if any.
func (c *Summaries) Invalidate(ctx context.Context, courseID, studentID string) error {
	return c.client.Del(ctx, key(courseID, studentID)).Err()
}
