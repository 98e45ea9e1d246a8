package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/model"
)

func newCache(t *testing.T) (*Summaries, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSummaries(client, time.Minute), mr
}

func TestSummariesRoundTrip(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	got, err := c.Get(ctx, "c1", "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	want := model.Summary{CourseID: "c1", StudentID: "s1", Present: 3, Absent: 1, TotalClasses: 10, Percentage: 30, Standing: model.StandingCritical}
	require.NoError(t, c.Set(ctx, want))
	assert.True(t, mr.Exists("attendance:summary:c1:s1"))

	got, err = c.Get(ctx, "c1", "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	mr.FastForward(2 * time.Minute)
	got, err = c.Get(ctx, "c1", "s1")
	require.NoError(t, err)
	assert.Nil(t, got, "entries expire after the ttl")
}

func TestSummariesInvalidate(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, model.Summary{CourseID: "c1", StudentID: "s1"}))
	require.NoError(t, c.Invalidate(ctx, "c1", "s1"))
	require.NoError(t, c.Invalidate(ctx, "c1", "s1"))

	got, err := c.Get(ctx, "c1", "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSummariesCorruptEntry(t *testing.T) {
	c, mr := newCache(t)
	require.NoError(t, mr.Set("attendance:summary:c1:s1", "{not json"))
	_, err := c.Get(context.Background(), "c1", "s1")
	assert.Error(t, err)
}
