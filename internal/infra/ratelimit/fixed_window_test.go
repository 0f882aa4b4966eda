package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// INCR だけ真似るフェイク
type fakeRedis struct {
	counts map[string]int64
	err    error
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	f.counts[keys[0]]++
	return redis.NewCmdResult(f.counts[keys[0]], nil)
}

func TestFixedWindow_Allow(t *testing.T) {
	fr := &fakeRedis{counts: map[string]int64{}}
	l := NewFixedWindow(fr, "orders", 2, time.Hour)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Allow(ctx, "user:1")
	assert.True(t, ok)

	ok, _ = l.Allow(ctx, "user:1")
	assert.False(t, ok)

	//別ユーザーは別カウント
	ok, _ = l.Allow(ctx, "user:2")
	assert.True(t, ok)
}

func TestFixedWindow_RedisError(t *testing.T) {
	l := NewFixedWindow(&fakeRedis{err: errors.New("conn refused")}, "orders", 2, time.Minute)

	_, err := l.Allow(context.Background(), "user:1")
	require.Error(t, err)
}
