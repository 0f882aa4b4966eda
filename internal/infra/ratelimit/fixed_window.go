package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient は Eval だけ使う
type RedisClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// 窓の最初のリクエストで期限を付ける
const fixedWindowScript = `
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`

// 固定窓のレート制限（キーごとに window 内 limit 回まで）
type FixedWindow struct {
	client RedisClient
	prefix string
	limit  int
	window time.Duration
}

func NewFixedWindow(client RedisClient, prefix string, limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow は今回のリクエストを数えて、上限内かどうかを返す
func (f *FixedWindow) Allow(ctx context.Context, key string) (bool, error) {
	slot := time.Now().UnixMilli() / f.window.Milliseconds()
	k := fmt.Sprintf("%s:%s:%d", f.prefix, key, slot)

	n, err := f.client.Eval(ctx, fixedWindowScript, []string{k}, f.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit eval: %w", err)
	}
	return n <= int64(f.limit), nil
}
