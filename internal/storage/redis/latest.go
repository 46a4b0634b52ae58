package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/power-gateway/internal/ingest"
)

const latestKeyFmt = "latest:%s" // Hash，field=命令key，value=样本JSON

// LatestCache 设备最新采样缓存：每台设备一个Hash，
// 字段按命令覆盖写入，整键带TTL，设备失联后自然过期。
type LatestCache struct {
	client *Client
	ttl    time.Duration
}

func NewLatestCache(client *Client, ttl time.Duration) *LatestCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &LatestCache{client: client, ttl: ttl}
}

func (c *LatestCache) Name() string { return "redis-latest" }

// Write 实现 ingest.Sink
func (c *LatestCache) Write(ctx context.Context, s ingest.Sample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}
	key := fmt.Sprintf(latestKeyFmt, s.Device)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, s.Command, data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache latest sample: %w", err)
	}
	return nil
}

// Latest 读取一台设备的全部最新样本，按命令key汇总。
// 设备无数据时返回空映射而不是错误。
func (c *LatestCache) Latest(ctx context.Context, device string) (map[string]ingest.Sample, error) {
	key := fmt.Sprintf(latestKeyFmt, device)
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read latest samples: %w", err)
	}
	out := make(map[string]ingest.Sample, len(fields))
	for cmd, raw := range fields {
		var s ingest.Sample
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("decode cached sample %s/%s: %w", device, cmd, err)
		}
		out[cmd] = s
	}
	return out, nil
}
