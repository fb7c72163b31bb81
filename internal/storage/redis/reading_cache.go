package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/rf-gateway/internal/coremodel"
)

// ErrNoReading 设备尚无最新读数
var ErrNoReading = errors.New("no latest reading")

// ReadingCache 最新读数缓存 + 发布订阅
//
//	<prefix>latest            HASH  field=<id>/<channel> value=reading JSON
//	<prefix>latest:<id>/<ch>  STRING 带 TTL 的存活标记
//	<channel>                 PUBSUB 每条读数一条消息
type ReadingCache struct {
	rdb     redis.UniversalClient
	prefix  string
	channel string
	ttl     time.Duration
}

// NewReadingCache 创建读数缓存
func NewReadingCache(rdb redis.UniversalClient, prefix, channel string, ttl time.Duration) *ReadingCache {
	if channel == "" {
		channel = prefix + "readings"
	}
	return &ReadingCache{rdb: rdb, prefix: prefix, channel: channel, ttl: ttl}
}

func (c *ReadingCache) hashKey() string { return c.prefix + "latest" }

func (c *ReadingCache) aliveKey(k coremodel.DeviceKey) string {
	return fmt.Sprintf("%slatest:%s", c.prefix, k)
}

// Channel 发布频道
func (c *ReadingCache) Channel() string { return c.channel }

// SetLatest 写入最新读数（事务流水线）
func (c *ReadingCache) SetLatest(ctx context.Context, r coremodel.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, c.hashKey(), r.Key().String(), payload)
		if c.ttl > 0 {
			p.Set(ctx, c.aliveKey(r.Key()), r.ReceivedAt.Unix(), c.ttl)
		}
		return nil
	})
	return err
}

// Publish 向订阅者广播读数
func (c *ReadingCache) Publish(ctx context.Context, r coremodel.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, c.channel, payload).Err()
}

// GetLatest 查询单个设备通道的最新读数
func (c *ReadingCache) GetLatest(ctx context.Context, k coremodel.DeviceKey) (*coremodel.Reading, error) {
	raw, err := c.rdb.HGet(ctx, c.hashKey(), k.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoReading
	}
	if err != nil {
		return nil, err
	}
	return decodeReading(raw)
}

// ListLatest 返回全部设备通道的最新读数，按 id/channel 排序
func (c *ReadingCache) ListLatest(ctx context.Context) ([]coremodel.Reading, error) {
	all, err := c.rdb.HGetAll(ctx, c.hashKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]coremodel.Reading, 0, len(all))
	for _, v := range all {
		r, err := decodeReading([]byte(v))
		if err != nil {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeviceID != out[j].DeviceID {
			return out[i].DeviceID < out[j].DeviceID
		}
		return out[i].Channel < out[j].Channel
	})
	return out, nil
}

// decodeReading 反序列化时按摄氏度恢复十分位温度
func decodeReading(raw []byte) (*coremodel.Reading, error) {
	var r coremodel.Reading
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	r.Temperature = coremodel.FromCelsius(r.TemperatureC)
	return &r, nil
}
