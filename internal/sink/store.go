package sink

import (
	"context"
	"errors"

	"github.com/taoyao-code/rf-gateway/internal/coremodel"
)

// ReadingStore 读数日志（storage/pg.Repository）
type ReadingStore interface {
	InsertReading(ctx context.Context, r coremodel.Reading) error
}

// DeviceRegistry 已见设备登记（storage/gormrepo.Repository）
type DeviceRegistry interface {
	TouchDevice(ctx context.Context, r coremodel.Reading) error
}

// LatestCache 最新读数缓存（storage/redis.ReadingCache）
type LatestCache interface {
	SetLatest(ctx context.Context, r coremodel.Reading) error
	Publish(ctx context.Context, r coremodel.Reading) error
}

// PGSink 追加读数日志并刷新设备登记；registry 可为 nil
type PGSink struct {
	store    ReadingStore
	registry DeviceRegistry
}

func NewPGSink(store ReadingStore, registry DeviceRegistry) *PGSink {
	return &PGSink{store: store, registry: registry}
}

func (s *PGSink) Name() string { return "postgres" }

func (s *PGSink) Emit(ctx context.Context, r coremodel.Reading) error {
	if err := s.store.InsertReading(ctx, r); err != nil {
		return err
	}
	if s.registry == nil {
		return nil
	}
	return s.registry.TouchDevice(ctx, r)
}

// RedisSink 更新最新读数并发布
type RedisSink struct {
	cache LatestCache
}

func NewRedisSink(cache LatestCache) *RedisSink { return &RedisSink{cache: cache} }

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Emit(ctx context.Context, r coremodel.Reading) error {
	return errors.Join(s.cache.SetLatest(ctx, r), s.cache.Publish(ctx, r))
}
