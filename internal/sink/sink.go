// Package sink 读数输出：解码器接受的每条读数经 Fanout 分发到各个输出端
package sink

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/taoyao-code/rf-gateway/internal/coremodel"
	"github.com/taoyao-code/rf-gateway/internal/metrics"
)

// Sink 读数输出端
type Sink interface {
	Name() string
	Emit(ctx context.Context, r coremodel.Reading) error
}

// Func 以函数实现 Sink
type Func struct {
	SinkName string
	Fn       func(ctx context.Context, r coremodel.Reading) error
}

func (f Func) Name() string { return f.SinkName }

func (f Func) Emit(ctx context.Context, r coremodel.Reading) error { return f.Fn(ctx, r) }

// Fanout 依次输出到全部 Sink；单个失败只记录，不影响其他输出端
type Fanout struct {
	sinks   []Sink
	metrics *metrics.AppMetrics
	logger  *zap.Logger
}

// NewFanout 创建分发器，nil 的 sink 被忽略
func NewFanout(logger *zap.Logger, m *metrics.AppMetrics, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fanout{metrics: m, logger: logger}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Add 追加输出端（启动前调用）
func (f *Fanout) Add(s Sink) {
	if s != nil {
		f.sinks = append(f.sinks, s)
	}
}

// Names 已注册的输出端
func (f *Fanout) Names() []string {
	out := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		out = append(out, s.Name())
	}
	return out
}

func (f *Fanout) Name() string { return "fanout" }

// Emit 返回全部失败的合并错误
func (f *Fanout) Emit(ctx context.Context, r coremodel.Reading) error {
	var errs []error
	for _, s := range f.sinks {
		err := s.Emit(ctx, r)
		f.metrics.ObserveSink(s.Name(), err)
		if err != nil {
			f.logger.Warn("sink emit failed",
				zap.String("sink", s.Name()),
				zap.String("device", r.Key().String()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
