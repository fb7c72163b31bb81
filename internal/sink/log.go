package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/taoyao-code/rf-gateway/internal/coremodel"
)

// LogSink 每条读数一行 info 日志
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink { return &LogSink{logger: logger} }

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Emit(_ context.Context, r coremodel.Reading) error {
	s.logger.Info("reading",
		zap.String("model", r.Model),
		zap.Uint8("id", r.DeviceID),
		zap.Uint8("channel", r.Channel),
		zap.String("temperature_C", r.Temperature.String()),
		zap.Bool("forced", r.Forced),
		zap.String("source", r.Source))
	return nil
}
