package oria

import (
	"bytes"

	"go.uber.org/zap"

	"github.com/taoyao-code/rf-gateway/internal/bitbuffer"
	"github.com/taoyao-code/rf-gateway/internal/coremodel"
	"github.com/taoyao-code/rf-gateway/internal/metrics"
	padapter "github.com/taoyao-code/rf-gateway/internal/protocol/adapter"
)

// Handler 接收通过全部校验的读数
type Handler func(coremodel.Reading)

// Adapter 行协议适配器：每行一组 codes 记法的比特行 -> Decoder -> Handler
type Adapter struct {
	decoder   *Decoder
	lines     *LineDecoder
	source    string
	onReading Handler
	metrics   *metrics.AppMetrics
	logger    *zap.Logger
}

// NewAdapter 创建适配器；多个连接可共享同一 Decoder（状态表加锁）
func NewAdapter(dec *Decoder, source string, onReading Handler, m *metrics.AppMetrics, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		decoder:   dec,
		lines:     NewLineDecoder(4096),
		source:    source,
		onReading: onReading,
		metrics:   m,
		logger:    logger,
	}
}

// NewFactory 返回为每个连接创建适配器的工厂
func NewFactory(dec *Decoder, onReading Handler, m *metrics.AppMetrics, logger *zap.Logger) padapter.Factory {
	return func(source string) padapter.Adapter {
		return NewAdapter(dec, source, onReading, m, logger)
	}
}

func (a *Adapter) Name() string { return "oria" }

// Sniff 行协议以 '{' 开头（rtl_433 codes 记法）
func (a *Adapter) Sniff(prefix []byte) bool {
	p := bytes.TrimLeft(prefix, " \t\r\n")
	return len(p) > 0 && p[0] == '{'
}

// ProcessBytes 处理上行字节流
func (a *Adapter) ProcessBytes(p []byte) error {
	before := a.lines.Dropped()
	lines := a.lines.Feed(p)
	for i := before; i < a.lines.Dropped(); i++ {
		a.metrics.ObserveLine("too_long")
	}
	for _, line := range lines {
		_, _ = a.HandleLine(line)
	}
	return nil
}

// HandleLine 解析并解码一行；解析失败返回 error，解码结果总是返回
func (a *Adapter) HandleLine(line string) (Outcome, error) {
	bb, err := bitbuffer.Parse(line)
	if err != nil {
		a.metrics.ObserveLine("parse_error")
		a.logger.Debug("bad codes line", zap.String("source", a.source), zap.Error(err))
		return Outcome{Kind: NoCandidate}, err
	}
	a.metrics.ObserveLine("ok")

	out := a.decoder.Decode(bb)
	a.metrics.ObserveDecode(out.Kind.String(), string(out.Reason))
	if !out.Accepted() {
		return out, nil
	}

	out.Reading.Source = a.source
	r := *out.Reading
	a.metrics.ObserveReading(r.DeviceID, r.Channel, r.TemperatureC, a.decoder.Table().Len())
	a.logger.Debug("reading accepted",
		zap.String("source", a.source),
		zap.Uint8("id", r.DeviceID),
		zap.Uint8("channel", r.Channel),
		zap.Float64("temperature_C", r.TemperatureC))
	if a.onReading != nil {
		a.onReading(r)
	}
	return out, nil
}
