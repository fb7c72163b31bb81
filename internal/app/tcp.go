package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/rf-gateway/internal/config"
	"github.com/taoyao-code/rf-gateway/internal/metrics"
	"github.com/taoyao-code/rf-gateway/internal/protocol/oria"
	"github.com/taoyao-code/rf-gateway/internal/tcpserver"
)

// NewTCPServer 根据配置创建比特行接入服务，并挂上指标回调与 oria 适配器
func NewTCPServer(cfg cfgpkg.TCPConfig, dec *oria.Decoder, onReading oria.Handler, appm *metrics.AppMetrics, logger *zap.Logger) *tcpserver.Server {
	srv := tcpserver.New(cfg, logger.Named("tcp"))
	srv.SetMetricsCallbacks(
		func() { appm.TCPAccepted.Inc() },
		func(n int) { appm.TCPBytesReceived.Add(float64(n)) },
		func(reason string) { appm.TCPRejected.WithLabelValues(reason).Inc() },
	)
	mux := tcpserver.NewMux(logger.Named("mux"),
		oria.NewFactory(dec, onReading, appm, logger.Named("oria")))
	srv.SetConnHandler(mux.BindToConn)
	return srv
}

// NewDecoder 按配置创建在线解码器
func NewDecoder(cfg cfgpkg.DecoderConfig, logger *zap.Logger) *oria.Decoder {
	return oria.NewDecoder(logger.Named("oria"), DecoderOptions(cfg))
}

// DecoderOptions 配置到解码参数
func DecoderOptions(cfg cfgpkg.DecoderConfig) oria.Options {
	return oria.Options{MaxDevices: cfg.MaxDevices, MaxTempDelta: cfg.MaxTempDelta}
}
