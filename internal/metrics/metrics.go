package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	TCPAccepted      prometheus.Counter
	TCPBytesReceived prometheus.Counter
	TCPRejected      *prometheus.CounterVec // labels: reason=limit|rate
	IngestLines      *prometheus.CounterVec // labels: result=ok|parse_error|too_long
	DecodeTotal      *prometheus.CounterVec // labels: result, reason
	TrackedDevices   prometheus.Gauge       // 设备状态表已跟踪数
	LastTemperature  *prometheus.GaugeVec   // labels: id, channel
	SinkEmitTotal    *prometheus.CounterVec // labels: sink, result=ok|error
	DispatchDropped  prometheus.Counter     // 分发队列满时丢弃的读数
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		TCPAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_accept_total",
			Help: "Total accepted TCP feeder connections.",
		}),
		TCPBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_bytes_received_total",
			Help: "Total bytes received over TCP.",
		}),
		TCPRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tcp_rejected_total",
			Help: "TCP connections rejected by limiter.",
		}, []string{"reason"}),
		IngestLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_lines_total",
			Help: "Bit row lines received from feeders.",
		}, []string{"result"}),
		DecodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oria_decode_total",
			Help: "Oria WA150KM decode outcomes.",
		}, []string{"result", "reason"}),
		TrackedDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oria_tracked_devices",
			Help: "Devices currently tracked by the plausibility filter.",
		}),
		LastTemperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oria_last_temperature_celsius",
			Help: "Last accepted temperature per device and channel.",
		}, []string{"id", "channel"}),
		SinkEmitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sink_emit_total",
			Help: "Reading deliveries per sink.",
		}, []string{"sink", "result"}),
		DispatchDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sink_dispatch_dropped_total",
			Help: "Readings dropped because the dispatch queue was full.",
		}),
	}
	reg.MustRegister(m.TCPAccepted, m.TCPBytesReceived, m.TCPRejected, m.IngestLines,
		m.DecodeTotal, m.TrackedDevices, m.LastTemperature, m.SinkEmitTotal, m.DispatchDropped)
	return m
}

// ObserveDecode 记录一次解码结果（m 为 nil 时忽略）
func (m *AppMetrics) ObserveDecode(result, reason string) {
	if m == nil {
		return
	}
	m.DecodeTotal.WithLabelValues(result, reason).Inc()
}

// ObserveReading 记录最新温度与跟踪设备数
func (m *AppMetrics) ObserveReading(id, channel uint8, celsius float64, tracked int) {
	if m == nil {
		return
	}
	m.LastTemperature.WithLabelValues(strconv.Itoa(int(id)), strconv.Itoa(int(channel))).Set(celsius)
	m.TrackedDevices.Set(float64(tracked))
}

// ObserveLine 记录一行输入的处理结果
func (m *AppMetrics) ObserveLine(result string) {
	if m == nil {
		return
	}
	m.IngestLines.WithLabelValues(result).Inc()
}

// ObserveSink 记录一次 sink 投递结果
func (m *AppMetrics) ObserveSink(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SinkEmitTotal.WithLabelValues(sink, result).Inc()
}
