package health

import (
	"context"
	"fmt"
	"time"
)

// DeviceTableStats 设备状态表占用，*oria.DeviceTable 实现该接口
type DeviceTableStats interface {
	Len() int
	Cap() int
}

// DecoderChecker 解码器状态表检查器
// 状态表满后新设备的读数会被全部拒绝，此时报告降级
type DecoderChecker struct {
	table DeviceTableStats
}

// NewDecoderChecker 创建解码器检查器
func NewDecoderChecker(table DeviceTableStats) *DecoderChecker {
	return &DecoderChecker{table: table}
}

func (c *DecoderChecker) Name() string {
	return "decoder"
}

func (c *DecoderChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	tracked, capacity := c.table.Len(), c.table.Cap()

	status := StatusHealthy
	message := "ok"
	if capacity > 0 && tracked >= capacity {
		status = StatusDegraded
		message = "device table full, new devices rejected"
	}

	utilization := 0.0
	if capacity > 0 {
		utilization = float64(tracked) / float64(capacity)
	}
	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"tracked_devices": tracked,
			"capacity":        capacity,
			"utilization":     fmt.Sprintf("%.1f%%", utilization*100),
		},
		Latency: time.Since(start),
	}
}
