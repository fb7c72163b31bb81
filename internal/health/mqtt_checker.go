package health

import (
	"context"
	"time"
)

// Connector MQTT 连接状态来源（mqtt.Client 满足该接口）
type Connector interface {
	IsConnected() bool
}

// MQTTChecker MQTT 连接检查器
// 断线时读数仍会进入其它出口，因此只报告降级
type MQTTChecker struct {
	client Connector
	broker string
}

// NewMQTTChecker 创建MQTT检查器
func NewMQTTChecker(client Connector, broker string) *MQTTChecker {
	return &MQTTChecker{client: client, broker: broker}
}

func (c *MQTTChecker) Name() string {
	return "mqtt"
}

func (c *MQTTChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if !c.client.IsConnected() {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "broker disconnected",
			Details: map[string]interface{}{"broker": c.broker},
			Latency: time.Since(start),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]interface{}{"broker": c.broker},
		Latency: time.Since(start),
	}
}
