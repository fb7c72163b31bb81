package health

import (
	"context"
	"fmt"
	"time"

	"github.com/taoyao-code/rf-gateway/internal/tcpserver"
)

// TCPStats TCP 接入统计来源，*tcpserver.Server 实现该接口
type TCPStats interface {
	ActiveConnections() int
	MaxConnections() int
	GetLimiterStats() *tcpserver.LimiterStats
	GetRateLimiterStats() *tcpserver.RateLimiterStats
}

// TCPChecker 比特行接入服务健康检查器
type TCPChecker struct {
	server TCPStats
}

// NewTCPChecker 创建TCP健康检查器
func NewTCPChecker(server TCPStats) *TCPChecker {
	return &TCPChecker{server: server}
}

func (c *TCPChecker) Name() string {
	return "tcp"
}

// Check 按连接占用率判断状态
func (c *TCPChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	activeConns := c.server.ActiveConnections()
	maxConns := c.server.MaxConnections()

	details := map[string]interface{}{
		"active_connections": activeConns,
	}
	if rl := c.server.GetRateLimiterStats(); rl != nil {
		details["rate_allowed_total"] = rl.AllowedTotal
		details["rate_rejected_total"] = rl.RejectedTotal
	}

	if maxConns == 0 {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "no limiting enabled",
			Details: details,
			Latency: time.Since(start),
		}
	}

	utilization := float64(activeConns) / float64(maxConns)

	status := StatusHealthy
	message := "ok"

	if utilization > 0.8 {
		status = StatusDegraded
		message = "high connection usage"
	}

	if utilization > 0.95 {
		status = StatusUnhealthy
		message = "connection limit near exhausted"
	}

	details["max_connections"] = maxConns
	details["utilization"] = fmt.Sprintf("%.1f%%", utilization*100)
	if limiterStats := c.server.GetLimiterStats(); limiterStats != nil {
		details["rejected_total"] = limiterStats.RejectedTotal
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: details,
		Latency: time.Since(start),
	}
}
