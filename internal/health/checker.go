package health

import (
	"context"
	"time"
)

// Status 组件健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"  // 读数仍可解码，但部分出口不可用
	StatusUnhealthy Status = "unhealthy" // 无法接收或解码比特行
)

// severity 数值越大越严重，未知状态按不健康处理
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// CheckResult 单个组件的检查结果
type CheckResult struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency"`
}

// Checker 组件检查器
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// CheckerFunc 以函数实现 Checker
type CheckerFunc struct {
	ComponentName string
	Fn            func(ctx context.Context) CheckResult
}

func (f CheckerFunc) Name() string { return f.ComponentName }

func (f CheckerFunc) Check(ctx context.Context) CheckResult { return f.Fn(ctx) }
