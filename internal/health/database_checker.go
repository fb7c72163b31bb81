package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseChecker 数据库健康检查器：连接池占用 + 读数表是否已迁移
type DatabaseChecker struct {
	pool *pgxpool.Pool
}

// NewDatabaseChecker 创建数据库健康检查器
func NewDatabaseChecker(pool *pgxpool.Pool) *DatabaseChecker {
	return &DatabaseChecker{pool: pool}
}

func (c *DatabaseChecker) Name() string {
	return "database"
}

// Check 执行健康检查
func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	if err := c.pool.Ping(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
			Latency: time.Since(start),
		}
	}

	var migrated bool
	if err := c.pool.QueryRow(ctx, `SELECT to_regclass('public.sensor_readings') IS NOT NULL`).Scan(&migrated); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("schema query failed: %v", err),
			Latency: time.Since(start),
		}
	}

	stats := c.pool.Stat()
	poolStatus, message, utilization := poolUtilization(stats.AcquiredConns(), stats.MaxConns())
	if !migrated {
		poolStatus = StatusUnhealthy
		message = "sensor_readings table missing"
	}

	return CheckResult{
		Status:  poolStatus,
		Message: message,
		Details: map[string]interface{}{
			"total_conns":    stats.TotalConns(),
			"idle_conns":     stats.IdleConns(),
			"acquired_conns": stats.AcquiredConns(),
			"max_conns":      stats.MaxConns(),
			"utilization":    fmt.Sprintf("%.1f%%", utilization*100),
			"migrated":       migrated,
		},
		Latency: time.Since(start),
	}
}

// poolUtilization 超过 90% 降级，耗尽即不健康
func poolUtilization(acquired, max int32) (Status, string, float64) {
	if max <= 0 {
		return StatusHealthy, "ok", 0
	}
	u := float64(acquired) / float64(max)
	switch {
	case u >= 1.0:
		return StatusUnhealthy, "connection pool exhausted", u
	case u > 0.9:
		return StatusDegraded, "connection pool near limit", u
	}
	return StatusHealthy, "ok", u
}
