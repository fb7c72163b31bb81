package tcpserver

import (
	"math"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimiter 接入速率限流（令牌桶），防止上游桥接进程异常时频繁重连
type RateLimiter struct {
	limiter  *rate.Limiter
	perSec   float64
	burst    int
	allowed  atomic.Int64
	rejected atomic.Int64
}

// NewRateLimiter perSec<=0 时默认每秒 10 个，burst<=0 时取 2 倍速率
func NewRateLimiter(perSec float64, burst int) *RateLimiter {
	if perSec <= 0 {
		perSec = 10
	}
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(perSec*2)))
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		perSec:  perSec,
		burst:   burst,
	}
}

// Allow 非阻塞检查
func (l *RateLimiter) Allow() bool {
	if l.limiter.Allow() {
		l.allowed.Add(1)
		return true
	}
	l.rejected.Add(1)
	return false
}

// Stats 获取统计信息
func (l *RateLimiter) Stats() RateLimiterStats {
	return RateLimiterStats{
		RatePerSecond: l.perSec,
		Burst:         l.burst,
		AllowedTotal:  l.allowed.Load(),
		RejectedTotal: l.rejected.Load(),
	}
}

// RateLimiterStats 速率限流器统计信息
type RateLimiterStats struct {
	RatePerSecond float64 `json:"rate_per_second"`
	Burst         int     `json:"burst"`
	AllowedTotal  int64   `json:"allowed_total"`
	RejectedTotal int64   `json:"rejected_total"`
}
