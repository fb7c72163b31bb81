package tcpserver

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// ConnectionLimiter 连接数限流器（基于 channel 信号量）
type ConnectionLimiter struct {
	sem      chan struct{}
	wait     time.Duration
	active   atomic.Int64
	rejected atomic.Int64
}

// NewConnectionLimiter 创建连接限流器
// maxConn: 最大并发连接数；wait: 等待许可的最长时间
func NewConnectionLimiter(maxConn int, wait time.Duration) *ConnectionLimiter {
	if maxConn <= 0 {
		maxConn = 64
	}
	return &ConnectionLimiter{sem: make(chan struct{}, maxConn), wait: wait}
}

// Acquire 获取连接许可，超过 wait 仍无空位时返回错误；wait<=0 时不等待
func (l *ConnectionLimiter) Acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		l.active.Add(1)
		return nil
	default:
	}
	if l.wait <= 0 {
		l.rejected.Add(1)
		return fmt.Errorf("connection limit exceeded: max=%d", cap(l.sem))
	}
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	select {
	case l.sem <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		l.rejected.Add(1)
		return fmt.Errorf("connection limit exceeded: max=%d", cap(l.sem))
	}
}

// Release 释放连接许可
func (l *ConnectionLimiter) Release() {
	select {
	case <-l.sem:
		l.active.Add(-1)
	default:
	}
}

// Current 当前活跃连接数
func (l *ConnectionLimiter) Current() int { return int(l.active.Load()) }

// MaxConnections 最大连接数
func (l *ConnectionLimiter) MaxConnections() int { return cap(l.sem) }

// RejectedCount 被拒绝的连接数（累计）
func (l *ConnectionLimiter) RejectedCount() int64 { return l.rejected.Load() }

// Stats 获取统计信息
func (l *ConnectionLimiter) Stats() LimiterStats {
	return LimiterStats{
		MaxConnections:    cap(l.sem),
		ActiveConnections: l.Current(),
		RejectedTotal:     l.RejectedCount(),
		Utilization:       float64(l.Current()) / float64(cap(l.sem)),
	}
}

// LimiterStats 限流器统计信息
type LimiterStats struct {
	MaxConnections    int     `json:"max_connections"`
	ActiveConnections int     `json:"active_connections"`
	RejectedTotal     int64   `json:"rejected_total"`
	Utilization       float64 `json:"utilization"` // 0.0 - 1.0
}
