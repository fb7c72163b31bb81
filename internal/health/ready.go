package health

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Readiness 启动阶段就绪标记（数据库迁移、TCP 监听等）
// 作为 Checker 注册到聚合器，任一已登记组件未就绪即 Unhealthy
type Readiness struct {
	mu    sync.RWMutex
	ready map[string]bool
}

func New(components ...string) *Readiness {
	r := &Readiness{ready: make(map[string]bool, len(components))}
	for _, c := range components {
		r.ready[c] = false
	}
	return r
}

// Set 标记组件就绪状态，未登记的组件会被自动登记
func (r *Readiness) Set(component string, v bool) {
	r.mu.Lock()
	r.ready[component] = v
	r.mu.Unlock()
}

// Ready 总体就绪：各组件均为 true
func (r *Readiness) Ready() bool {
	return len(r.pending()) == 0
}

func (r *Readiness) pending() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, ok := range r.ready {
		if !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Readiness) Name() string { return "startup" }

func (r *Readiness) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if p := r.pending(); len(p) > 0 {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "waiting for " + strings.Join(p, ", "),
			Latency: time.Since(start),
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "ok", Latency: time.Since(start)}
}
