package tcpserver

import (
	"context"
	"testing"
	"time"
)

func TestConnectionLimiter(t *testing.T) {
	t.Run("基本限流功能", func(t *testing.T) {
		limiter := NewConnectionLimiter(3, 50*time.Millisecond)
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			if err := limiter.Acquire(ctx); err != nil {
				t.Fatalf("第%d次获取失败: %v", i+1, err)
			}
		}
		if err := limiter.Acquire(ctx); err == nil {
			t.Fatal("第4次获取应该失败")
		}
		if limiter.RejectedCount() != 1 {
			t.Fatalf("rejected=%d", limiter.RejectedCount())
		}

		limiter.Release()
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("释放后获取失败: %v", err)
		}
	})

	t.Run("统计功能", func(t *testing.T) {
		limiter := NewConnectionLimiter(10, 0)
		for i := 0; i < 5; i++ {
			_ = limiter.Acquire(context.Background())
		}
		stats := limiter.Stats()
		if stats.ActiveConnections != 5 || stats.MaxConnections != 10 {
			t.Errorf("stats=%+v", stats)
		}
		if stats.Utilization != 0.5 {
			t.Errorf("期望利用率0.5，实际: %.2f", stats.Utilization)
		}
	})

	t.Run("多余释放无副作用", func(t *testing.T) {
		limiter := NewConnectionLimiter(1, 0)
		limiter.Release()
		if limiter.Current() != 0 {
			t.Fatalf("current=%d", limiter.Current())
		}
	})
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(10, 20)
	for i := 0; i < 20; i++ {
		if !limiter.Allow() {
			t.Fatalf("突发第%d个请求被拒绝", i+1)
		}
	}
	if limiter.Allow() {
		t.Fatal("第21个请求应该被拒绝")
	}
	// 每 100ms 补充 1 个 token
	time.Sleep(150 * time.Millisecond)
	if !limiter.Allow() {
		t.Fatal("等待后的请求应该成功")
	}
	st := limiter.Stats()
	if st.AllowedTotal != 21 || st.RejectedTotal != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	st := NewRateLimiter(0, 0).Stats()
	if st.RatePerSecond != 10 || st.Burst != 20 {
		t.Fatalf("stats=%+v", st)
	}
}
