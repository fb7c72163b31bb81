package health

import (
	"context"
	"testing"
	"time"
)

// mockChecker 固定状态的检查器
type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status, Message: "mock", Latency: time.Millisecond}
}

func TestAggregator_OverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
		ready    bool
	}{
		{"无检查器", nil, StatusHealthy, true},
		{"全部健康", []Status{StatusHealthy, StatusHealthy}, StatusHealthy, true},
		{"出口降级", []Status{StatusHealthy, StatusDegraded}, StatusDegraded, true},
		{"接入不健康", []Status{StatusDegraded, StatusUnhealthy}, StatusUnhealthy, false},
		{"未知状态按不健康", []Status{StatusHealthy, Status("broken")}, StatusUnhealthy, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			for i, s := range tt.statuses {
				agg.AddChecker(&mockChecker{name: string(rune('a' + i)), status: s})
			}
			if got := agg.OverallStatus(context.Background()); got != tt.want {
				t.Errorf("OverallStatus = %v, want %v", got, tt.want)
			}
			if got := agg.Ready(context.Background()); got != tt.ready {
				t.Errorf("Ready = %v, want %v", got, tt.ready)
			}
		})
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator(
		&mockChecker{"decoder", StatusHealthy},
		&mockChecker{"tcp", StatusHealthy},
	)
	agg.AddChecker(&mockChecker{"mqtt", StatusDegraded})

	results := agg.CheckAll(context.Background())
	if len(results) != 3 {
		t.Fatalf("want 3 results, got %d", len(results))
	}
	if results["mqtt"].Status != StatusDegraded {
		t.Errorf("mqtt status = %v", results["mqtt"].Status)
	}
	if names := agg.Names(); len(names) != 3 || names[2] != "mqtt" {
		t.Errorf("Names = %v", names)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(CheckerFunc{
		ComponentName: "slow",
		Fn: func(ctx context.Context) CheckResult {
			<-ctx.Done()
			return CheckResult{Status: StatusUnhealthy, Message: ctx.Err().Error()}
		},
	})
	agg.SetTimeout(20 * time.Millisecond)

	start := time.Now()
	res := agg.CheckAll(context.Background())["slow"]
	if time.Since(start) > time.Second {
		t.Fatal("check was not bounded by timeout")
	}
	if res.Status != StatusUnhealthy {
		t.Errorf("status = %v", res.Status)
	}
	if res.Latency <= 0 {
		t.Error("latency should be filled in")
	}
}

func TestAggregator_PanicIsUnhealthy(t *testing.T) {
	agg := NewAggregator(CheckerFunc{
		ComponentName: "boom",
		Fn:            func(context.Context) CheckResult { panic("nil pool") },
	})
	res := agg.CheckAll(context.Background())["boom"]
	if res.Status != StatusUnhealthy {
		t.Fatalf("status = %v", res.Status)
	}
	if res.Message != "checker panic: nil pool" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestAggregator_Report(t *testing.T) {
	agg := NewAggregator(&mockChecker{"db", StatusUnhealthy}, &mockChecker{"tcp", StatusHealthy})
	report := agg.Report(context.Background())
	if report.Status != StatusUnhealthy {
		t.Errorf("status = %v", report.Status)
	}
	if got := failing(report); len(got) != 1 || got[0] != "db" {
		t.Errorf("failing = %v", got)
	}
	if report.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
	if !agg.Alive() {
		t.Error("Alive should be true")
	}
}
