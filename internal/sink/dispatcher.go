package sink

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/rf-gateway/internal/coremodel"
	"github.com/taoyao-code/rf-gateway/internal/metrics"
)

// Dispatcher 异步分发：解码路径只做非阻塞入队，I/O 在 worker 中完成。
// 队列满时丢弃新读数并计数；单 worker 时保持接收顺序。
type Dispatcher struct {
	out     Sink
	queue   chan coremodel.Reading
	workers int
	timeout time.Duration
	metrics *metrics.AppMetrics
	logger  *zap.Logger

	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

// NewDispatcher 创建分发器；size/workers<=0 时取 1024/1
func NewDispatcher(out Sink, size, workers int, m *metrics.AppMetrics, logger *zap.Logger) *Dispatcher {
	if size <= 0 {
		size = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		out:     out,
		queue:   make(chan coremodel.Reading, size),
		workers: workers,
		timeout: 10 * time.Second,
		metrics: m,
		logger:  logger,
	}
}

// Start 启动 worker
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Submit 非阻塞入队，返回是否成功
func (d *Dispatcher) Submit(r coremodel.Reading) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- r:
		return true
	default:
		if d.metrics != nil {
			d.metrics.DispatchDropped.Inc()
		}
		d.logger.Warn("dispatch queue full, reading dropped", zap.String("device", r.Key().String()))
		return false
	}
}

// Pending 队列中待处理的读数
func (d *Dispatcher) Pending() int { return len(d.queue) }

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for r := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		_ = d.out.Emit(ctx, r)
		cancel()
	}
}

// Close 停止接收并等待队列排空，ctx 到期时返回 ctx.Err()
func (d *Dispatcher) Close(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
