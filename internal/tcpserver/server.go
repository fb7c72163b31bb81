package tcpserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/rf-gateway/internal/config"
)

// Server 比特行接入 TCP 服务：每个连接一个读循环，由 Mux 决定协议适配器
type Server struct {
	cfg    cfgpkg.TCPConfig
	logger *zap.Logger

	ln      net.Listener
	wg      sync.WaitGroup
	stopped atomic.Bool

	mu    sync.Mutex
	conns map[uint64]*ConnContext

	nextConnID  uint64
	onConn      func(*ConnContext)
	limiter     *ConnectionLimiter
	rateLimiter *RateLimiter

	// 可选指标回调
	onAccept    func()
	onRecvBytes func(n int)
	onReject    func(reason string)
}

// New 创建 TCP 服务；maxConnections>0 时启用连接数限流，rateLimit.enabled 时启用接入速率限流
func New(cfg cfgpkg.TCPConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		conns:  make(map[uint64]*ConnContext),
	}
	if cfg.MaxConnections > 0 {
		s.limiter = NewConnectionLimiter(cfg.MaxConnections, 100*time.Millisecond)
	}
	if cfg.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	}
	return s
}

// SetConnHandler 安装新连接回调（一般为 Mux.BindToConn）
func (s *Server) SetConnHandler(h func(*ConnContext)) { s.onConn = h }

// SetMetricsCallbacks 设置指标回调
func (s *Server) SetMetricsCallbacks(onAccept func(), onRecvBytes func(int), onReject func(string)) {
	s.onAccept, s.onRecvBytes, s.onReject = onAccept, onRecvBytes, onReject
}

// Start 监听并接受连接（非阻塞，内部 goroutine）
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("tcp server listening", zap.String("addr", ln.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr 实际监听地址（addr 使用 :0 时由系统分配端口）
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if s.stopped.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			// 短暂错误等待后重试
			s.logger.Warn("tcp accept error", zap.Error(err))
			time.Sleep(50 * time.Millisecond)
			continue
		}

		if s.rateLimiter != nil && !s.rateLimiter.Allow() {
			s.reject(c, "rate")
			continue
		}
		if s.limiter != nil {
			if err := s.limiter.Acquire(context.Background()); err != nil {
				s.reject(c, "limit")
				continue
			}
		}
		if s.onAccept != nil {
			s.onAccept()
		}

		cc := newConnContext(s, c)
		s.track(cc)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(cc)
			if s.limiter != nil {
				defer s.limiter.Release()
			}
			if s.onConn != nil {
				s.onConn(cc)
			}
			cc.run()
		}()
	}
}

func (s *Server) reject(c net.Conn, reason string) {
	s.logger.Warn("tcp connection rejected",
		zap.String("remote_addr", c.RemoteAddr().String()),
		zap.String("reason", reason))
	if s.onReject != nil {
		s.onReject(reason)
	}
	_ = c.Close()
}

func (s *Server) track(cc *ConnContext) {
	s.mu.Lock()
	s.conns[cc.id] = cc
	s.mu.Unlock()
}

func (s *Server) untrack(cc *ConnContext) {
	s.mu.Lock()
	delete(s.conns, cc.id)
	s.mu.Unlock()
}

// ActiveConnections 当前连接数
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// MaxConnections 连接上限，未启用限流时为 0
func (s *Server) MaxConnections() int {
	if s.limiter == nil {
		return 0
	}
	return s.limiter.MaxConnections()
}

// GetLimiterStats 连接限流统计，未启用时返回 nil
func (s *Server) GetLimiterStats() *LimiterStats {
	if s.limiter == nil {
		return nil
	}
	st := s.limiter.Stats()
	return &st
}

// GetRateLimiterStats 速率限流统计，未启用时返回 nil
func (s *Server) GetRateLimiterStats() *RateLimiterStats {
	if s.rateLimiter == nil {
		return nil
	}
	st := s.rateLimiter.Stats()
	return &st
}

// Shutdown 关闭监听与全部连接，并等待读循环退出
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.mu.Lock()
	for _, cc := range s.conns {
		_ = cc.Close()
	}
	s.mu.Unlock()

	ch := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(ch)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
