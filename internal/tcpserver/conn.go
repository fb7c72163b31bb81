package tcpserver

import (
	"errors"
	"net"
	"sync/atomic"
	"time"
)

// ConnContext 单个接入连接：读循环 + 回调
type ConnContext struct {
	s      *Server
	c      net.Conn
	id     uint64
	closed atomic.Bool
	onRead func([]byte)
	proto  atomic.Value // string: Mux 判定后的协议名
	doneC  chan struct{}
}

func newConnContext(s *Server, c net.Conn) *ConnContext {
	cc := &ConnContext{
		s:     s,
		c:     c,
		id:    atomic.AddUint64(&s.nextConnID, 1),
		doneC: make(chan struct{}),
	}
	cc.proto.Store("")
	return cc
}

// ID 返回连接ID（单进程唯一递增）
func (cc *ConnContext) ID() uint64 { return cc.id }

// RemoteAddr 返回远端地址
func (cc *ConnContext) RemoteAddr() string {
	if cc.c == nil {
		return ""
	}
	return cc.c.RemoteAddr().String()
}

// SetOnRead 安装读取回调（收到上行原始字节时触发）
func (cc *ConnContext) SetOnRead(h func([]byte)) { cc.onRead = h }

// SetProtocol 设置连接所使用的协议标记
func (cc *ConnContext) SetProtocol(p string) { cc.proto.Store(p) }

// Protocol 返回连接的协议标记
func (cc *ConnContext) Protocol() string {
	s, _ := cc.proto.Load().(string)
	return s
}

// Close 关闭底层连接，读循环随之退出
func (cc *ConnContext) Close() error {
	if !cc.closed.CompareAndSwap(false, true) {
		return nil
	}
	return cc.c.Close()
}

// Done 返回连接关闭通知通道
func (cc *ConnContext) Done() <-chan struct{} { return cc.doneC }

// run 读循环，阻塞直至对端关闭、出错或空闲超时
func (cc *ConnContext) run() {
	defer close(cc.doneC)
	defer cc.Close()

	timeout := cc.s.cfg.ReadTimeout
	buf := make([]byte, 4096)
	for {
		if timeout > 0 {
			_ = cc.c.SetReadDeadline(time.Now().Add(timeout))
		}
		n, err := cc.c.Read(buf)
		if n > 0 {
			if cc.s.onRecvBytes != nil {
				cc.s.onRecvBytes(n)
			}
			if cc.onRead != nil {
				cc.onRead(buf[:n])
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				cc.s.logger.Info("tcp connection idle timeout", logConn(cc)...)
			}
			return
		}
	}
}
