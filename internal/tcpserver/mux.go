package tcpserver

import (
	"go.uber.org/zap"

	padapter "github.com/taoyao-code/rf-gateway/internal/protocol/adapter"
)

// sniffLen 协议初判使用的前缀长度
const sniffLen = 8

// Mux 多协议复用器：首包初判 -> 为连接创建独立适配器 -> 直通处理
type Mux struct {
	factories []padapter.Factory
	logger    *zap.Logger
}

// NewMux 创建复用器，factories 按顺序尝试
func NewMux(logger *zap.Logger, factories ...padapter.Factory) *Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mux{factories: factories, logger: logger}
}

// BindToConn 为连接安装 onRead，根据首包前缀判断协议后固定处理路径
func (m *Mux) BindToConn(cc *ConnContext) {
	source := cc.RemoteAddr()
	candidates := make([]padapter.Adapter, 0, len(m.factories))
	for _, f := range m.factories {
		candidates = append(candidates, f(source))
	}

	var bound padapter.Adapter
	var pending []byte
	cc.SetOnRead(func(p []byte) {
		if bound != nil {
			m.process(cc, bound, p)
			return
		}
		pending = append(pending, p...)
		pref := pending
		if len(pref) > sniffLen {
			pref = pref[:sniffLen]
		}
		for _, a := range candidates {
			if a.Sniff(pref) {
				bound = a
				cc.SetProtocol(a.Name())
				m.logger.Info("protocol identified",
					zap.String("remote_addr", source),
					zap.String("protocol", a.Name()))
				data := pending
				pending = nil
				m.process(cc, bound, data)
				return
			}
		}
		// 前缀已足够长仍未识别：断开
		if len(pending) >= sniffLen {
			m.logger.Warn("unknown protocol, closing connection",
				zap.String("remote_addr", source),
				zap.Int("data_len", len(pending)))
			pending = nil
			if cc.c != nil {
				_ = cc.Close()
			}
		}
	})
}

func (m *Mux) process(cc *ConnContext, a padapter.Adapter, p []byte) {
	if err := a.ProcessBytes(p); err != nil {
		m.logger.Warn("adapter process error",
			zap.String("remote_addr", cc.RemoteAddr()),
			zap.String("protocol", a.Name()),
			zap.Error(err))
	}
}

func logConn(cc *ConnContext) []zap.Field {
	return []zap.Field{
		zap.Uint64("conn_id", cc.id),
		zap.String("remote_addr", cc.RemoteAddr()),
		zap.String("protocol", cc.Protocol()),
	}
}
