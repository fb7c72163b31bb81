package adapter

// Adapter 统一协议适配器接口：用于网关复用器绑定
// 要求：
// - Sniff 用于首帧初判
// - ProcessBytes 处理来自连接的原始字节流（内部负责半包/粘包）
type Adapter interface {
	Name() string
	Sniff(prefix []byte) bool
	ProcessBytes(p []byte) error
}

// Factory 为单个连接创建独立的适配器实例（各连接的行缓冲互不干扰）
// source 为数据来源标识，一般是远端地址
type Factory func(source string) Adapter
