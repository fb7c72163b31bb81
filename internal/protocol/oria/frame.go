// Package oria 实现 Oria WA150KM 冰箱/冷柜温度计射频帧的解码：
// 定位候选行、线路解码、多级合理性校验、BCD 温度提取，以及基于设备历史的突变抑制。
package oria

import "github.com/taoyao-code/rf-gateway/internal/coremodel"

// Frame 线路解码后的 14 字节规范帧
// 布局：
// FF FF FF MM ?? CC DD TT II SS ?? ?? ?? BB
//   - FF 前导 3 字节 0xFF
//   - MM/?? 报文类型（不校验）
//   - CC 高半字节 = 通道-1
//   - DD 设备ID
//   - TT 高半字节 = 温度小数位（BCD）
//   - II 温度十位/个位（BCD）
//   - SS 0x08 位 = 负数
//   - BB 固定 0x65
type Frame [FrameLen]byte

const (
	// Model 输出记录中的型号标识
	Model = "Oria-WA150KM"
	// Name 设备族描述
	Name = "Oria WA150KM freezer and fridge thermometer"

	// BitLen 原始调制行的固定比特数
	BitLen = 227
	// FrameLen 解码后帧字节数
	FrameLen = 14

	warmupLen  = 3
	warmupRaw  = 0xAA // 3 字节 0xFF 前导在线路编码下的原始形态
	trailerRaw = 0x69 // 固定尾字节在线路编码下的原始形态

	trailerByte  = 0x65
	negativeFlag = 0x08

	minTemperature coremodel.Tenths = -400
	maxTemperature coremodel.Tenths = 600

	minChannel = 1
	maxChannel = 16

	// ForcedMsgType 按 TX 键强制发送时的报文类型
	ForcedMsgType uint16 = 0xfa21

	// DefaultMaxDevices 设备状态表默认容量
	DefaultMaxDevices = 32
	// DefaultMaxDelta 相邻两次读数允许的最大温差（12.0°C）
	DefaultMaxDelta coremodel.Tenths = 120
)

// OutputFields 表格输出的字段顺序，下游消费方依赖此顺序
var OutputFields = []string{
	"model",
	"id",
	"channel",
	"temperature_C",
}

// FieldNames 返回 OutputFields 的副本
func FieldNames() []string {
	out := make([]string, len(OutputFields))
	copy(out, OutputFields)
	return out
}
