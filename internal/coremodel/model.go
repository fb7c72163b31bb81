package coremodel

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DeviceKey 设备状态键：同一 device id 的不同通道相互独立
type DeviceKey struct {
	DeviceID uint8 `json:"id"`
	Channel  uint8 `json:"channel"`
}

func (k DeviceKey) String() string { return fmt.Sprintf("%d/%d", k.DeviceID, k.Channel) }

// Tenths 十分之一摄氏度，协议精度即一位小数
type Tenths int32

// FromCelsius 四舍五入到一位小数
func FromCelsius(c float64) Tenths { return Tenths(math.Round(c * 10)) }

// Celsius 转换为摄氏度
func (t Tenths) Celsius() float64 { return float64(t) / 10 }

// String 固定输出一位小数，例如 "-18.5"
func (t Tenths) String() string {
	v := int32(t)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%d", sign, v/10, v%10)
}

// Reading 一条通过全部校验的温度读数
type Reading struct {
	ID           uuid.UUID `json:"uuid"`
	Model        string    `json:"model"`
	DeviceID     uint8     `json:"id"`
	Channel      uint8     `json:"channel"`
	Temperature  Tenths    `json:"-"`
	TemperatureC float64   `json:"temperature_C"`
	// MsgType 协议报文类型（正常发送在 0xfa20/0xfa28 间交替，按键强制发送为 0xfa21）
	MsgType    uint16    `json:"msg_type,omitempty"`
	Forced     bool      `json:"forced,omitempty"`
	Source     string    `json:"source,omitempty"`
	ReceivedAt time.Time `json:"time"`
}

// NewReading 构造读数并分配唯一ID
func NewReading(model string, deviceID, channel uint8, temp Tenths, at time.Time) Reading {
	return Reading{
		ID:           uuid.New(),
		Model:        model,
		DeviceID:     deviceID,
		Channel:      channel,
		Temperature:  temp,
		TemperatureC: temp.Celsius(),
		ReceivedAt:   at,
	}
}

// Key 返回设备状态键
func (r Reading) Key() DeviceKey { return DeviceKey{DeviceID: r.DeviceID, Channel: r.Channel} }

// Field 按输出字段名取值（表格输出使用），未知字段返回空串
func (r Reading) Field(name string) string {
	switch name {
	case "model":
		return r.Model
	case "id":
		return strconv.Itoa(int(r.DeviceID))
	case "channel":
		return strconv.Itoa(int(r.Channel))
	case "temperature_C":
		return r.Temperature.String()
	case "msg_type":
		return fmt.Sprintf("%04x", r.MsgType)
	case "time":
		return r.ReceivedAt.Format(time.RFC3339)
	}
	return ""
}
