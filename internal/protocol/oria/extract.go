package oria

import "github.com/taoyao-code/rf-gateway/internal/coremodel"

// Fields 从规范帧提取的业务字段
type Fields struct {
	Channel     uint8
	DeviceID    uint8
	Temperature coremodel.Tenths
	MsgType     uint16
}

// Extract 纯函数：调用前须已通过尾字节、通道与 BCD 校验
func Extract(f Frame) Fields {
	dec, tens, ones := temperatureNibbles(f)
	t := coremodel.Tenths((int32(tens)*10+int32(ones))*10 + int32(dec))
	if f[9]&negativeFlag != 0 {
		t = -t
	}
	return Fields{
		Channel:     channelOf(f),
		DeviceID:    f[6],
		Temperature: t,
		MsgType:     uint16(f[3])<<8 | uint16(f[4]),
	}
}

func channelOf(f Frame) uint8 { return (f[5]>>4)&0x0F + 1 }

// temperatureNibbles 返回 小数位、十位、个位 三个 BCD 半字节
func temperatureNibbles(f Frame) (dec, tens, ones uint8) {
	return (f[7] >> 4) & 0x0F, (f[8] >> 4) & 0x0F, f[8] & 0x0F
}
