package oria

import (
	"errors"
	"fmt"

	"github.com/taoyao-code/rf-gateway/internal/bitbuffer"
	"github.com/taoyao-code/rf-gateway/internal/coremodel"
)

var (
	ErrEncodeChannel     = errors.New("channel out of range")
	ErrEncodeTemperature = errors.New("temperature not representable")
)

// DefaultMsgType 正常周期发送的报文类型
const DefaultMsgType uint16 = 0xfa20

// BuildFrame 由字段构造合法规范帧（模拟器与测试使用）
// 温度以 BCD 编码，绝对值最大 99.9°C；是否落在有效范围内由解码端判断。
func BuildFrame(deviceID, channel uint8, temp coremodel.Tenths, msgType uint16) (Frame, error) {
	var f Frame
	if channel < minChannel || channel > maxChannel {
		return f, fmt.Errorf("%w: %d", ErrEncodeChannel, channel)
	}
	mag := int32(temp)
	if mag < 0 {
		mag = -mag
	}
	if mag > 999 {
		return f, fmt.Errorf("%w: %s", ErrEncodeTemperature, temp)
	}
	tens, ones, dec := mag/100, mag/10%10, mag%10

	f[0], f[1], f[2] = 0xFF, 0xFF, 0xFF
	f[3] = byte(msgType >> 8)
	f[4] = byte(msgType)
	f[5] = (channel - 1) << 4
	f[6] = deviceID
	f[7] = byte(dec) << 4
	f[8] = byte(tens)<<4 | byte(ones)
	if temp < 0 {
		f[9] = negativeFlag
	}
	f[13] = trailerByte
	return f, nil
}

// EncodeRow 将规范帧还原为原始调制行（位反转 + 曼彻斯特编码 + 取反的逆过程），
// 总长补齐到 BitLen；补齐位构成非法比特对，解码在帧尾处停止。
func EncodeRow(f Frame) *bitbuffer.BitBuffer {
	bb := &bitbuffer.BitBuffer{Rows: []bitbuffer.Row{{}}}
	for _, b := range f {
		r := bitbuffer.Reflect8(b)
		for i := 7; i >= 0; i-- {
			if (r>>i)&1 == 1 {
				bb.AddBit(1)
				bb.AddBit(0)
			} else {
				bb.AddBit(0)
				bb.AddBit(1)
			}
		}
	}
	for bb.Rows[0].Bits < BitLen {
		bb.AddBit(0)
	}
	return bb
}

// EncodeCodes 以 codes 记法输出原始行
func EncodeCodes(f Frame) string { return EncodeRow(f).String() }
