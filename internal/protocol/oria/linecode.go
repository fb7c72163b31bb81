package oria

import "github.com/taoyao-code/rf-gateway/internal/bitbuffer"

// checkRaw 线路解码前的廉价预检：前导 3 字节须为 0xAA，最后一个完整字节须为 0x69
func checkRaw(row bitbuffer.Row) error {
	last := row.Bits/8 - 1
	if len(row.Bytes) < warmupLen || last < 0 || last >= len(row.Bytes) {
		return noCandidate(ReasonWarmup, "row too short: %d bits", row.Bits)
	}
	for i := 0; i < warmupLen; i++ {
		if row.Bytes[i] != warmupRaw {
			return noCandidate(ReasonWarmup, "warmup byte %d is not 0xaa: %02x", i, row.Bytes[i])
		}
	}
	if row.Bytes[last] != trailerRaw {
		return noCandidate(ReasonSentinel, "last byte is not 0x69: %02x", row.Bytes[last])
	}
	return nil
}

// lineDecode 取反 -> 曼彻斯特解码 -> 字节内位反转，得到规范帧。
// 在行副本上操作，不修改调用方的缓冲。
func lineDecode(bb *bitbuffer.BitBuffer, r int) Frame {
	work := (&bitbuffer.BitBuffer{Rows: bb.Rows[r : r+1]}).Clone()
	work.Invert()

	decoded := work.ManchesterDecode(0, 0, BitLen)

	buf := make([]byte, FrameLen+1)
	copy(buf, decoded.Rows[0].Bytes)
	bitbuffer.ReflectBytes(buf, len(buf))

	var f Frame
	copy(f[:], buf)
	return f
}
