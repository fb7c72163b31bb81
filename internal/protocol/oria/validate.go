package oria

// Validate 按固定顺序执行帧内容校验，首个失败项决定拒绝原因：
// 尾字节 -> 通道范围 -> BCD 合法性 -> 温度范围。
// 设备ID 0x00/0xFF 仅提示可疑，不在此拒绝。
func Validate(f Frame) (Fields, error) {
	if f[13] != trailerByte {
		return Fields{}, sanity(ReasonTrailer, "last byte is not 0x65: 0x%02x (might indicate corrupted data)", f[13])
	}

	// 4 位源字段决定了通道恒在 1..16 内，保留该下界/上界作为防御性校验
	if ch := int(f[5]>>4) + 1; ch < minChannel || ch > maxChannel {
		return Fields{}, sanity(ReasonChannel, "channel out of range: %d (expected 1-16)", ch)
	}

	dec, tens, ones := temperatureNibbles(f)
	if dec > 9 || tens > 9 || ones > 9 {
		return Fields{}, sanity(ReasonBCD, "invalid BCD encoding: decimal=%d tens=%d ones=%d", dec, tens, ones)
	}

	fields := Extract(f)
	if fields.Temperature < minTemperature || fields.Temperature > maxTemperature {
		return Fields{}, sanity(ReasonTemperatureRange,
			"temperature out of reasonable range: %s°C (expected -40°C to 60°C)", fields.Temperature)
	}
	return fields, nil
}

// suspiciousID 全 0 或全 1 的设备ID 罕见但可能出现
func suspiciousID(id uint8) bool { return id == 0x00 || id == 0xFF }
