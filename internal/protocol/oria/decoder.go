package oria

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/rf-gateway/internal/bitbuffer"
	"github.com/taoyao-code/rf-gateway/internal/coremodel"
)

// Options 解码器参数
type Options struct {
	MaxDevices   int     // 设备状态表容量
	MaxTempDelta float64 // 相邻读数最大温差（°C）
}

// Decoder 持有设备状态表的解码器实例，状态表的生命周期与实例一致
type Decoder struct {
	logger   *zap.Logger
	table    *DeviceTable
	maxDelta coremodel.Tenths
	now      func() time.Time
}

// NewDecoder 创建解码器；logger 为 nil 时不输出日志
func NewDecoder(logger *zap.Logger, opts Options) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxDelta := DefaultMaxDelta
	if opts.MaxTempDelta > 0 {
		maxDelta = coremodel.FromCelsius(opts.MaxTempDelta)
	}
	return &Decoder{
		logger:   logger,
		table:    NewDeviceTable(opts.MaxDevices),
		maxDelta: maxDelta,
		now:      time.Now,
	}
}

// Table 返回设备状态表（只读用途：快照/统计）
func (d *Decoder) Table() *DeviceTable { return d.table }

// MaxDelta 当前突变阈值
func (d *Decoder) MaxDelta() coremodel.Tenths { return d.maxDelta }

// Decode 对一批比特行执行完整流水线，永不 panic，结果三选一：
// NoCandidate / SanityFailure / Accepted（恰好一条读数）
func (d *Decoder) Decode(bb *bitbuffer.BitBuffer) Outcome {
	r, err := Locate(bb)
	if err != nil {
		return d.reject(err)
	}
	if err := checkRaw(bb.Rows[r]); err != nil {
		return d.reject(err)
	}

	f := lineDecode(bb, r)

	fields, err := Validate(f)
	if err != nil {
		return d.reject(err)
	}

	if suspiciousID(fields.DeviceID) {
		d.logger.Debug("suspicious device id (might indicate corrupted data)",
			zap.String("device_id", fmt.Sprintf("0x%02x", fields.DeviceID)),
			zap.Uint8("channel", fields.Channel))
	}

	key := coremodel.DeviceKey{DeviceID: fields.DeviceID, Channel: fields.Channel}
	if err := d.table.Observe(key, fields.Temperature, d.maxDelta); err != nil {
		return d.reject(err)
	}

	reading := coremodel.NewReading(Model, fields.DeviceID, fields.Channel, fields.Temperature, d.now())
	reading.MsgType = fields.MsgType
	reading.Forced = fields.MsgType == ForcedMsgType
	return Outcome{Kind: Accepted, Reading: &reading}
}

// reject 候选拒绝记 Debug，合理性拒绝记 Warn
func (d *Decoder) reject(err error) Outcome {
	var re *RejectError
	if !errors.As(err, &re) {
		re = sanity(ReasonNone, "%v", err)
	}
	fields := []zap.Field{zap.String("reason", string(re.Reason)), zap.String("detail", re.Detail)}
	if re.Kind == NoCandidate {
		d.logger.Debug("frame skipped", fields...)
	} else {
		d.logger.Warn("frame rejected", fields...)
	}
	return rejected(re)
}
