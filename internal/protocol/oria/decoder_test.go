package oria

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taoyao-code/rf-gateway/internal/bitbuffer"
	"github.com/taoyao-code/rf-gateway/internal/coremodel"
)

func mustFrame(t *testing.T, id, ch uint8, temp coremodel.Tenths) Frame {
	t.Helper()
	f, err := BuildFrame(id, ch, temp, DefaultMsgType)
	require.NoError(t, err)
	return f
}

// withNoise 在有效行前插入若干短的前导/噪声行
func withNoise(f Frame) *bitbuffer.BitBuffer {
	bb := bitbuffer.New()
	bb.AddRow([]byte{0xAA, 0xAA}, 12)
	bb.AddRow([]byte{0x00}, 1)
	row := EncodeRow(f).Rows[0]
	bb.AddRow(row.Bytes, row.Bits)
	return bb
}

func decodeTemp(t *testing.T, d *Decoder, id, ch uint8, temp coremodel.Tenths) Outcome {
	t.Helper()
	return d.Decode(withNoise(mustFrame(t, id, ch, temp)))
}

func TestDecode_Accepted(t *testing.T) {
	d := NewDecoder(nil, Options{})
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return at }

	out := decodeTemp(t, d, 0x42, 3, -185)
	require.True(t, out.Accepted(), "outcome: %+v", out)
	require.NoError(t, out.Err())
	r := out.Reading
	assert.Equal(t, Model, r.Model)
	assert.Equal(t, uint8(0x42), r.DeviceID)
	assert.Equal(t, uint8(3), r.Channel)
	assert.Equal(t, coremodel.Tenths(-185), r.Temperature)
	assert.InDelta(t, -18.5, r.TemperatureC, 1e-9)
	assert.Equal(t, DefaultMsgType, r.MsgType)
	assert.False(t, r.Forced)
	assert.Equal(t, at, r.ReceivedAt)
	assert.Equal(t, 1, d.Table().Len())
}

func TestDecode_ForcedTransmission(t *testing.T) {
	d := NewDecoder(nil, Options{})
	f, err := BuildFrame(0x10, 1, 45, ForcedMsgType)
	require.NoError(t, err)
	out := d.Decode(EncodeRow(f))
	require.True(t, out.Accepted())
	assert.True(t, out.Reading.Forced)
	assert.Equal(t, uint16(0xfa21), out.Reading.MsgType)
}

func TestDecode_NoCandidate(t *testing.T) {
	valid := EncodeRow(mustFrame(t, 0x42, 1, 40)).Rows[0]

	badWarmup := append([]byte(nil), valid.Bytes...)
	badWarmup[1] = 0xAB
	badSentinel := append([]byte(nil), valid.Bytes...)
	badSentinel[BitLen/8-1] = 0x6A

	tests := []struct {
		name   string
		build  func() *bitbuffer.BitBuffer
		reason Reason
	}{
		{"空输入", func() *bitbuffer.BitBuffer { return bitbuffer.New() }, ReasonNoRow},
		{"nil输入", func() *bitbuffer.BitBuffer { return nil }, ReasonNoRow},
		{"长度不符", func() *bitbuffer.BitBuffer {
			bb := bitbuffer.New()
			bb.AddRow(valid.Bytes, BitLen-1)
			bb.AddRow(valid.Bytes, 12)
			return bb
		}, ReasonNoRow},
		{"前导不符", func() *bitbuffer.BitBuffer {
			bb := bitbuffer.New()
			bb.AddRow(badWarmup, BitLen)
			return bb
		}, ReasonWarmup},
		{"尾字节原始值不符", func() *bitbuffer.BitBuffer {
			bb := bitbuffer.New()
			bb.AddRow(badSentinel, BitLen)
			return bb
		}, ReasonSentinel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(nil, Options{})
			out := d.Decode(tt.build())
			assert.Equal(t, NoCandidate, out.Kind)
			assert.Equal(t, tt.reason, out.Reason)
			assert.Nil(t, out.Reading)
			assert.True(t, errors.Is(out.Err(), ErrNoCandidate))
			assert.False(t, errors.Is(out.Err(), ErrSanityFailure))
			assert.Equal(t, 0, d.Table().Len())
		})
	}
}

func TestDecode_LocatesFirstMatchingRow(t *testing.T) {
	d := NewDecoder(nil, Options{})
	bb := withNoise(mustFrame(t, 0x01, 1, 100))
	second := EncodeRow(mustFrame(t, 0x02, 2, 200)).Rows[0]
	bb.AddRow(second.Bytes, second.Bits)

	r, err := Locate(bb)
	require.NoError(t, err)
	assert.Equal(t, 2, r)

	out := d.Decode(bb)
	require.True(t, out.Accepted())
	assert.Equal(t, uint8(0x01), out.Reading.DeviceID)
}

func TestDecode_TrailerSanityFailure(t *testing.T) {
	d := NewDecoder(nil, Options{})
	f := mustFrame(t, 0x42, 1, 40)
	// 只改低半字节，原始末字节仍为 0x69，可通过预检
	f[13] = 0x6A
	out := d.Decode(EncodeRow(f))
	assert.Equal(t, SanityFailure, out.Kind)
	assert.Equal(t, ReasonTrailer, out.Reason)
	assert.True(t, errors.Is(out.Err(), ErrSanityFailure))
}

func TestDecode_DoesNotMutateInput(t *testing.T) {
	d := NewDecoder(nil, Options{})
	bb := withNoise(mustFrame(t, 0x42, 1, 40))
	before := bb.String()
	_ = d.Decode(bb)
	assert.Equal(t, before, bb.String())
}

func TestDecode_DeltaBoundary(t *testing.T) {
	tests := []struct {
		name   string
		first  coremodel.Tenths
		second coremodel.Tenths
		accept bool
	}{
		{"上升11.0", 40, 150, true},
		{"上升12.0恰好接受", 40, 160, true},
		{"上升12.1拒绝", 40, 161, false},
		{"下降12.0恰好接受", 40, -80, true},
		{"下降12.1拒绝", 40, -81, false},
		{"跨零点小幅", -5, 5, true},
		{"相同值", 215, 215, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(nil, Options{})
			require.True(t, decodeTemp(t, d, 0x42, 1, tt.first).Accepted())
			out := decodeTemp(t, d, 0x42, 1, tt.second)
			if tt.accept {
				assert.True(t, out.Accepted(), "outcome: %+v", out)
				return
			}
			assert.Equal(t, SanityFailure, out.Kind)
			assert.Equal(t, ReasonTemperatureDelta, out.Reason)
		})
	}
}

func TestDecode_RejectedReadingDoesNotUpdateState(t *testing.T) {
	d := NewDecoder(nil, Options{})
	require.True(t, decodeTemp(t, d, 0x42, 1, 40).Accepted())
	require.False(t, decodeTemp(t, d, 0x42, 1, 300).Accepted())
	// 基准仍为 4.0，16.0 可接受
	assert.True(t, decodeTemp(t, d, 0x42, 1, 160).Accepted())
	snap := d.Table().Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, coremodel.Tenths(160), snap[0].LastTemperature)
}

func TestDecode_ChannelsTrackedIndependently(t *testing.T) {
	d := NewDecoder(nil, Options{})
	require.True(t, decodeTemp(t, d, 0x42, 1, 40).Accepted())
	require.True(t, decodeTemp(t, d, 0x42, 2, -180).Accepted())

	// 通道A大幅跳变被拒绝
	assert.False(t, decodeTemp(t, d, 0x42, 1, 250).Accepted())
	// 通道B不受影响
	assert.True(t, decodeTemp(t, d, 0x42, 2, -175).Accepted())
	assert.Equal(t, 2, d.Table().Len())
}

func TestDecode_TableCapacity(t *testing.T) {
	d := NewDecoder(nil, Options{MaxDevices: 4})
	for id := uint8(1); id <= 4; id++ {
		require.True(t, decodeTemp(t, d, id, 1, 50).Accepted())
	}

	out := decodeTemp(t, d, 0x99, 1, 50)
	assert.Equal(t, SanityFailure, out.Kind)
	assert.Equal(t, ReasonTableFull, out.Reason)

	// 已跟踪设备在表满后仍可更新
	out = decodeTemp(t, d, 0x03, 1, 60)
	require.True(t, out.Accepted())
	assert.Equal(t, 4, d.Table().Len())
	for _, e := range d.Table().Snapshot() {
		if e.Key.DeviceID == 0x03 {
			assert.Equal(t, coremodel.Tenths(60), e.LastTemperature)
			assert.Equal(t, 2, e.Slot)
		}
	}
}

func TestDecode_Idempotent(t *testing.T) {
	d := NewDecoder(nil, Options{})
	bb := withNoise(mustFrame(t, 0x42, 5, 37))

	first := d.Decode(bb)
	second := d.Decode(bb)
	require.True(t, first.Accepted())
	require.True(t, second.Accepted())
	assert.Equal(t, first.Reading.Model, second.Reading.Model)
	assert.Equal(t, first.Reading.DeviceID, second.Reading.DeviceID)
	assert.Equal(t, first.Reading.Channel, second.Reading.Channel)
	assert.Equal(t, first.Reading.Temperature, second.Reading.Temperature)
}

func TestDecode_CustomDelta(t *testing.T) {
	d := NewDecoder(nil, Options{MaxTempDelta: 5.0})
	assert.Equal(t, coremodel.Tenths(50), d.MaxDelta())
	require.True(t, decodeTemp(t, d, 0x42, 1, 0).Accepted())
	assert.True(t, decodeTemp(t, d, 0x42, 1, 50).Accepted())
	assert.False(t, decodeTemp(t, d, 0x42, 1, 101).Accepted())
}

func TestDecode_LogSeverity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := NewDecoder(zap.New(core), Options{})

	_ = d.Decode(bitbuffer.New())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)

	f := mustFrame(t, 0x42, 1, 40)
	f[8] = 0x0C
	_ = d.Decode(EncodeRow(f))
	warn := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warn, 1)
	assert.Equal(t, "bcd", warn[0].ContextMap()["reason"])

	// 可疑ID仅记录不拒绝
	out := decodeTemp(t, d, 0x00, 1, 40)
	assert.True(t, out.Accepted())
	assert.Equal(t, 1, logs.FilterMessageSnippet("suspicious device id").Len())
	out = decodeTemp(t, d, 0xFF, 1, 40)
	assert.True(t, out.Accepted())
	assert.Equal(t, 2, logs.FilterMessageSnippet("suspicious device id").Len())
	assert.Len(t, logs.FilterLevelExact(zapcore.WarnLevel).All(), 1)
}

// 手工推导的原始行：帧 ff ff ff fa 28 60 5a 30 07 08 80 00 00 65
// (id 0x5a, 通道 7, -7.3°C, 字节10 的 0x80 为未定义位)，末尾 3 位补零
const literalRow = "{12}aaa/{227}aaaaaaaaaaaa66aa56655569669955a5a9555655555655555555996900"

func TestDecode_LiteralCodesRow(t *testing.T) {
	bb, err := bitbuffer.Parse(literalRow)
	require.NoError(t, err)

	d := NewDecoder(nil, Options{})
	out := d.Decode(bb)
	require.True(t, out.Accepted(), "outcome: %+v", out)
	r := out.Reading
	assert.Equal(t, uint8(0x5a), r.DeviceID)
	assert.Equal(t, uint8(7), r.Channel)
	assert.Equal(t, coremodel.Tenths(-73), r.Temperature)
	assert.InDelta(t, -7.3, r.TemperatureC, 1e-9)
	assert.Equal(t, uint16(0xfa28), r.MsgType)
	assert.False(t, r.Forced)

	f, err := BuildFrame(0x5a, 7, -73, 0xfa28)
	require.NoError(t, err)
	f[10] = 0x80
	assert.Equal(t, literalRow[len("{12}aaa/"):], EncodeCodes(f))
}

func TestFieldNames_ReturnsCopy(t *testing.T) {
	names := FieldNames()
	assert.Equal(t, []string{"model", "id", "channel", "temperature_C"}, names)
	names[0] = "x"
	assert.Equal(t, "model", FieldNames()[0])
}
