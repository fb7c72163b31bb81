package oria

import (
	"sync"

	"github.com/taoyao-code/rf-gateway/internal/coremodel"
)

type slot struct {
	key     coremodel.DeviceKey
	last    coremodel.Tenths
	tracked bool
}

// DeviceTable 固定容量的设备状态表（device id + channel -> 上次接受的温度）
// - 线性扫描查找，插入取首个空槽
// - 表满后拒绝新设备，不淘汰已跟踪设备
// - 条目只增不删，进程重启即清空
type DeviceTable struct {
	mu    sync.Mutex
	slots []slot
}

// NewDeviceTable 创建全空的状态表，capacity<=0 时使用 DefaultMaxDevices
func NewDeviceTable(capacity int) *DeviceTable {
	if capacity <= 0 {
		capacity = DefaultMaxDevices
	}
	return &DeviceTable{slots: make([]slot, capacity)}
}

// Observe 对新读数执行突变检查并在接受时写入状态。
// 查找与更新在同一把锁内完成。
func (t *DeviceTable) Observe(key coremodel.DeviceKey, temp, maxDelta coremodel.Tenths) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := -1
	for i := range t.slots {
		s := &t.slots[i]
		if s.tracked {
			if s.key == key {
				idx = i
				break
			}
		} else if idx == -1 {
			idx = i
		}
	}
	if idx == -1 {
		return sanity(ReasonTableFull, "device state tracking full, cannot track device id=0x%02x channel=%d",
			key.DeviceID, key.Channel)
	}

	s := &t.slots[idx]
	if s.tracked {
		delta := temp - s.last
		if delta < 0 {
			delta = -delta
		}
		if delta > maxDelta {
			return sanity(ReasonTemperatureDelta,
				"temperature delta too large: %s°C -> %s°C (delta=%s°C, max=%s°C), rejecting",
				s.last, temp, delta, maxDelta)
		}
	}

	s.key = key
	s.last = temp
	s.tracked = true
	return nil
}

// Entry 状态表快照条目
type Entry struct {
	Key              coremodel.DeviceKey `json:"key"`
	LastTemperature  coremodel.Tenths    `json:"-"`
	LastTemperatureC float64             `json:"last_temperature_C"`
	Slot             int                 `json:"slot"`
}

// Snapshot 返回已跟踪条目（按槽位顺序）
func (t *DeviceTable) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.slots))
	for i, s := range t.slots {
		if !s.tracked {
			continue
		}
		out = append(out, Entry{Key: s.key, LastTemperature: s.last, LastTemperatureC: s.last.Celsius(), Slot: i})
	}
	return out
}

// Len 已跟踪设备数
func (t *DeviceTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.slots {
		if s.tracked {
			n++
		}
	}
	return n
}

// Cap 表容量
func (t *DeviceTable) Cap() int { return len(t.slots) }
