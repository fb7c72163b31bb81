package models

import "time"

// 注意：
// - 与 db/migrations/0002_sensor_devices_up.sql 保持对齐
// - 不使用 gorm.Model，显式声明每个字段，避免隐式 DeletedAt

// SensorDevice 映射 sensor_devices 表：每个 (model, device_id, channel) 一行
type SensorDevice struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Model    string `gorm:"column:model;type:text;not null;uniqueIndex:uq_sensor_devices_key" json:"model"`
	DeviceID int16  `gorm:"column:device_id;not null;uniqueIndex:uq_sensor_devices_key" json:"id"`
	Channel  int16  `gorm:"column:channel;not null;uniqueIndex:uq_sensor_devices_key" json:"channel"`
	// 最近一次接受的温度
	LastTemperatureC float64 `gorm:"column:last_temperature_c;type:numeric(4,1);not null" json:"last_temperature_C"`
	ReadingCount     int64   `gorm:"column:reading_count;not null;default:0" json:"reading_count"`

	FirstSeenAt time.Time `gorm:"column:first_seen_at;not null" json:"first_seen_at"`
	LastSeenAt  time.Time `gorm:"column:last_seen_at;not null" json:"last_seen_at"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (SensorDevice) TableName() string { return "sensor_devices" }
