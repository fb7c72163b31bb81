package gormrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/taoyao-code/rf-gateway/internal/coremodel"
	"github.com/taoyao-code/rf-gateway/internal/storage/models"
)

// ErrNotFound 设备未登记
var ErrNotFound = errors.New("device not found")

// Open 复用 pgx 连接池创建 *gorm.DB，避免维护第二套连接
func Open(pool *pgxpool.Pool) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
}

// Repository 基于 GORM 的已见设备登记
type Repository struct {
	db *gorm.DB
}

// New 返回使用给定 *gorm.DB 的仓储
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// TouchDevice 登记读数对应的设备：不存在则插入，存在则刷新最近温度/时间并累加计数
func (r *Repository) TouchDevice(ctx context.Context, rd coremodel.Reading) error {
	record := &models.SensorDevice{
		Model:            rd.Model,
		DeviceID:         int16(rd.DeviceID),
		Channel:          int16(rd.Channel),
		LastTemperatureC: rd.TemperatureC,
		ReadingCount:     1,
		FirstSeenAt:      rd.ReceivedAt,
		LastSeenAt:       rd.ReceivedAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "model"}, {Name: "device_id"}, {Name: "channel"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_temperature_c": gorm.Expr("excluded.last_temperature_c"),
				"last_seen_at":       gorm.Expr("excluded.last_seen_at"),
				"reading_count":      gorm.Expr("sensor_devices.reading_count + 1"),
				"updated_at":         gorm.Expr("NOW()"),
			}),
		}).
		Create(record).Error
}

// ListDevices 按最近出现时间倒序
func (r *Repository) ListDevices(ctx context.Context, limit int) ([]models.SensorDevice, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	var out []models.SensorDevice
	err := r.db.WithContext(ctx).
		Order("last_seen_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetDevice 查询单个设备通道
func (r *Repository) GetDevice(ctx context.Context, model string, id, channel uint8) (*models.SensorDevice, error) {
	var d models.SensorDevice
	err := r.db.WithContext(ctx).
		Where("model = ? AND device_id = ? AND channel = ?", model, int16(id), int16(channel)).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
