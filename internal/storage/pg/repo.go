package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/rf-gateway/internal/coremodel"
)

// Repository 读数日志（sensor_readings）
type Repository struct {
	Pool *pgxpool.Pool
}

// ReadingFilter 查询条件，零值表示不过滤
type ReadingFilter struct {
	DeviceID *uint8
	Channel  *uint8
	Since    time.Time
	Limit    int
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// InsertReading 追加一条读数；同一 uuid 重复写入忽略
func (r *Repository) InsertReading(ctx context.Context, rd coremodel.Reading) error {
	const q = `INSERT INTO sensor_readings
               (id, model, device_id, channel, temperature_c, msg_type, forced, source, received_at)
               VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
               ON CONFLICT (id) DO NOTHING`
	_, err := r.Pool.Exec(ctx, q, rd.ID, rd.Model, int16(rd.DeviceID), int16(rd.Channel),
		rd.TemperatureC, int32(rd.MsgType), rd.Forced, rd.Source, rd.ReceivedAt)
	return err
}

// ListReadings 按接收时间倒序返回读数
func (r *Repository) ListReadings(ctx context.Context, f ReadingFilter) ([]coremodel.Reading, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	// NULL 参数表示该条件不生效
	const q = `SELECT id, model, device_id, channel, temperature_c::float8, msg_type, forced, source, received_at
               FROM sensor_readings
               WHERE ($1::smallint IS NULL OR device_id = $1)
                 AND ($2::smallint IS NULL OR channel = $2)
                 AND ($3::timestamptz IS NULL OR received_at >= $3)
               ORDER BY received_at DESC
               LIMIT $4`
	rows, err := r.Pool.Query(ctx, q, optSmallint(f.DeviceID), optSmallint(f.Channel), optTime(f.Since), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanReading)
}

// CountReadings 读数总数
func (r *Repository) CountReadings(ctx context.Context) (int64, error) {
	var n int64
	err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sensor_readings`).Scan(&n)
	return n, err
}

func scanReading(row pgx.CollectableRow) (coremodel.Reading, error) {
	var rd coremodel.Reading
	var id, ch int16
	var msgType int32
	err := row.Scan(&rd.ID, &rd.Model, &id, &ch, &rd.TemperatureC, &msgType, &rd.Forced, &rd.Source, &rd.ReceivedAt)
	if err != nil {
		return rd, err
	}
	rd.DeviceID = uint8(id)
	rd.Channel = uint8(ch)
	rd.MsgType = uint16(msgType)
	rd.Temperature = coremodel.FromCelsius(rd.TemperatureC)
	return rd, nil
}

func optSmallint(v *uint8) any {
	if v == nil {
		return nil
	}
	return int16(*v)
}

func optTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
