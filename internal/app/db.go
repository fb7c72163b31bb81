package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/taoyao-code/rf-gateway/db/migrations"
	cfgpkg "github.com/taoyao-code/rf-gateway/internal/config"
	"github.com/taoyao-code/rf-gateway/internal/migrate"
	"github.com/taoyao-code/rf-gateway/internal/storage/gormrepo"
	pgstorage "github.com/taoyao-code/rf-gateway/internal/storage/pg"
)

// ConnectDBAndMigrate 建立数据库连接并按需执行内嵌迁移
func ConnectDBAndMigrate(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	dbpool, err := pgstorage.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error("db connect error", zap.Error(err))
		return nil, err
	}
	if cfg.AutoMigrate {
		applied, err := (migrate.Runner{FS: migrations.FS}).Up(ctx, dbpool)
		if err != nil {
			log.Error("db migrate error", zap.Error(err))
			dbpool.Close()
			return nil, err
		}
		log.Info("db migrations applied", zap.Int64s("versions", applied))
	}
	return dbpool, nil
}

// OpenDeviceRegistry 在同一连接池上打开 GORM 设备登记表
func OpenDeviceRegistry(pool *pgxpool.Pool) (*gormrepo.Repository, *gorm.DB, error) {
	gdb, err := gormrepo.Open(pool)
	if err != nil {
		return nil, nil, err
	}
	return gormrepo.New(gdb), gdb, nil
}
