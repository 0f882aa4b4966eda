package db

import (
	"fmt"

	"ecorder/internal/config"
	"ecorder/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		//トランザクションはTxManagerで明示的に張る
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
	}
	if cfg.IsDev() {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), gcfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	return gdb, nil
}

// Migrate はエンジンが使うテーブルを作る。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&model.Location{},
		&model.StockRecord{},
		&model.ProductVariant{},
		&model.Address{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.OrderStatusHistory{},
		&model.AuditLog{},
	)
}
