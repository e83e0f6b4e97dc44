package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"HipHopLab/config"
	"HipHopLab/logger"
	"HipHopLab/repository"
)

// GormDB is the shared GORM connection, nil when the memory backend is used.
var GormDB *gorm.DB

// DSN builds the MySQL data source name from the configuration.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

// ConnectGormDB opens the MySQL connection, retrying while the server comes
// up, and migrates the library tables.
func ConnectGormDB(ctx context.Context, cfg *config.Config) error {
	level := gormlogger.Warn
	if cfg.DBLogQueries {
		level = gormlogger.Info
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	err := backoff.RetryNotify(func() error {
		db, err := gorm.Open(mysql.Open(DSN(cfg)), &gorm.Config{
			Logger:                                   newZapGormLogger(level),
			DisableForeignKeyConstraintWhenMigrating: true,
		})
		if err != nil {
			return err
		}
		GormDB = db
		return nil
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("database not ready, retrying", logger.ErrorField(err), logger.Duration("wait", wait))
	})
	if err != nil {
		return fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := GormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetMaxOpenConns(16)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Info("connected to database",
		logger.String("host", cfg.DBHost),
		logger.String("name", cfg.DBName))
	return AutoMigrateModels(repository.Models()...)
}

// CloseGormDB closes the shared connection if one is open.
func CloseGormDB() error {
	if GormDB == nil {
		return nil
	}
	sqlDB, err := GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrateModels migrates the given row types.
func AutoMigrateModels(models ...interface{}) error {
	if GormDB == nil {
		return errors.New("GORM database not initialized")
	}
	if err := GormDB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	logger.Info("models migrated", logger.Int("count", len(models)))
	return nil
}
