package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"school_fees_echo/internal/logger"
	"school_fees_echo/internal/models"
)

// InitDB initializes the database connection with connection pooling
func InitDB(dsn string, production bool) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	level := gormlogger.Info
	if production {
		level = gormlogger.Warn
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Info("Database connection established")
	return db, nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Parent{},
		&models.Student{},
		&models.Payment{},
		&models.PaymentCallbackHistory{},
	)
	if err != nil {
		return err
	}

	logger.Info("Database migrations completed")
	return nil
}

// DBPinger adapts *gorm.DB to the health check
type DBPinger struct {
	DB *gorm.DB
}

func (p DBPinger) Ping(ctx context.Context) error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
