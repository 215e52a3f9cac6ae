package db

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sponsor-backend/internal/config"
	"sponsor-backend/internal/models"
)

var DB *gorm.DB

func InitDB() {
	var err error

	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		log.Fatalf("Database DSN is required")
	}

	dsn := config.AppConfig.Database.DSN
	log.Printf("Connecting to database: %s", dsn)

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	log.Println("✅ Database connected successfully")

	log.Println("🚀 Starting database schema migration with GORM AutoMigrate...")
	if err := DB.AutoMigrate(
		&models.SponsorshipRecord{},
		&models.FactoryEntry{},
		&models.PooledBalance{},
		&models.BalanceMovement{},
	); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Println("✅ Database schema migration completed")
}
