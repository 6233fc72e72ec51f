package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/promptlift/prompt-enhancer/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init() error {
	dbPath := config.Cfg.DatabasePath
	dbDir := filepath.Dir(dbPath)
	if dbDir != "" {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}

	if err := DB.AutoMigrate(
		&UserProfile{},
		&EnhancementLog{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	return nil
}

func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// SubscriptionStatus returns the billing status for a user id, or
// "free" when the user is unknown.
func SubscriptionStatus(userID string) string {
	if userID == "" || DB == nil {
		return StatusFree
	}
	var profile UserProfile
	if err := DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return StatusFree
	}
	if profile.SubscriptionStatus == "" {
		return StatusFree
	}
	return profile.SubscriptionStatus
}
