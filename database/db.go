package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatorder-backend/config"
	"chatorder-backend/models"
)

// Models 需要迁移的表，测试里的 sqlite 也用这份
var Models = []interface{}{
	&models.Product{},
	&models.DiscountConfig{},
	&models.Customer{},
	&models.OrderSequence{},
	&models.Order{},
	&models.OrderItem{},
}

func DSN(cfg config.DatabaseConfig) string {
	sslmode := cfg.SslMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.Dbname, cfg.Port, sslmode)
}

func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	// 先确保扩展开启
	db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	logrus.Info("✅ 数据库初始化完成，表结构已就绪")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}
