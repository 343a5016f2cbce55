package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuukich1/3x-ui-bot/database/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CreateTestDB 创建一个临时测试数据库，并完成表迁移
func CreateTestDB(dbPath string) (*gorm.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("创建测试数据库失败: %w", err)
	}
	if err := gdb.AutoMigrate(&model.User{}); err != nil {
		return nil, fmt.Errorf("自动迁移模型失败: %w", err)
	}
	return gdb, nil
}

// CleanupTestDB 关闭测试数据库连接
func CleanupTestDB(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
