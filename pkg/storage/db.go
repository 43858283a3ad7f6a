// Package storage 提供数据存储功能
package storage

import (
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/KodaTao/SessionAdapter/pkg/observability"
)

// Config 数据库配置
type Config struct {
	Path string // 数据库文件路径，:memory: 表示内存库
}

// Open 打开数据库连接
func Open(cfg Config) (*gorm.DB, error) {
	dbPath := cfg.Path
	if dbPath != ":memory:" {
		// 处理路径中的 ~ 并确保目录存在
		dbPath = expandPath(dbPath)
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
	}

	gormLogger := logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	observability.Info("Database initialized", "path", dbPath)
	return db, nil
}

// Close 关闭数据库连接
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// expandPath 展开路径中的 ~ 为用户主目录
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
