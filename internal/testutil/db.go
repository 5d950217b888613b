package testutil

import (
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qs3c/prodviz_server/internal/database"
)

// SetupTestDB 内存 SQLite，表结构与线上迁移一致
// NewSQLite 只开一个连接，并发测试共享同一个内存库
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	db = db.Session(&gorm.Session{Logger: logger.Discard})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// CleanupTestDB 关闭连接，内存库随之释放
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if err != nil {
		t.Logf("close test database: %v", err)
	}
}
