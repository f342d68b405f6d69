// Package dbtest opens sqlite databases carrying the full schema for
// repository and service tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/config"
	"github.com/angelmondragon/wavepick-backend/pkg/db"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a private in-memory database. A single connection keeps every
// statement on the same memory store.
func Open(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn := open(t, dsn, 1)
	return db.NewWithConn(conn, config.DBConfig{TxMaxAttempts: 1}), conn
}

// OpenFile returns a file-backed database whose transactions start with
// BEGIN IMMEDIATE, so concurrent writers queue on the database lock the way
// they would on row locks in Postgres.
func OpenFile(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wavepick.db")
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000", path)
	conn := open(t, dsn, 4)
	return db.NewWithConn(conn, config.DBConfig{TxMaxAttempts: 5, TxTimeout: 10 * time.Second}), conn
}

func open(t *testing.T, dsn string, maxConns int) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}
