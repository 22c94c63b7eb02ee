// Package database owns the process-wide GORM connection backing the
// users, projects and reports tables.
package database

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/verustcode/codesync/internal/model"
	"github.com/verustcode/codesync/pkg/errors"
	"github.com/verustcode/codesync/pkg/logger"
)

var (
	mu sync.RWMutex
	db *gorm.DB
)

// InitWithPath opens the SQLite file at dbPath, creating its directory, and
// migrates the schema. Once a connection is open further calls are no-ops.
func InitWithPath(dbPath string) error {
	mu.Lock()
	defer mu.Unlock()
	if db != nil {
		return nil
	}

	conn, err := openSQLite(dbPath)
	if err != nil {
		return err
	}
	if err := migrate(conn); err != nil {
		closeConn(conn)
		return err
	}
	db = conn
	return nil
}

func openSQLite(dbPath string) (*gorm.DB, error) {
	logger.Info("Opening database", zap.String("path", dbPath))

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBConnection, "cannot create database directory "+dir, err)
		}
	}

	conn, err := gorm.Open(dialector(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "cannot open database", err)
	}
	if err := tune(conn); err != nil {
		closeConn(conn)
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "cannot tune database connection", err)
	}
	return conn, nil
}

func migrate(conn *gorm.DB) error {
	tables := model.AllModels()
	if err := conn.AutoMigrate(tables...); err != nil {
		logger.Error("Schema migration failed", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBMigration, "schema migration failed", err)
	}
	logger.Info("Database ready", zap.Int("tables", len(tables)))
	return nil
}

func closeConn(conn *gorm.DB) {
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Get returns the open connection. Calling it before InitWithPath is a
// programming error and panics.
func Get() *gorm.DB {
	mu.RLock()
	defer mu.RUnlock()
	if db == nil {
		panic("database: Get called before InitWithPath")
	}
	return db
}

// Close releases the connection. It is safe to call when nothing is open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLocked()
}

func closeLocked() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	db = nil
	if err != nil {
		return err
	}
	logger.Info("Closing database")
	return sqlDB.Close()
}

// ResetForTesting drops the current connection so the next InitWithPath
// opens a fresh file.
func ResetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	_ = closeLocked()
}

// HealthCheck pings the open connection. /health reports unhealthy on error.
func HealthCheck() error {
	mu.RLock()
	conn := db
	mu.RUnlock()
	if conn == nil {
		return errors.New(errors.ErrCodeDBConnection, "database not open")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "database handle unavailable", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "database ping failed", err)
	}
	return nil
}
