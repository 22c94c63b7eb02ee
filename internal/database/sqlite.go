package database

import (
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verustcode/codesync/pkg/logger"
)

// Reports are written by the sync workers while the API reads them, so the
// file runs in WAL mode with a single shared connection.
var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

func dialector(path string) gorm.Dialector {
	return sqlite.Open(path)
}

func tune(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	for _, p := range sqlitePragmas {
		if err := conn.Exec(p).Error; err != nil {
			// journal_mode fails on :memory: files; the rest still apply
			logger.Warn("SQLite pragma not applied", zap.String("pragma", p), zap.Error(err))
		}
	}
	return nil
}
