//go:build !no_sqlite && cgo

package db

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/teamvault/pkg/configs"
)

// mattn/go-sqlite3 的连接参数.
const cgoSQLiteParams = "_foreign_keys=1&_busy_timeout=5000&_journal_mode=WAL"

func init() {
	RegisterDialectorFactory(configs.SQLite, func(cfg *configs.DBConfig) gorm.Dialector {
		return sqlite.Open(withSQLiteParams(cfg.GetDSN(), cgoSQLiteParams))
	})
}
