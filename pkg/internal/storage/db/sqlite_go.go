//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/teamvault/pkg/configs"
)

// modernc.org/sqlite 使用 _pragma=name(value) 语法.
const pureSQLiteParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

func init() {
	RegisterDialectorFactory(configs.SQLite, func(cfg *configs.DBConfig) gorm.Dialector {
		return sqlite.Open(withSQLiteParams(cfg.GetDSN(), pureSQLiteParams))
	})
}
