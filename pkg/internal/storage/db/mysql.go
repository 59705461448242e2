//go:build !no_mysql

package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/yeisme/teamvault/pkg/configs"
)

// utf8mb4 下 InnoDB 单列索引上限 767 字节.
const mysqlIndexedStringSize = 191

func init() {
	dialect := func(cfg *configs.DBConfig) gorm.Dialector {
		return mysql.New(mysql.Config{
			DSN:               cfg.GetDSN(),
			DefaultStringSize: mysqlIndexedStringSize,
			// MariaDB 10.5 之前不支持 RENAME COLUMN
			DontSupportRenameColumn: cfg.Type == configs.MariaDB,
		})
	}

	RegisterDialectorFactory(configs.MySQL, dialect)
	RegisterDialectorFactory(configs.MariaDB, dialect)
}
