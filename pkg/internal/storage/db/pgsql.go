//go:build !no_postgres

package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yeisme/teamvault/pkg/configs"
)

func postgresDialector(cfg *configs.DBConfig) gorm.Dialector {
	return postgres.New(postgres.Config{
		DSN:                  cfg.GetDSN(),
		PreferSimpleProtocol: cfg.PreferSimpleProtocol,
	})
}

func init() {
	for _, t := range []configs.DBType{configs.PostgreSQL, configs.Postgres, configs.Pg} {
		RegisterDialectorFactory(t, postgresDialector)
	}
}
