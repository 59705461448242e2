//go:build !no_sqlite

package db

import "strings"

// withSQLiteParams 只在 DSN 未携带任何参数时追加默认参数，显式配置的 DSN 保持原样.
func withSQLiteParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}

	return dsn + "?" + params
}
