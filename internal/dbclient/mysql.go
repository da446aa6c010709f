package dbclient

import (
	"fmt"
	"net/url"
	"sort"

	"dsjson/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	driver:      "mysql",
	placeholder: func(int) string { return "?" },
	quote:       quoteBacktick,
	numericType: "DOUBLE",
	textType:    "LONGTEXT",
	rownumType:  "BIGINT",
	keyType:     "VARCHAR(255)",
	columnsQuery: `SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`,
}

// buildMySQLDSN constructs a MySQL DSN from a DatabaseConnection.
func buildMySQLDSN(conn *domain.DatabaseConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?charset=utf8mb4
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4",
		conn.Username, password, conn.Host, port, conn.Database,
	)
	if conn.SSLMode == "require" {
		dsn += "&tls=true"
	}
	keys := make([]string, 0, len(conn.Params))
	for k := range conn.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dsn += "&" + url.QueryEscape(k) + "=" + url.QueryEscape(conn.Params[k])
	}
	return dsn
}
