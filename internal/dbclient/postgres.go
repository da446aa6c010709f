package dbclient

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"dsjson/internal/domain"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	driver:      "postgres",
	placeholder: func(i int) string { return "$" + strconv.Itoa(i) },
	quote:       quoteDouble,
	numericType: "DOUBLE PRECISION",
	textType:    "TEXT",
	rownumType:  "BIGINT",
	keyType:     "TEXT",
	columnsQuery: `SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`,
}

// buildPostgresDSN constructs a Postgres connection string from a DatabaseConnection.
func buildPostgresDSN(conn *domain.DatabaseConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pgValue(conn.Host), port, pgValue(conn.Username), pgValue(password), pgValue(conn.Database), sslMode,
	)
	keys := make([]string, 0, len(conn.Params))
	for k := range conn.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dsn += " " + k + "=" + pgValue(conn.Params[k])
	}
	return dsn
}

// pgValue quotes a keyword/value connection parameter when needed.
func pgValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
