package dbclient

import (
	"fmt"
	"os"
	"path/filepath"

	"dsjson/internal/domain"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	driver:      "sqlite",
	placeholder: func(int) string { return "?" },
	quote:       quoteDouble,
	numericType: "REAL",
	textType:    "TEXT",
	rownumType:  "INTEGER",
	keyType:     "TEXT",
}

// newSQLiteStore opens (or creates) a SQLite file. Host carries the path.
func newSQLiteStore(conn *domain.DatabaseConnection) (*sqlStore, error) {
	if dir := filepath.Dir(conn.Host); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := conn.Host + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	s, err := newSQLStore(sqliteDialect, dsn)
	if err != nil {
		return nil, err
	}
	// SQLite only supports one writer
	s.db.SetMaxOpenConns(1)
	return s, nil
}
