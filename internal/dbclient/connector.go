package dbclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dsjson/internal/domain"
)

// Store is a table store backed by an external database.
type Store interface {
	domain.TableStore
	domain.SchemaCatalog

	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// ListDatasets returns the datasets recorded in the catalog.
	ListDatasets(ctx context.Context) ([]string, error)
}

// Catalog names shared by all drivers.
const (
	catalogDatasets = "dsjson_datasets"
	catalogColumns  = "dsjson_columns"
	catalogMongo    = "dsjson_catalog"
	rownumColumn    = "dsjson_rownum"
	mongoRownum     = "_rownum"
)

// ErrReservedColumn is returned when a dataset column would collide with a
// column the store keeps for itself.
var ErrReservedColumn = errors.New("column name is reserved by the store")

// checkReserved rejects columns named like store bookkeeping, ignoring case.
func checkReserved(ds *domain.Dataset, reserved ...string) error {
	for _, c := range ds.Columns {
		for _, r := range reserved {
			if strings.EqualFold(c.Name, r) {
				return fmt.Errorf("dataset %s column %s: %w", ds.Name, c.Name, ErrReservedColumn)
			}
		}
	}
	return nil
}

const (
	pingTimeout  = 10 * time.Second
	queryTimeout = 2 * time.Minute
)

// NewStore creates a Store for the given database connection. The password
// must already be resolved into conn.Password.
func NewStore(conn *domain.DatabaseConnection) (Store, error) {
	switch conn.Driver {
	case domain.DatabaseDriverSQLite:
		return newSQLiteStore(conn)
	case domain.DatabaseDriverMySQL:
		return newSQLStore(mysqlDialect, buildMySQLDSN(conn, conn.Password))
	case domain.DatabaseDriverPostgres:
		return newSQLStore(postgresDialect, buildPostgresDSN(conn, conn.Password))
	case domain.DatabaseDriverMongoDB:
		return newMongoStore(conn, conn.Password)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}
