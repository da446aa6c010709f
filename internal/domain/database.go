package domain

// DatabaseDriver represents the type of database engine behind a location.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverMongoDB  DatabaseDriver = "mongodb"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

// DatabaseConnection holds what is needed to reach a database table store.
// The password is resolved separately through a secret store unless the
// location URL carries one.
type DatabaseConnection struct {
	Driver   DatabaseDriver    `json:"driver"`
	Host     string            `json:"host"`     // hostname, full URI (mongodb+srv) or file path (sqlite)
	Port     int               `json:"port"`     // 0 for sqlite
	Database string            `json:"database"` // db name or empty for sqlite
	Username string            `json:"username"`
	Password string            `json:"-"`
	SSLMode  string            `json:"sslMode"`
	Params   map[string]string `json:"params,omitempty"` // driver-specific query options
}
