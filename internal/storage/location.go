// Package storage resolves location strings into dataset libraries.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"dsjson/internal/dbclient"
	"dsjson/internal/domain"
	"dsjson/internal/secret"
)

// Library is a named collection of datasets with a schema catalog.
type Library interface {
	domain.TableStore
	domain.SchemaCatalog
	ListDatasets(ctx context.Context) ([]string, error)
}

var (
	_ Library = (*ParquetLibrary)(nil)
	_ Library = (dbclient.Store)(nil)
)

// Open resolves location into a Library:
//
//	*.db, *.sqlite, *.sqlite3, sqlite://path   SQLite file
//	postgres://, postgresql://                 Postgres database
//	mysql://                                   MySQL database
//	mongodb://, mongodb+srv://                 MongoDB database
//	parquet://dir, any other path              directory of parquet files
//
// Passwords missing from a URL are looked up in secrets.
func Open(ctx context.Context, location string, secrets secret.SecretStore) (Library, error) {
	logger := zerolog.Ctx(ctx)
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("empty location")
	}

	conn, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		dir := strings.TrimPrefix(location, "parquet://")
		logger.Debug().Str("dir", dir).Msg("opening parquet library")
		return NewParquetLibrary(dir), nil
	}

	if conn.Driver != domain.DatabaseDriverSQLite && conn.Password == "" && secrets != nil {
		pw, err := secrets.Get(secret.Key(string(conn.Driver), conn.Username, secretHost(conn)))
		if err != nil {
			return nil, fmt.Errorf("lookup password: %w", err)
		}
		conn.Password = string(pw)
	}
	logger.Debug().Str("driver", string(conn.Driver)).Str("host", redact(conn.Host)).Str("database", conn.Database).Msg("opening database library")

	store, err := dbclient.NewStore(conn)
	if err != nil {
		return nil, err
	}
	if err := store.TestConnection(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("connect %s %s: %w", conn.Driver, redact(conn.Host), err)
	}
	return store, nil
}

// ParseLocation returns the database connection a location names, or nil
// for a parquet directory.
func ParseLocation(location string) (*domain.DatabaseConnection, error) {
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "sqlite://"):
		return &domain.DatabaseConnection{Driver: domain.DatabaseDriverSQLite, Host: location[len("sqlite://"):]}, nil
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"):
		return &domain.DatabaseConnection{Driver: domain.DatabaseDriverSQLite, Host: location}, nil
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return parseMongo(location), nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return parseServerURL(location, domain.DatabaseDriverPostgres)
	case strings.HasPrefix(lower, "mysql://"):
		return parseServerURL(location, domain.DatabaseDriverMySQL)
	case strings.HasPrefix(lower, "parquet://"):
		return nil, nil
	case strings.Contains(lower, "://"):
		return nil, fmt.Errorf("unsupported location scheme: %s", location)
	default:
		return nil, nil
	}
}

func parseServerURL(location string, driver domain.DatabaseDriver) (*domain.DatabaseConnection, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse %s location: %w", driver, err)
	}
	conn := &domain.DatabaseConnection{
		Driver:   driver,
		Host:     u.Hostname(),
		Database: strings.TrimPrefix(u.Path, "/"),
	}
	if p := u.Port(); p != "" {
		if conn.Port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid port %q", p)
		}
	}
	if u.User != nil {
		conn.Username = u.User.Username()
		conn.Password, _ = u.User.Password()
	}
	for k, vs := range u.Query() {
		if len(vs) == 0 {
			continue
		}
		if k == "sslmode" {
			conn.SSLMode = vs[0]
			continue
		}
		if conn.Params == nil {
			conn.Params = map[string]string{}
		}
		conn.Params[k] = vs[0]
	}
	return conn, nil
}

// parseMongo keeps the URI whole; only user and database are pulled out.
// Atlas URIs may hold a <password> placeholder that url.Parse rejects.
func parseMongo(location string) *domain.DatabaseConnection {
	conn := &domain.DatabaseConnection{Driver: domain.DatabaseDriverMongoDB, Host: location}
	if u, err := url.Parse(location); err == nil {
		conn.Database = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			conn.Username = u.User.Username()
			if pw, ok := u.User.Password(); ok {
				conn.Password = pw
			}
		}
	}
	return conn
}

// secretHost is the bare host a password is filed under.
func secretHost(conn *domain.DatabaseConnection) string {
	if conn.Driver == domain.DatabaseDriverMongoDB {
		if u, err := url.Parse(conn.Host); err == nil {
			return u.Hostname()
		}
	}
	return conn.Host
}

func redact(host string) string {
	u, err := url.Parse(host)
	if err != nil || u.User == nil {
		return host
	}
	return u.Redacted()
}
