// database/connection.go
package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/nclcancer/survival/config"
	"github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	// sqlx does not know these driver names; both take "?" placeholders.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
	sqlx.BindDriver("snowflake", sqlx.QUESTION)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Store is a connection to the destination warehouse.
type Store struct {
	db        *sqlx.DB
	driver    string
	database  string
	schema    string
	batchSize int
	logTable  string
	logger    *log.Logger
}

// Connect opens and pings the configured destination.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *log.Logger) (*Store, error) {
	dsn, err := DataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if cfg.Driver == "sqlite" {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 500
	}
	logger.Info("Database: connected", "driver", cfg.Driver, "database", cfg.Database, "schema", cfg.Schema)
	return &Store{
		db:        db,
		driver:    cfg.Driver,
		database:  cfg.Database,
		schema:    cfg.Schema,
		batchSize: batch,
		logTable:  cfg.LoadLogTable,
		logger:    logger,
	}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.logger.Debug("Database: connection closed")
	return s.db.Close()
}

// DataSourceName builds the driver specific DSN for cfg.
func DataSourceName(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case "mysql":
		m := mysql.NewConfig()
		m.User = cfg.User
		m.Passwd = cfg.Password
		m.Net = "tcp"
		m.Addr = hostPort(cfg.Host, cfg.Port, 3306)
		m.DBName = cfg.Database
		m.ParseTime = true
		return m.FormatDSN(), nil

	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			Host:     hostPort(cfg.Host, cfg.Port, 5432),
			Path:     "/" + cfg.Database,
			RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
		}
		if cfg.User != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		return u.String(), nil

	case "snowflake":
		sf := &gosnowflake.Config{
			Account:   cfg.Account,
			User:      cfg.User,
			Password:  cfg.Password,
			Database:  cfg.Database,
			Schema:    cfg.Schema,
			Warehouse: cfg.Warehouse,
			Role:      cfg.Role,
			Host:      cfg.Host,
			Port:      cfg.Port,
		}
		switch strings.ToLower(cfg.Authenticator) {
		case "", "snowflake":
			sf.Authenticator = gosnowflake.AuthTypeSnowflake
		case "externalbrowser":
			sf.Authenticator = gosnowflake.AuthTypeExternalBrowser
		case "oauth":
			sf.Authenticator = gosnowflake.AuthTypeOAuth
			sf.Token = cfg.Password
			sf.Password = ""
		default:
			return "", fmt.Errorf("unsupported snowflake authenticator %q", cfg.Authenticator)
		}
		dsn, err := gosnowflake.DSN(sf)
		if err != nil {
			return "", fmt.Errorf("failed to build snowflake DSN: %w", err)
		}
		return dsn, nil

	case "sqlite":
		if cfg.Database == "" {
			return "", fmt.Errorf("sqlite needs DATABASE set to a file path")
		}
		return cfg.Database, nil

	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func hostPort(host string, port, def int) string {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = def
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// QualifiedName returns table qualified the way the driver expects:
// DATABASE.SCHEMA.TABLE on snowflake, SCHEMA.TABLE on mysql and postgres
// when a schema is set, and the bare table otherwise.
func (s *Store) QualifiedName(table string) (string, error) {
	parts := []string{table}
	switch s.driver {
	case "snowflake":
		parts = []string{s.database, s.schema, table}
	case "mysql", "postgres":
		parts = []string{s.schema, table}
	}

	var out []string
	for i, p := range parts {
		if p == "" && i < len(parts)-1 {
			continue
		}
		if !identifierPattern.MatchString(p) {
			return "", fmt.Errorf("invalid identifier %q", p)
		}
		out = append(out, p)
	}
	return strings.Join(out, "."), nil
}
