package database

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/thrasher-corp/barsim/log"
)

// Supported driver names
const (
	DBSQLite3    = "sqlite3"
	DBPostgreSQL = "postgres"
)

var (
	// ErrDatabaseSupportDisabled is returned when no connection is available
	ErrDatabaseSupportDisabled = errors.New("database support disabled")
	// ErrNoDatabaseProvided is returned when no database name is configured
	ErrNoDatabaseProvided = errors.New("no database provided")
	// ErrUnsupportedDriver is returned for an unknown driver name
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	errNilInstance = errors.New("database instance is nil")
	errNilConfig   = errors.New("database config is nil")
	errNilSQL      = errors.New("database SQL connection is nil")

	// Logger is the database sub logger
	Logger = log.MustNewSubLogger("DATABASE")
)

// Config holds database connection settings
type Config struct {
	Enabled bool   `json:"enabled"`
	Verbose bool   `json:"verbose"`
	Driver  string `json:"driver"`
	ConnectionDetails
}

// ConnectionDetails holds DSN related values
type ConnectionDetails struct {
	Host     string `json:"host"`
	Port     uint16 `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

// Instance holds a database connection and its config
type Instance struct {
	SQL       *sql.DB
	DataPath  string
	config    *Config
	connected bool
	m         sync.RWMutex
}
