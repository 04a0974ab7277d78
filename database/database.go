package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thrasher-corp/barsim/log"
)

// SetConfig safely sets the database instance's config
func (i *Instance) SetConfig(cfg *Config) error {
	if i == nil {
		return errNilInstance
	}
	if cfg == nil {
		return errNilConfig
	}
	i.m.Lock()
	i.config = cfg
	i.m.Unlock()
	return nil
}

// SetSQLiteConnection safely sets the instance's connection to use SQLite
func (i *Instance) SetSQLiteConnection(con *sql.DB) error {
	if i == nil {
		return errNilInstance
	}
	if con == nil {
		return errNilSQL
	}
	i.m.Lock()
	defer i.m.Unlock()
	i.SQL = con
	i.SQL.SetMaxOpenConns(1)
	i.connected = true
	return nil
}

// SetPostgresConnection safely sets the instance's connection to use
// Postgres
func (i *Instance) SetPostgresConnection(con *sql.DB) error {
	if i == nil {
		return errNilInstance
	}
	if con == nil {
		return errNilSQL
	}
	if err := con.Ping(); err != nil {
		return err
	}
	i.m.Lock()
	defer i.m.Unlock()
	i.SQL = con
	i.SQL.SetMaxOpenConns(2)
	i.SQL.SetMaxIdleConns(1)
	i.SQL.SetConnMaxLifetime(time.Hour)
	i.connected = true
	return nil
}

// CloseConnection safely disconnects the instance
func (i *Instance) CloseConnection() error {
	if i == nil {
		return errNilInstance
	}
	i.m.Lock()
	defer i.m.Unlock()
	if i.SQL == nil {
		return errNilSQL
	}
	i.connected = false
	return i.SQL.Close()
}

// IsConnected safely checks the SQL connection status
func (i *Instance) IsConnected() bool {
	if i == nil {
		return false
	}
	i.m.RLock()
	defer i.m.RUnlock()
	return i.connected
}

// GetConfig safely returns the config
func (i *Instance) GetConfig() *Config {
	i.m.RLock()
	defer i.m.RUnlock()
	return i.config
}

// Ping pings the database
func (i *Instance) Ping() error {
	if i == nil {
		return errNilInstance
	}
	i.m.RLock()
	defer i.m.RUnlock()
	if i.SQL == nil {
		return errNilSQL
	}
	return i.SQL.Ping()
}

// GetSQL returns the connection if connected
func (i *Instance) GetSQL() (*sql.DB, error) {
	if i == nil {
		return nil, errNilInstance
	}
	if !i.IsConnected() {
		return nil, ErrDatabaseSupportDisabled
	}
	i.m.RLock()
	defer i.m.RUnlock()
	return i.SQL, nil
}

// Dialect returns the configured driver name
func (i *Instance) Dialect() string {
	cfg := i.GetConfig()
	if cfg == nil {
		return ""
	}
	return strings.ToLower(cfg.Driver)
}

// Rebind converts ? placeholders into the dialect's placeholder style
func (i *Instance) Rebind(query string) string {
	if i.Dialect() != DBPostgreSQL {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// Verbosef logs SQL activity when the config is verbose
func (i *Instance) Verbosef(format string, v ...any) {
	if cfg := i.GetConfig(); cfg != nil && cfg.Verbose {
		log.Debugf(Logger, format, v...)
	}
}

// Validate checks the config holds enough to connect
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch strings.ToLower(c.Driver) {
	case DBSQLite3, DBPostgreSQL:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
	if c.Database == "" {
		return ErrNoDatabaseProvided
	}
	return nil
}
