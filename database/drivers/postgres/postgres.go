package postgres

import (
	"database/sql"
	"fmt"

	// import postgres driver
	_ "github.com/lib/pq"

	"github.com/thrasher-corp/barsim/database"
)

// DSN builds the lib/pq connection string
func DSN(c *database.ConnectionDetails) string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.Username,
		c.Password,
		c.Database,
		sslMode)
}

// Connect opens and pings a postgres connection
func Connect(cfg *database.Config) (*database.Instance, error) {
	if cfg == nil || cfg.Database == "" {
		return nil, database.ErrNoDatabaseProvided
	}
	dbConn, err := sql.Open(database.DBPostgreSQL, DSN(&cfg.ConnectionDetails))
	if err != nil {
		return nil, err
	}
	inst := &database.Instance{}
	if err = inst.SetConfig(cfg); err != nil {
		return nil, err
	}
	if err = inst.SetPostgresConnection(dbConn); err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	return inst, nil
}
