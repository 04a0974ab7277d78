package sqlite

import (
	"database/sql"
	"path/filepath"

	// import sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/thrasher-corp/barsim/database"
)

// Connect opens a connection to the sqlite database file held in dataPath
func Connect(cfg *database.Config, dataPath string) (*database.Instance, error) {
	if cfg == nil || cfg.Database == "" {
		return nil, database.ErrNoDatabaseProvided
	}
	databaseFullLocation := cfg.Database
	if cfg.Database != ":memory:" {
		databaseFullLocation = filepath.Join(dataPath, cfg.Database)
	}
	dbConn, err := sql.Open(database.DBSQLite3, databaseFullLocation)
	if err != nil {
		return nil, err
	}
	inst := &database.Instance{DataPath: dataPath}
	if err = inst.SetConfig(cfg); err != nil {
		return nil, err
	}
	if err = inst.SetSQLiteConnection(dbConn); err != nil {
		return nil, err
	}
	return inst, nil
}
