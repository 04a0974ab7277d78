package database

import (
	"fmt"
	"path/filepath"

	"github.com/thrasher-corp/goose"
)

// MigrationDir is the default goose migration folder, relative to the
// backtester directory
var MigrationDir = filepath.Join("..", "database", "migrations")

// Migrate runs a goose command such as up, down or status against the
// connection using the migrations held in dir
func (i *Instance) Migrate(command, dir, args string) error {
	db, err := i.GetSQL()
	if err != nil {
		return err
	}
	dialect := i.Dialect()
	if dialect != DBSQLite3 && dialect != DBPostgreSQL {
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, dialect)
	}
	i.Verbosef("goose %s %s using %s", command, args, dir)
	return goose.Run(command, db, dialect, dir, args)
}
