package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thrasher-corp/barsim/database"
)

func TestDSN(t *testing.T) {
	t.Parallel()
	got := DSN(&database.ConnectionDetails{
		Host:     "localhost",
		Port:     5432,
		Username: "bars",
		Password: "pw",
		Database: "barsim",
	})
	assert.Equal(t, "host=localhost port=5432 user=bars password=pw dbname=barsim sslmode=disable", got)
}

func TestConnectNoDatabase(t *testing.T) {
	t.Parallel()
	_, err := Connect(&database.Config{})
	assert.ErrorIs(t, err, database.ErrNoDatabaseProvided)
}
