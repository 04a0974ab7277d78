package writer

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/barsim/backtester/broker"
	"github.com/thrasher-corp/barsim/backtester/order"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSetupWriter(t *testing.T) {
	t.Parallel()
	_, err := SetupWriter("")
	assert.ErrorIs(t, err, errOutputDirUnset)

	w, err := SetupWriter(t.TempDir())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, w.RunID())
	require.NoError(t, w.Close())
	for _, name := range []string{ordersFile, tradesFile, valuesFile} {
		assert.Len(t, readAll(t, w.Path(name)), 1, "header only")
	}
	logs, err := os.ReadFile(w.LogPath())
	require.NoError(t, err)
	assert.Contains(t, string(logs), w.RunID().String())
}

func TestWrite(t *testing.T) {
	t.Parallel()
	w, err := SetupWriter(t.TempDir())
	require.NoError(t, err)
	tt := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, w.OnNotification(broker.Notification{
		Kind: broker.OrderNotification,
		Time: tt,
		Order: order.Order{
			ID:         1,
			Instrument: "spy",
			Side:       order.Buy,
			Type:       order.Market,
			Status:     order.Completed,
			Size:       decimal.NewFromInt(5),
		},
	}))
	require.NoError(t, w.OnNotification(broker.Notification{
		Kind:  broker.TradeNotification,
		Time:  tt,
		Trade: broker.Trade{Ref: 1, Instrument: "spy", Status: broker.TradeOpen, Size: decimal.NewFromInt(5), IsLong: true},
	}))
	require.NoError(t, w.OnValue(tt, decimal.NewFromInt(900), decimal.NewFromInt(1000)))

	w.DeActivate()
	require.NoError(t, w.OnValue(tt.Add(time.Hour), decimal.Zero, decimal.Zero))
	require.NoError(t, w.Close())

	orders := readAll(t, w.Path(ordersFile))
	require.Len(t, orders, 2)
	assert.Equal(t, []string{"2024-01-02T00:00:00Z", "1", "spy", "BUY", "MARKET", "COMPLETED", "5"}, orders[1][:7])

	trades := readAll(t, w.Path(tradesFile))
	require.Len(t, trades, 2)
	assert.Equal(t, "OPEN", trades[1][4])
	assert.Equal(t, "true", trades[1][5])

	values := readAll(t, w.Path(valuesFile))
	require.Len(t, values, 2)
	assert.Equal(t, []string{"2024-01-02T00:00:00Z", "900", "1000"}, values[1])
}

func TestWriteAfterClose(t *testing.T) {
	t.Parallel()
	w, err := SetupWriter(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.OnValue(time.Now(), decimal.Zero, decimal.Zero), errWriterClosed)
	assert.ErrorIs(t, w.OnNotification(broker.Notification{}), errWriterClosed)
}
