package candle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"github.com/thrasher-corp/barsim/database"
	"github.com/thrasher-corp/barsim/log"
)

const (
	insertQuery = `INSERT INTO candle
		(id, instrument, interval, timestamp, open, high, low, close, volume, open_interest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	seriesQuery = `SELECT timestamp, open, high, low, close, volume, open_interest
		FROM candle WHERE instrument = ? AND interval = ? AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp`
	deleteQuery = `DELETE FROM candle WHERE instrument = ? AND interval = ? AND timestamp BETWEEN ? AND ?`
)

// Series returns candle data ordered by timestamp
func Series(ctx context.Context, db *database.Instance, instrument, interval string, start, end time.Time) (Item, error) {
	out := Item{Instrument: strings.ToUpper(instrument), Interval: interval}
	if instrument == "" || interval == "" || start.IsZero() || end.IsZero() {
		return out, errInvalidInput
	}
	con, err := db.GetSQL()
	if err != nil {
		return out, err
	}
	q := db.Rebind(seriesQuery)
	db.Verbosef("SQL: %s", q)
	rows, err := con.QueryContext(ctx, q, out.Instrument, interval, start.UTC().UnixNano(), end.UTC().UnixNano())
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			ts int64
			c  Candle
		)
		if err = rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.OpenInterest); err != nil {
			return out, err
		}
		c.Timestamp = time.Unix(0, ts).UTC()
		out.Candles = append(out.Candles, c)
	}
	if err = rows.Err(); err != nil {
		return out, err
	}
	if len(out.Candles) == 0 {
		return out, fmt.Errorf("%w: %s %s %v-%v", ErrNoCandleDataFound, instrument, interval, start, end)
	}
	return out, nil
}

// Insert series of candles, replacing existing rows in the same range. The
// delete and inserts share one transaction
func Insert(ctx context.Context, db *database.Instance, in *Item) (uint64, error) {
	if in == nil || len(in.Candles) == 0 {
		return 0, errNoCandleData
	}
	con, err := db.GetSQL()
	if err != nil {
		return 0, err
	}
	tx, err := con.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	totalInserted, err := replace(ctx, db, tx, in)
	if err != nil {
		if errRB := tx.Rollback(); errRB != nil {
			log.Errorln(database.Logger, errRB)
		}
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return totalInserted, nil
}

func replace(ctx context.Context, db *database.Instance, tx *sql.Tx, in *Item) (uint64, error) {
	if _, err := deleteCandles(ctx, db, tx, in); err != nil {
		return 0, err
	}
	q := db.Rebind(insertQuery)
	db.Verbosef("SQL: %s", q)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	var totalInserted uint64
	for x := range in.Candles {
		tempUUID, err := uuid.NewV4()
		if err != nil {
			return 0, err
		}
		c := &in.Candles[x]
		_, err = stmt.ExecContext(ctx,
			tempUUID.String(),
			strings.ToUpper(in.Instrument),
			in.Interval,
			c.Timestamp.UTC().UnixNano(),
			c.Open.String(),
			c.High.String(),
			c.Low.String(),
			c.Close.String(),
			c.Volume.String(),
			c.OpenInterest.String())
		if err != nil {
			return 0, err
		}
		totalInserted++
	}
	return totalInserted, nil
}

// DeleteCandles will delete all existing candles in the item's time range
func DeleteCandles(ctx context.Context, db *database.Instance, in *Item) (int64, error) {
	if in == nil || len(in.Candles) == 0 {
		return 0, errNoCandleData
	}
	con, err := db.GetSQL()
	if err != nil {
		return 0, err
	}
	return deleteCandles(ctx, db, con, in)
}

func deleteCandles(ctx context.Context, db *database.Instance, ex execer, in *Item) (int64, error) {
	q := db.Rebind(deleteQuery)
	db.Verbosef("SQL: %s", q)
	res, err := ex.ExecContext(ctx, q,
		strings.ToUpper(in.Instrument),
		in.Interval,
		in.Candles[0].Timestamp.UTC().UnixNano(),
		in.Candles[len(in.Candles)-1].Timestamp.UTC().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
