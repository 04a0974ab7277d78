package database

import (
	"context"
	"fmt"
	"time"

	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/backtester/timeframe"
	gctdatabase "github.com/thrasher-corp/barsim/database"
	"github.com/thrasher-corp/barsim/database/repository/candle"
)

// LoadData retrieves stored candles for the instrument and interval and
// returns them as a bar source
func LoadData(ctx context.Context, db *gctdatabase.Instance, instrument string, interval timeframe.Interval, start, end time.Time) (*data.SliceSource, error) {
	if err := interval.Validate(); err != nil {
		return nil, err
	}
	item, err := candle.Series(ctx, db, instrument, interval.String(), start, end)
	if err != nil {
		return nil, fmt.Errorf("could not load %s %s from database: %w", instrument, interval, err)
	}
	bars := make([]data.Bar, len(item.Candles))
	for i := range item.Candles {
		c := &item.Candles[i]
		bars[i] = data.Bar{
			Time:         c.Timestamp,
			Open:         c.Open,
			High:         c.High,
			Low:          c.Low,
			Close:        c.Close,
			Volume:       c.Volume,
			OpenInterest: c.OpenInterest,
		}
	}
	return data.NewSliceSource(bars), nil
}

// SaveData stores bars so later runs can source them from the database
func SaveData(ctx context.Context, db *gctdatabase.Instance, instrument string, interval timeframe.Interval, bars []data.Bar) (uint64, error) {
	if err := interval.Validate(); err != nil {
		return 0, err
	}
	item := &candle.Item{
		Instrument: instrument,
		Interval:   interval.String(),
		Candles:    make([]candle.Candle, len(bars)),
	}
	for i := range bars {
		item.Candles[i] = candle.Candle{
			Timestamp:    bars[i].Time,
			Open:         bars[i].Open,
			High:         bars[i].High,
			Low:          bars[i].Low,
			Close:        bars[i].Close,
			Volume:       bars[i].Volume,
			OpenInterest: bars[i].OpenInterest,
		}
	}
	return candle.Insert(ctx, db, item)
}
