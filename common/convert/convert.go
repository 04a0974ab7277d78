package convert

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// BoolPtr takes in boolean condition and returns pointer version of it
func BoolPtr(condition bool) *bool {
	b := condition
	return &b
}

// DecimalFromString parses a decimal, reporting the offending field on failure
func DecimalFromString(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not convert %s value %q: %w", field, raw, err)
	}
	return d, nil
}

// TimeFromString parses a time using the layout, falling back to unix
// seconds when the value is an integer
func TimeFromString(layout, raw string, loc *time.Location) (time.Time, error) {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).In(loc), nil
	}
	return time.ParseInLocation(layout, raw, loc)
}
