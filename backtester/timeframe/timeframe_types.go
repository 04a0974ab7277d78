package timeframe

import (
	"errors"
	"time"
)

// Unit is the base time unit of an Interval
type Unit uint8

// Supported units, ordered from finest to coarsest
const (
	Seconds Unit = iota + 1
	Minutes
	Days
	Weeks
	Months
	Years
)

var (
	// ErrUnsupportedUnit is returned for an unknown unit
	ErrUnsupportedUnit = errors.New("unsupported time frame unit")
	// ErrInvalidCompression is returned when compression is less than one
	ErrInvalidCompression = errors.New("compression must be at least 1")
)

// weekAnchor is a Monday, week indexes are counted from it
var weekAnchor = time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC)

// Interval is a time frame unit with a compression factor, eg 5 Minutes
type Interval struct {
	Unit        Unit `json:"unit"`
	Compression int  `json:"compression"`
}
