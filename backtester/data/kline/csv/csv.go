package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/common/convert"
)

var (
	errNoColumns = errors.New("csv row has too few columns")
	// DefaultDateFormat is used when no layout is configured
	DefaultDateFormat = time.DateTime
)

// Config holds the layout of a csv bar file
type Config struct {
	DateFormat string
	Location   *time.Location
	// HasHeader skips the first row when set
	HasHeader bool
}

// Source reads bars from csv rows of
// datetime,open,high,low,close,volume[,openinterest]
type Source struct {
	reader  *csv.Reader
	closer  io.Closer
	cfg     Config
	started bool
	row     int
}

// LoadData opens the file at path as a bar source
func LoadData(path string, cfg Config) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open csv file %q: %w", path, err)
	}
	s := NewSource(f, cfg)
	s.closer = f
	return s, nil
}

// NewSource returns a bar source reading from r
func NewSource(r io.Reader, cfg Config) *Source {
	if cfg.DateFormat == "" {
		cfg.DateFormat = DefaultDateFormat
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return &Source{reader: reader, cfg: cfg}
}

// Next parses the next row. The file is closed once io.EOF is reached
func (s *Source) Next() (data.Bar, error) {
	if !s.started {
		s.started = true
		if s.cfg.HasHeader {
			if _, err := s.read(); err != nil {
				return data.Bar{}, err
			}
		}
	}
	for {
		row, err := s.read()
		if err != nil {
			return data.Bar{}, err
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		return s.parse(row)
	}
}

// Close releases the underlying file if there is one
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

func (s *Source) read() ([]string, error) {
	row, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		if cErr := s.Close(); cErr != nil {
			return nil, cErr
		}
		return nil, io.EOF
	}
	s.row++
	return row, err
}

func (s *Source) parse(row []string) (data.Bar, error) {
	if len(row) < 6 {
		return data.Bar{}, fmt.Errorf("row %d: %w, got %d", s.row, errNoColumns, len(row))
	}
	ts, err := convert.TimeFromString(s.cfg.DateFormat, strings.TrimSpace(row[0]), s.cfg.Location)
	if err != nil {
		return data.Bar{}, fmt.Errorf("row %d: %w", s.row, err)
	}
	b := data.Bar{Time: ts}
	fields := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low},
		{"close", &b.Close}, {"volume", &b.Volume}, {"openinterest", &b.OpenInterest},
	}
	for i := range fields {
		if i+1 >= len(row) {
			break
		}
		*fields[i].dst, err = convert.DecimalFromString(fields[i].name, strings.TrimSpace(row[i+1]))
		if err != nil {
			return data.Bar{}, fmt.Errorf("row %d: %w", s.row, err)
		}
	}
	return b, nil
}
