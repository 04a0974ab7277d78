package convert

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoolPtr(t *testing.T) {
	t.Parallel()
	y := BoolPtr(true)
	assert.True(t, *y)
	n := BoolPtr(false)
	assert.False(t, *n)
}

func TestDecimalFromString(t *testing.T) {
	t.Parallel()
	d, err := DecimalFromString("open", "10.5")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromFloat(10.5)))
	_, err = DecimalFromString("open", "ten")
	assert.ErrorContains(t, err, "open")
}

func TestTimeFromString(t *testing.T) {
	t.Parallel()
	tt, err := TimeFromString(time.DateOnly, "2024-01-02", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), tt)
	tt, err = TimeFromString(time.DateOnly, "1704153600", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), tt)
	_, err = TimeFromString(time.DateOnly, "tomorrow", time.UTC)
	assert.Error(t, err)
}
