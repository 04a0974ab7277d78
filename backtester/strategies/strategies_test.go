package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/barsim/backtester/strategies/base"
	"github.com/thrasher-corp/barsim/backtester/strategies/smacross"
)

func TestLoadStrategyByName(t *testing.T) {
	t.Parallel()
	_, err := LoadStrategyByName("test")
	assert.ErrorIs(t, err, base.ErrStrategyNotFound)

	s, err := LoadStrategyByName("SMACross")
	require.NoError(t, err)
	assert.Equal(t, smacross.Name, s.Name())
	assert.NotEmpty(t, s.Description())
}

func TestGetStrategies(t *testing.T) {
	t.Parallel()
	names := make(map[string]bool)
	for _, s := range GetStrategies() {
		assert.False(t, names[s.Name()], "duplicate strategy name")
		names[s.Name()] = true
		s.SetDefaults()
		assert.ErrorIs(t, s.SetCustomSettings(map[string]any{"unknown": 1.0}), base.ErrInvalidCustomSettings)
	}
	assert.Len(t, names, 3)
}
