package strategies

import (
	"fmt"
	"strings"

	"github.com/thrasher-corp/barsim/backtester/strategies/base"
	"github.com/thrasher-corp/barsim/backtester/strategies/buyandhold"
	"github.com/thrasher-corp/barsim/backtester/strategies/dollarcostaverage"
	"github.com/thrasher-corp/barsim/backtester/strategies/smacross"
)

// LoadStrategyByName returns the strategy by its name with default
// settings applied
func LoadStrategyByName(name string) (Handler, error) {
	strats := GetStrategies()
	for i := range strats {
		if !strings.EqualFold(name, strats[i].Name()) {
			continue
		}
		strats[i].SetDefaults()
		return strats[i], nil
	}
	return nil, fmt.Errorf("strategy '%v' %w", name, base.ErrStrategyNotFound)
}

// GetStrategies returns a new instance of every strategy
func GetStrategies() []Handler {
	return []Handler{
		new(buyandhold.Strategy),
		new(dollarcostaverage.Strategy),
		new(smacross.Strategy),
	}
}
