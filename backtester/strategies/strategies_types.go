package strategies

import (
	"github.com/thrasher-corp/barsim/backtester/engine"
)

// Handler defines all functions required to run strategies against data
// events
type Handler interface {
	engine.Strategy
	Description() string
	SetCustomSettings(map[string]any) error
	SetDefaults()
	SetFeed(string)
}
