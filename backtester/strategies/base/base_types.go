package base

import "errors"

var (
	// ErrCustomSettingsUnsupported used when custom settings are found in the config when they shouldn't be
	ErrCustomSettingsUnsupported = errors.New("custom settings not supported")
	// ErrStrategyNotFound used when the configured strategy does not exist
	ErrStrategyNotFound = errors.New("not found. Please ensure the strategy name is spelled properly in your config")
	// ErrInvalidCustomSettings used when bad custom settings are found in the config
	ErrInvalidCustomSettings = errors.New("invalid custom settings in config")
	// ErrNoFeeds used when a strategy is run without any data feed
	ErrNoFeeds = errors.New("strategy requires at least one data feed")
)

// Strategy is the base implementation shared by strategies. It provides
// no-op callbacks and feed helpers
type Strategy struct {
	feed string
}
