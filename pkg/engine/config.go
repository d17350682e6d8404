package engine

import (
	"errors"
	"time"
)

// DefaultInterval is the delay between the end of one poll step and the
// start of the next.
const DefaultInterval = 2000 * time.Millisecond

// Config holds the coordinator settings.
type Config struct {
	Interval     time.Duration
	InitialDelay time.Duration
	// Query overrides the bound connection's count query when non-empty.
	Query  string
	Policy BindPolicy
}

// DefaultConfig returns a config with a 2s interval, no initial delay and
// the first-wins policy.
func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		Policy:   FirstWins,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.InitialDelay < 0 {
		return errors.New("initial delay must not be negative")
	}
	return nil
}
