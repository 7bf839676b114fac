package orchestrator

import (
	"time"

	"github.com/dusk-indust/memoforge/internal/catalog"
)

// DefaultRetries is the number of extra attempts a failing section gets.
const DefaultRetries = 2

// Config holds the run policy of a Memo.
type Config struct {
	// Retries is the number of extra attempts after the first. Negative
	// values are treated as zero.
	Retries int

	// RetryBackoff is the constant wait between attempts.
	RetryBackoff time.Duration

	// EventBuffer is the progress channel capacity.
	EventBuffer int

	// Placeholder is the error paragraph written for a failed section. It
	// takes the error message as its only argument.
	Placeholder string
}

// DefaultConfig returns the default run policy.
func DefaultConfig() Config {
	return Config{
		Retries:     DefaultRetries,
		EventBuffer: DefaultEventBuffer,
		Placeholder: catalog.DefaultErrorPlaceholder,
	}
}

func (c Config) attempts() int {
	if c.Retries < 0 {
		return 1
	}
	return 1 + c.Retries
}

func (c Config) placeholder() string {
	if c.Placeholder == "" {
		return catalog.DefaultErrorPlaceholder
	}
	return c.Placeholder
}
