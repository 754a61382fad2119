package lease

import "time"

// Default windows.
const (
	DefaultLeaseWindow     = 5 * time.Minute
	DefaultRetentionWindow = 7 * 24 * time.Hour
)

// Params defines the time windows that govern claims and retention.
type Params struct {
	// LeaseWindow is how long an assignment protects a task from other moderators.
	LeaseWindow time.Duration
	// RetentionWindow is how long resolved tasks are kept before the sweeper deletes them.
	RetentionWindow time.Duration
}

// ParamsConfig allows overriding the default parameters. Zero values keep the defaults.
type ParamsConfig struct {
	LeaseWindow     time.Duration
	RetentionWindow time.Duration
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		LeaseWindow:     DefaultLeaseWindow,
		RetentionWindow: DefaultRetentionWindow,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.LeaseWindow > 0 {
		params.LeaseWindow = config.LeaseWindow
	}
	if config.RetentionWindow > 0 {
		params.RetentionWindow = config.RetentionWindow
	}

	return params
}
