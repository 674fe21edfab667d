package gesture

import "time"

// Config holds the timing and movement thresholds of the classifier.
type Config struct {
	// HoldDelay is the minimum press duration before a drag may start.
	HoldDelay time.Duration `mapstructure:"hold_delay" yaml:"hold_delay"`
	// MoveThreshold is the displacement in pixels that starts a drag once
	// HoldDelay has elapsed.
	MoveThreshold float64 `mapstructure:"move_threshold" yaml:"move_threshold"`
	// DoubleClickWindow is the longest gap between two presses on the same
	// card that still counts as a double-click.
	DoubleClickWindow time.Duration `mapstructure:"double_click_window" yaml:"double_click_window"`
	// DoubleClickDebounce drops a second double-click arriving this soon
	// after the previous one.
	DoubleClickDebounce time.Duration `mapstructure:"double_click_debounce" yaml:"double_click_debounce"`
	// DragSuppression blocks arming a drag right after a double-click.
	DragSuppression time.Duration `mapstructure:"drag_suppression" yaml:"drag_suppression"`
}

// DefaultConfig returns the tuned default thresholds.
func DefaultConfig() Config {
	return Config{
		HoldDelay:           150 * time.Millisecond,
		MoveThreshold:       5,
		DoubleClickWindow:   500 * time.Millisecond,
		DoubleClickDebounce: 100 * time.Millisecond,
		DragSuppression:     300 * time.Millisecond,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HoldDelay <= 0 {
		c.HoldDelay = d.HoldDelay
	}
	if c.MoveThreshold <= 0 {
		c.MoveThreshold = d.MoveThreshold
	}
	if c.DoubleClickWindow <= 0 {
		c.DoubleClickWindow = d.DoubleClickWindow
	}
	if c.DoubleClickDebounce <= 0 {
		c.DoubleClickDebounce = d.DoubleClickDebounce
	}
	if c.DragSuppression <= 0 {
		c.DragSuppression = d.DragSuppression
	}
	return c
}
