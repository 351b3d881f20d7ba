// Package esc applies mixer output to the six speed controllers, gated by
// the arming state.
package esc

// Driver commands one electronic speed controller.
//
// SetThrottle takes the 0-100 control scale. Failsafe must put the ESC
// into its signal-loss behavior (motor stopped) and is the only output
// ever issued while disarmed.
type Driver interface {
	SetThrottle(pct float64) error
	Failsafe() error
	Close() error
}

// Noop discards all output. Used on the bench and in tests when no PWM
// hardware is present.
type Noop struct{}

func (Noop) SetThrottle(pct float64) error { return nil }
func (Noop) Failsafe() error               { return nil }
func (Noop) Close() error                  { return nil }
