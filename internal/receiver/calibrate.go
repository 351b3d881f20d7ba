package receiver

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	// ErrCalibrationActive means a calibration pass is already running.
	ErrCalibrationActive = errors.New("receiver: calibration already running")
	// ErrCalibrationSpent means the one-shot pass has completed and must
	// be re-armed before it can run again.
	ErrCalibrationSpent = errors.New("receiver: calibration already completed, re-arm first")
)

type CalibratorConfig struct {
	// Duration is how long the operator gets to sweep sticks and
	// switches to their extremes.
	Duration time.Duration
	// Interval is the sampling tick inside that window.
	Interval time.Duration
}

// Calibrator learns per-channel pulse-width limits by watching the source
// while the operator exercises the sticks. One-shot: Run blocks its caller
// for the whole window, then disarms itself so it cannot be re-entered
// until Arm is called again.
type Calibrator struct {
	cfg    CalibratorConfig
	src    Source
	limits *LimitStore

	mu      sync.Mutex
	armed   bool
	running bool
}

func NewCalibrator(cfg CalibratorConfig, src Source, limits *LimitStore) *Calibrator {
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	return &Calibrator{cfg: cfg, src: src, limits: limits, armed: true}
}

// Arm allows another calibration pass.
func (c *Calibrator) Arm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = true
}

// Run performs one calibration pass, blocking until the window elapses or
// ctx is canceled. Limits keep whatever extremes were seen either way;
// with no operator input they stay at the sentinel range, which Normalize
// treats as neutral.
func (c *Calibrator) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrCalibrationActive
	}
	if !c.armed {
		c.mu.Unlock()
		return ErrCalibrationSpent
	}
	c.armed = false
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	log.Printf("receiver: calibration beginning, move sticks & switches to extremities")
	c.limits.BeginCalibration()

	t := time.NewTicker(c.cfg.Interval)
	defer t.Stop()
	deadline := time.NewTimer(c.cfg.Duration)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			c.logResults()
			return nil
		case <-t.C:
			for controller := 0; controller < NumControllers; controller++ {
				for channel := 0; channel < NumChannels; channel++ {
					c.limits.Observe(controller, channel, c.src.Pulsewidth(controller, channel))
				}
			}
		}
	}
}

func (c *Calibrator) logResults() {
	for controller := 0; controller < NumControllers; controller++ {
		log.Printf("receiver: controller %d calibrated:", controller+1)
		for channel := 0; channel < NumChannels; channel++ {
			lim := c.limits.Get(controller, channel)
			log.Printf("receiver:   channel %d: min %.0fus max %.0fus range %.0fus",
				channel+1, lim.Min, lim.Max, lim.Max-lim.Min)
		}
	}
}
