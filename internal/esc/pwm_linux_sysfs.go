//go:build linux

package esc

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

// sysfsPWM drives one ESC through a hardware PWM channel under
// /sys/class/pwm, emitting the standard RC servo signal: 50 Hz frame with
// a 1.0-2.0 ms high pulse for 0-100 throttle. Failsafe collapses the
// pulse to zero width, which every ESC treats as signal loss.
//
// On Raspberry Pi the pwm overlay (e.g. dtoverlay=pwm-2chan) must be
// enabled for the chip to appear.

const (
	framePeriodNS = 20_000_000 // 50 Hz
	pulseMinNS    = 1_000_000  // full reverse / weapon stop
	pulseMaxNS    = 2_000_000  // full forward / weapon full

	exportSettle = 500 * time.Millisecond
)

type sysfsPWM struct {
	pwmPath string
	enabled bool
}

var pwmSysfsBase = "/sys/class/pwm"

// OpenPWM exports a channel on the named chip (e.g. "pwmchip0") and
// configures the 50 Hz servo frame.
func OpenPWM(chip string, channel int) (Driver, error) {
	chipPath := filepath.Join(pwmSysfsBase, chip)
	if _, err := os.Stat(chipPath); err != nil {
		return nil, fmt.Errorf("esc: pwm chip %s: %w", chip, err)
	}

	d := &sysfsPWM{pwmPath: filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel))}
	if err := d.ensureExported(chipPath, channel); err != nil {
		return nil, err
	}

	_ = d.writeBool("enable", false)
	if err := d.writeUint("period", framePeriodNS); err != nil {
		return nil, fmt.Errorf("esc: set period: %w", err)
	}
	// Start in the failsafe condition; arming decides when throttle flows.
	if err := d.writeUint("duty_cycle", 0); err != nil {
		return nil, fmt.Errorf("esc: set duty: %w", err)
	}
	if err := d.writeBool("enable", true); err != nil {
		return nil, fmt.Errorf("esc: enable: %w", err)
	}
	d.enabled = true
	return d, nil
}

func (d *sysfsPWM) ensureExported(chipPath string, channel int) error {
	if _, err := os.Stat(d.pwmPath); err == nil {
		return nil
	}
	if err := writeSysfs(filepath.Join(chipPath, "export"), strconv.Itoa(channel)); err != nil {
		if _, statErr := os.Stat(d.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("esc: export pwm%d: %w", channel, err)
	}
	deadline := time.Now().Add(exportSettle)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(d.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(d.pwmPath); err != nil {
		return fmt.Errorf("esc: pwm node missing after export: %w", err)
	}
	return nil
}

func (d *sysfsPWM) SetThrottle(pct float64) error {
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	pulse := pulseMinNS + uint64(math.Round(pct/100.0*(pulseMaxNS-pulseMinNS)))
	if err := d.writeUint("duty_cycle", pulse); err != nil {
		return err
	}
	if !d.enabled {
		if err := d.writeBool("enable", true); err != nil {
			return err
		}
		d.enabled = true
	}
	return nil
}

func (d *sysfsPWM) Failsafe() error {
	return d.writeUint("duty_cycle", 0)
}

func (d *sysfsPWM) Close() error {
	err := d.Failsafe()
	_ = d.writeBool("enable", false)
	d.enabled = false
	return err
}

func (d *sysfsPWM) writeUint(name string, v uint64) error {
	return writeSysfs(filepath.Join(d.pwmPath, name), strconv.FormatUint(v, 10))
}

func (d *sysfsPWM) writeBool(name string, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeSysfs(filepath.Join(d.pwmPath, name), val)
}

// writeSysfs opens O_WRONLY without truncation flags; sysfs attributes can
// reject O_TRUNC, and freshly exported nodes may briefly report EACCES or
// ENOENT while udev settles permissions.
func writeSysfs(path, value string) error {
	deadline := time.Now().Add(2 * time.Second)
	var lastErr error
	for {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			if time.Now().Before(deadline) && isRetryableSysfsErr(err) {
				time.Sleep(25 * time.Millisecond)
				continue
			}
			return err
		}
		_, werr := f.WriteString(value)
		cerr := f.Close()
		if werr == nil && cerr == nil {
			return nil
		}
		if werr != nil {
			lastErr = werr
		} else {
			lastErr = cerr
		}
		if time.Now().Before(deadline) && isRetryableSysfsErr(lastErr) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		return lastErr
	}
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) ||
		errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}
