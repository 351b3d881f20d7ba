//go:build !linux

package esc

import "fmt"

func OpenPWM(chip string, channel int) (Driver, error) {
	return nil, fmt.Errorf("esc: sysfs pwm unsupported on this platform")
}
