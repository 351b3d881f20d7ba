//go:build !linux

package leds

import "fmt"

// OpenGPIOBank is only available on Linux (GPIO character device).
func OpenGPIOBank(chipPath string, offsets [NumLEDs]int) (Driver, error) {
	return nil, fmt.Errorf("leds: gpio backend requires linux")
}
