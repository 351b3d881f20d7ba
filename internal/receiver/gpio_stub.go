//go:build !linux

package receiver

import "fmt"

type GPIOSource struct{}

func OpenGPIOSource(chipName string, pins [NumControllers][NumChannels]int) (*GPIOSource, error) {
	return nil, fmt.Errorf("receiver: gpio capture unsupported on this platform")
}

func (s *GPIOSource) Pulsewidth(controller, channel int) float64 { return 0 }

func (s *GPIOSource) Close() {}
