//go:build linux

package receiver

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOSource measures servo pulse widths with both-edge line events on the
// Linux GPIO character device. Each receiver channel output is wired to one
// GPIO line; the width is the rising-to-falling interval, reported in
// microseconds.
type GPIOSource struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line

	mu       sync.RWMutex
	widths   [NumControllers][NumChannels]float64
	lastRise [NumControllers][NumChannels]int64 // event timestamp, ns
}

// OpenGPIOSource requests the given lines from a chip such as "gpiochip0".
// Pins are indexed [controller][channel]; a negative pin leaves that
// channel unconnected (it reads as zero width).
func OpenGPIOSource(chipName string, pins [NumControllers][NumChannels]int) (*GPIOSource, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("triforce-robot-rx"))
	if err != nil {
		return nil, fmt.Errorf("receiver: open %s: %w", chipName, err)
	}

	s := &GPIOSource{chip: chip}
	for c := 0; c < NumControllers; c++ {
		for ch := 0; ch < NumChannels; ch++ {
			pin := pins[c][ch]
			if pin < 0 {
				continue
			}
			controller, channel := c, ch
			line, err := chip.RequestLine(pin,
				gpiocdev.AsInput,
				gpiocdev.WithBothEdges,
				gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
					s.handleEdge(controller, channel, evt)
				}))
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("receiver: request line %d: %w", pin, err)
			}
			s.lines = append(s.lines, line)
		}
	}
	return s, nil
}

func (s *GPIOSource) handleEdge(controller, channel int, evt gpiocdev.LineEvent) {
	ns := int64(evt.Timestamp)
	s.mu.Lock()
	defer s.mu.Unlock()
	if evt.Type == gpiocdev.LineEventRisingEdge {
		s.lastRise[controller][channel] = ns
		return
	}
	rise := s.lastRise[controller][channel]
	if rise == 0 || ns <= rise {
		return
	}
	width := float64(ns-rise) / 1000.0
	// Reject glitches and inter-frame gaps; servo pulses sit in 1-2ms.
	if width < 500 || width > 2500 {
		return
	}
	s.widths[controller][channel] = width
}

func (s *GPIOSource) Pulsewidth(controller, channel int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.widths[controller][channel]
}

func (s *GPIOSource) Close() {
	if s == nil {
		return
	}
	for _, l := range s.lines {
		_ = l.Close()
	}
	s.lines = nil
	if s.chip != nil {
		_ = s.chip.Close()
		s.chip = nil
	}
}
