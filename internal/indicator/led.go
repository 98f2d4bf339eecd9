// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package indicator

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// LED drives a status LED: steady on while logging, blinking on warnings and
// off once logging stopped on an error.
type LED struct {
	pin gpio.PinOut
	lit bool
}

// OpenLED resolves the named pin.
func OpenLED(name string) (*LED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("LED pin %q not found", name)
	}
	log.Printf("indicator: status LED on %s", name)
	return NewLED(p), nil
}

// NewLED uses an already resolved pin.
func NewLED(pin gpio.PinOut) *LED {
	return &LED{pin: pin}
}

func (l *LED) Update(s Status) {
	switch {
	case s.Code.IsFatal():
		l.set(false)
	case s.Code.IsWarning():
		l.set(!l.lit)
	default:
		l.set(true)
	}
}

func (l *LED) set(on bool) {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := l.pin.Out(level); err != nil {
		log.Printf("indicator: LED: %v", err)
		return
	}
	l.lit = on
}
