// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package label

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gas_datalogger/internal/reading"
	"github.com/relabs-tech/gas_datalogger/internal/status"
)

// GPIO reads the label from switches: pin i contributes bit i when high.
type GPIO struct {
	pins []gpio.PinIn
}

// OpenGPIO looks up the named pins and configures them as pulled-down inputs.
func OpenGPIO(names []string) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, status.Wrap(status.LabelSourceError, "periph host init: %v", err)
	}
	pins := make([]gpio.PinIn, 0, len(names))
	for _, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, status.Wrap(status.LabelSourceError, "label pin %q not found", name)
		}
		pins = append(pins, p)
	}
	return NewGPIO(pins...)
}

// NewGPIO uses already resolved pins, least significant bit first.
func NewGPIO(pins ...gpio.PinIn) (*GPIO, error) {
	if len(pins) == 0 || len(pins) > 31 {
		return nil, status.Wrap(status.LabelSourceError, "need 1 to 31 label pins, got %d", len(pins))
	}
	for _, p := range pins {
		if err := p.In(gpio.PullDown, gpio.NoEdge); err != nil {
			return nil, status.Wrap(status.LabelSourceError, "%s: %v", p, err)
		}
	}
	log.Printf("label: reading %d switch pins", len(pins))
	return &GPIO{pins: pins}, nil
}

func (g *GPIO) Label() reading.Label {
	var v reading.Label
	for i, p := range g.pins {
		if p.Read() == gpio.High {
			v |= 1 << i
		}
	}
	return v
}

func (g *GPIO) String() string {
	return fmt.Sprintf("gpio%v", g.pins)
}
