// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors polls the board's environmental sensors in a fixed
// round-robin order.
package sensors

import (
	"errors"
	"log"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/gas_datalogger/internal/reading"
	"github.com/relabs-tech/gas_datalogger/internal/status"
)

// Senser is a device measuring temperature, pressure and humidity.
// *bmxx80.Dev satisfies it.
type Senser interface {
	Sense(e *physic.Env) error
}

// GasSenser is implemented by devices with a heated gas plate.
type GasSenser interface {
	SenseGas() (ohms float64, heaterStep uint8, err error)
}

// Sensor is one slot of the scheduler.
type Sensor struct {
	Index uint8
	ID    uint32
	Mode  reading.Mode
	Dev   Senser
	// Humid is false for chips without a humidity channel.
	Humid bool
}

// Scheduler visits every sensor once per round, in slot order.
type Scheduler struct {
	sensors []Sensor
	closers []func() error
}

// NewScheduler creates a scheduler over sensors.
func NewScheduler(sensors ...Sensor) *Scheduler {
	return &Scheduler{sensors: sensors}
}

// Len is the number of sensors.
func (s *Scheduler) Len() int { return len(s.sensors) }

// Round reads every sensor and returns one reading per sensor. A sensor that
// fails still yields a reading, with null data and SensorReadError.
func (s *Scheduler) Round(clk reading.Clock) []reading.Reading {
	out := make([]reading.Reading, 0, len(s.sensors))
	for _, sn := range s.sensors {
		out = append(out, sn.read(clk))
	}
	return out
}

// Close halts the devices and releases their buses.
func (s *Scheduler) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (sn Sensor) read(clk reading.Clock) reading.Reading {
	r := reading.Reading{
		Index:    reading.Ptr(sn.Index),
		SensorID: reading.Ptr(sn.ID),
		Mode:     reading.Ptr(sn.Mode),
	}

	var e physic.Env
	err := sn.Dev.Sense(&e)
	r.Uptime = clk.Uptime()
	r.Unix = reading.UnixOf(clk.Now())
	if err != nil {
		log.Printf("sensors: sensor %d (%08X) read failed: %v", sn.Index, sn.ID, err)
		r.Status = int(status.SensorReadError)
		return r
	}

	r.Temperature = reading.Ptr(e.Temperature.Celsius())
	r.Pressure = reading.Ptr(float64(e.Pressure) / float64(physic.Pascal))
	if sn.Humid {
		r.Humidity = reading.Ptr(float64(e.Humidity) / float64(physic.PercentRH))
	}

	g, ok := sn.Dev.(GasSenser)
	if !ok {
		return r
	}
	ohms, step, err := g.SenseGas()
	if err != nil {
		log.Printf("sensors: sensor %d (%08X) gas read failed: %v", sn.Index, sn.ID, err)
		r.Status = int(status.SensorReadError)
		return r
	}
	r.GasResistance = reading.Ptr(ohms)
	r.HeaterStep = reading.Ptr(step)
	return r
}
