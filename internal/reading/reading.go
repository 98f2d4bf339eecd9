// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package reading

import (
	"time"

	"github.com/relabs-tech/gas_datalogger/internal/status"
)

// Mode is the sensor operation mode.
type Mode uint8

const (
	Continuous Mode = iota
	Parallel
)

func (m Mode) String() string {
	if m == Parallel {
		return "parallel"
	}
	return "continuous"
}

// Label is the user classification attached to a reading (0 = no class).
type Label int

// Clock is the subset of clock.Provider needed to stamp a reading.
type Clock interface {
	Uptime() time.Duration
	Now() time.Time
}

// Reading represents a single gas sensor sample.
// A nil field means the sensor did not produce that value.
type Reading struct {
	Index    *uint8  `json:"index"`
	SensorID *uint32 `json:"sensor_id"`
	Mode     *Mode   `json:"mode"`

	Uptime time.Duration `json:"uptime"` // since boot
	Unix   int64         `json:"unix"`   // wall clock seconds, 0 = unknown

	Temperature   *float64 `json:"temp_c"`      // °C
	Pressure      *float64 `json:"pressure_pa"` // Pa
	Humidity      *float64 `json:"humidity"`    // %
	GasResistance *float64 `json:"gas_ohm"`     // Ω
	HeaterStep    *uint8   `json:"heater_step"`

	Label  Label `json:"label"`
	Status int   `json:"status"`
}

// ScanEnabled is 1 for parallel mode, 0 for continuous and nil when the mode is unknown.
func (r Reading) ScanEnabled() *int {
	if r.Mode == nil {
		return nil
	}
	v := 0
	if *r.Mode == Parallel {
		v = 1
	}
	return &v
}

// Empty builds a reading without any sensor data, used to log a status code.
func Empty(clk Clock, label Label, code status.Code) Reading {
	return Reading{
		Uptime: clk.Uptime(),
		Unix:   UnixOf(clk.Now()),
		Label:  label,
		Status: int(code),
	}
}

// UnixOf returns t as unix seconds, or 0 when t is unknown.
func UnixOf(t time.Time) int64 {
	if t.IsZero() || t.Unix() < 0 {
		return 0
	}
	return t.Unix()
}

// Ptr returns a pointer to v; handy when building readings.
func Ptr[T any](v T) *T {
	return &v
}
