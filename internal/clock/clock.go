// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package clock provides uptime, wall-clock time and board identity.
package clock

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"periph.io/x/host/v3/distro"
)

// SeedSize is the length of the per-boot session seed.
const SeedSize = 16

// Provider is the clock/identity capability injected into the datalogger.
type Provider interface {
	Uptime() time.Duration
	Now() time.Time
	DeviceID() string
}

// System is the board clock: uptime since construction, host wall clock and
// a device id read from the hardware.
type System struct {
	boot time.Time
	id   string
}

// NewSystem captures the boot instant and resolves the device id once.
func NewSystem() *System {
	return &System{boot: time.Now(), id: hardwareID()}
}

func (s *System) Uptime() time.Duration { return time.Since(s.boot) }
func (s *System) Now() time.Time        { return time.Now().UTC() }
func (s *System) DeviceID() string      { return s.id }

// hardwareID prefers the SoC serial (Raspberry Pi), then the first hardware MAC.
// The result is 12 upper-case hex characters, the same width as an ESP32 eFuse MAC.
func hardwareID() string {
	if serial := strings.TrimSpace(distro.CPUInfo()["Serial"]); len(serial) >= 12 {
		return strings.ToUpper(serial[len(serial)-12:])
	}

	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) < 6 {
				continue
			}
			return fmt.Sprintf("%X", []byte(iface.HardwareAddr[:6]))
		}
	}
	return "000000000000"
}

// Fixed is a deterministic Provider for tests and bench runs.
type Fixed struct {
	Boot  time.Duration
	Wall  time.Time
	ID    string
	Step  time.Duration // added to Boot on every Uptime call
	calls int
}

func (f *Fixed) Uptime() time.Duration {
	d := f.Boot + time.Duration(f.calls)*f.Step
	f.calls++
	return d
}

func (f *Fixed) Now() time.Time   { return f.Wall }
func (f *Fixed) DeviceID() string { return f.ID }

// NewSeed returns a random lowercase alphanumeric session seed.
func NewSeed() string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	return s[:SeedSize]
}

// DateTime formats t with minute resolution for log file names.
func DateTime(t time.Time) string {
	return fmt.Sprintf("%d_%02d_%02d_%02d_%02d", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute())
}

// ISO formats t the way the log header expects it.
func ISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05") + "+00:00"
}
