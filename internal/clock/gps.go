// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package clock

import (
	"bufio"
	"io"
	"log"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gas_datalogger/internal/gps"
	"github.com/relabs-tech/gas_datalogger/internal/status"
)

// GPS disciplines the wall clock of another Provider with RMC fixes read from
// a serial NMEA receiver. Uptime and DeviceID are passed through unchanged.
type GPS struct {
	base Provider

	mu     sync.RWMutex
	offset time.Duration
	synced bool
}

// NewGPS wraps base. Until the first valid fix, Now returns base.Now().
func NewGPS(base Provider) *GPS {
	return &GPS{base: base}
}

func (g *GPS) Uptime() time.Duration { return g.base.Uptime() }
func (g *GPS) DeviceID() string      { return g.base.DeviceID() }

func (g *GPS) Now() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.synced {
		return g.base.Now()
	}
	return g.base.Now().Add(g.offset)
}

// Synced reports whether at least one valid fix was applied.
func (g *GPS) Synced() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.synced
}

// Begin opens the serial port and starts feeding it in the background.
// Both outcomes are warnings: RTCBeginWarning when the port cannot be opened,
// RTCAdjustWarning while no fix has arrived yet.
func (g *GPS) Begin(portName string, baud int) error {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return status.Wrap(status.RTCBeginWarning, "gps serial open %s: %v", portName, err)
	}
	log.Printf("clock: GPS serial port opened on %s at %d baud", portName, baud)

	go func() {
		defer port.Close()
		if err := g.Feed(port); err != nil {
			log.Printf("clock: GPS read error: %v", err)
		}
	}()
	return status.Wrap(status.RTCAdjustWarning, "waiting for first GPS fix")
}

// Feed consumes NMEA lines from r until EOF or a read error.
func (g *GPS) Feed(r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if fix, ok := gps.Parse(line); ok {
				g.Apply(fix)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Apply sets the offset from a fix; void fixes are ignored.
func (g *GPS) Apply(fix gps.Fix) {
	if !fix.Valid() {
		return
	}
	offset := fix.UTC.Sub(g.base.Now())

	g.mu.Lock()
	first := !g.synced
	g.offset = offset
	g.synced = true
	g.mu.Unlock()

	if first {
		log.Printf("clock: wall clock disciplined by GPS (%s)", fix.UTC.Format(time.RFC3339))
	}
}
