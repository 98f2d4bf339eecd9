// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"hash/crc32"
	"log"
	"strings"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gas_datalogger/internal/reading"
	"github.com/relabs-tech/gas_datalogger/internal/status"
)

// Config selects the buses sensors are attached to.
type Config struct {
	SPIDevices []string
	I2CBus     string
	I2CAddrs   []uint16
	Mode       reading.Mode
}

// Open initializes the host and every configured sensor. Sensors that fail to
// come up are logged and left out; SensorInitError is returned only when none
// is usable.
func Open(cfg Config) (*Scheduler, error) {
	if _, err := host.Init(); err != nil {
		return nil, status.Wrap(status.SensorInitError, "periph host init: %v", err)
	}

	s := &Scheduler{}
	for _, name := range cfg.SPIDevices {
		port, err := spireg.Open(name)
		if err != nil {
			log.Printf("sensors: SPI open %s: %v", name, err)
			continue
		}
		dev, err := bmxx80.NewSPI(port, &bmxx80.DefaultOpts)
		if err != nil {
			port.Close()
			log.Printf("sensors: init on %s: %v", name, err)
			continue
		}
		s.add(dev, name, cfg.Mode)
		s.closers = append(s.closers, port.Close)
	}

	if len(cfg.I2CAddrs) > 0 {
		bus, err := i2creg.Open(cfg.I2CBus)
		if err != nil {
			log.Printf("sensors: I2C open %q: %v", cfg.I2CBus, err)
		} else {
			opened := 0
			for _, addr := range cfg.I2CAddrs {
				dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
				if err != nil {
					log.Printf("sensors: init at 0x%02X: %v", addr, err)
					continue
				}
				s.add(dev, fmt.Sprintf("%s@0x%02X", bus, addr), cfg.Mode)
				opened++
			}
			if opened == 0 {
				bus.Close()
			} else {
				s.closers = append(s.closers, bus.Close)
			}
		}
	}

	if s.Len() == 0 {
		return nil, status.Wrap(status.SensorInitError, "no sensor responded")
	}
	return s, nil
}

func (s *Scheduler) add(dev *bmxx80.Dev, addr string, mode reading.Mode) {
	sn := Sensor{
		Index: uint8(len(s.sensors)),
		ID:    SensorID(addr),
		Mode:  mode,
		Dev:   dev,
		Humid: strings.HasPrefix(dev.String(), "BME"),
	}
	s.sensors = append(s.sensors, sn)
	s.closers = append(s.closers, dev.Halt)
	log.Printf("sensors: %s on %s as sensor %d (id %08X)", dev, addr, sn.Index, sn.ID)
}

// SensorID derives a stable sensor identifier from its bus address.
func SensorID(addr string) uint32 {
	return crc32.ChecksumIEEE([]byte(addr))
}
