// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/gas_datalogger/internal/clock"
	"github.com/relabs-tech/gas_datalogger/internal/config"
	"github.com/relabs-tech/gas_datalogger/internal/datalogger"
	"github.com/relabs-tech/gas_datalogger/internal/indicator"
	"github.com/relabs-tech/gas_datalogger/internal/label"
	"github.com/relabs-tech/gas_datalogger/internal/reading"
	"github.com/relabs-tech/gas_datalogger/internal/sensors"
	"github.com/relabs-tech/gas_datalogger/internal/status"
	"github.com/relabs-tech/gas_datalogger/internal/storage"
)

// RunDatalogger brings the board up from cfg and logs until SIGINT/SIGTERM.
// Startup failures do not return an error: they are logged on the card when
// possible, shown on the indicator, and the loop keeps running idle.
func RunDatalogger(cfg *config.Config) error {
	boot := status.OK
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// ---- 1) Indicator ----
	ind := openIndicator(cfg, &closers)

	// ---- 2) Card ----
	var store storage.Storage
	card, err := storage.NewCard(cfg.StorageRoot)
	if err != nil {
		log.Printf("datalogger: %v", err)
		boot = worst(boot, status.Of(err))
	} else {
		store = card
		log.Printf("datalogger: card mounted at %s", cfg.StorageRoot)
	}

	// ---- 3) Clock ----
	var clk clock.Provider = clock.NewSystem()
	if cfg.GPSSerialPort != "" {
		g := clock.NewGPS(clk)
		if err := g.Begin(cfg.GPSSerialPort, cfg.GPSBaudRate); err != nil {
			log.Printf("datalogger: %v", err)
			boot = worst(boot, status.Of(err))
		}
		clk = g
	}
	log.Printf("datalogger: board id %s", clk.DeviceID())

	// ---- 4) Sensors ----
	var src Source
	mode := reading.Parallel
	if cfg.SensorMode == "continuous" {
		mode = reading.Continuous
	}
	if cfg.SensorMock > 0 {
		src = sensors.NewMock(cfg.SensorMock, mode)
		log.Printf("datalogger: using %d synthetic sensors", cfg.SensorMock)
	} else {
		sched, err := sensors.Open(sensors.Config{
			SPIDevices: cfg.SensorSPIDevices,
			I2CBus:     cfg.SensorI2CBus,
			I2CAddrs:   cfg.SensorI2CAddrs,
			Mode:       mode,
		})
		if err != nil {
			log.Printf("datalogger: %v", err)
			boot = worst(boot, status.Of(err))
			src = sensors.NewScheduler()
		} else {
			src = sched
			closers = append(closers, func() { sched.Close() })
		}
	}

	// ---- 5) Label input ----
	labels, err := openLabels(cfg)
	if err != nil {
		log.Printf("datalogger: %v", err)
		boot = worst(boot, status.Of(err))
		labels = label.Fixed(cfg.LabelFixed)
	}
	if m, ok := labels.(*label.MQTT); ok {
		closers = append(closers, m.Close)
	}

	// ---- 6) Log files ----
	configPath := ""
	if store != nil {
		if p, ok := storage.FindBySuffix(store, cfg.BoardConfigExt); ok {
			configPath = p
			log.Printf("datalogger: board config %s", configPath)
		} else {
			log.Printf("datalogger: no *%s board config on the card", cfg.BoardConfigExt)
		}
	}

	w := datalogger.NewWriter(store, clk, clock.NewSeed(), datalogger.Options{
		FileSizeLimit:   cfg.FileSizeLimit,
		Precision:       cfg.FloatPrecision,
		FirmwareVersion: cfg.FirmwareVersion,
		Extension:       cfg.LogFileExt,
	})
	session := NewSession(w, src, labels, ind, clk)
	code := session.Start(configPath, boot)
	log.Printf("datalogger: started with status %d (%v)", int(code), code)

	// ---- 7) Polling loop ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			session.Step()
		case <-sigCh:
			log.Printf("datalogger: shutting down after %d records", session.Records())
			return nil
		}
	}
}

func openIndicator(cfg *config.Config, closers *[]func()) indicator.Indicator {
	var ind indicator.Multi
	if cfg.LEDPin != "" {
		led, err := indicator.OpenLED(cfg.LEDPin)
		if err != nil {
			log.Printf("datalogger: status LED unavailable: %v", err)
		} else {
			ind = append(ind, led)
		}
	}
	if cfg.DisplayI2CAddr != 0 {
		d, err := indicator.OpenDisplay(cfg.DisplayI2CBus, cfg.DisplayI2CAddr)
		if err != nil {
			log.Printf("datalogger: display unavailable: %v", err)
		} else {
			ind = append(ind, d)
			*closers = append(*closers, func() { d.Close() })
		}
	}
	return ind
}

func openLabels(cfg *config.Config) (label.Provider, error) {
	switch cfg.LabelSource {
	case "gpio":
		return label.OpenGPIO(cfg.LabelGPIOPins)
	case "mqtt":
		return label.NewMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.TopicLabel, reading.Label(cfg.LabelFixed))
	default:
		return label.Fixed(cfg.LabelFixed), nil
	}
}
