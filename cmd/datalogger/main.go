// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/gas_datalogger/internal/app"
	"github.com/relabs-tech/gas_datalogger/internal/config"
)

func main() {
	configPath := flag.String("config", "datalogger.conf", "Path to configuration file")
	flag.Parse()

	log.Println("starting gas datalogger (BME68x sensors → SD card)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunDatalogger(config.Get()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
