// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package config loads the datalogger's KEY=VALUE runtime configuration.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// Storage
	StorageRoot    string
	BoardConfigExt string // suffix of the board config document on the card
	LogFileExt     string

	// Datalogger
	FileSizeLimit   int64 // bytes
	FloatPrecision  int
	FirmwareVersion string
	SampleInterval  int // milliseconds

	// Sensors
	SensorSPIDevices []string
	SensorI2CBus     string
	SensorI2CAddrs   []uint16
	SensorMode       string // "parallel" or "continuous"
	SensorMock       int    // number of synthetic sensors, 0 = real hardware

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Label input
	LabelSource   string // "fixed", "gpio" or "mqtt"
	LabelFixed    int
	LabelGPIOPins []string

	// MQTT
	MQTTBroker   string
	MQTTClientID string
	TopicLabel   string

	// Indicator
	LEDPin         string
	DisplayI2CBus  string
	DisplayI2CAddr uint16 // 0 = no display
}

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		BoardConfigExt:  ".bmeconfig",
		LogFileExt:      ".bmerawdata",
		FileSizeLimit:   1000000,
		FloatPrecision:  2,
		FirmwareVersion: "1.5.5",
		SampleInterval:  1000,
		SensorMode:      "parallel",
		GPSBaudRate:     9600,
		LabelSource:     "fixed",
		MQTTClientID:    "gas_datalogger",
		TopicLabel:      "datalogger/label",
	}
}

// Interval is SampleInterval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.SampleInterval) * time.Millisecond
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Storage
	case "STORAGE_ROOT":
		c.StorageRoot = value
	case "BOARD_CONFIG_EXT":
		c.BoardConfigExt = value
	case "LOG_FILE_EXT":
		c.LogFileExt = value

	// Datalogger
	case "FILE_SIZE_LIMIT":
		limit, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid FILE_SIZE_LIMIT %q: %w", value, err)
		}
		if limit <= 0 {
			return fmt.Errorf("FILE_SIZE_LIMIT must be positive, got %d", limit)
		}
		c.FileSizeLimit = limit
	case "FLOAT_PRECISION":
		prec, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid FLOAT_PRECISION %q: %w", value, err)
		}
		if prec < 0 || prec > 9 {
			return fmt.Errorf("FLOAT_PRECISION must be 0-9, got %d", prec)
		}
		c.FloatPrecision = prec
	case "FIRMWARE_VERSION":
		c.FirmwareVersion = value
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval

	// Sensors
	case "SENSOR_SPI_DEVICES":
		c.SensorSPIDevices = splitList(value)
	case "SENSOR_I2C_BUS":
		c.SensorI2CBus = value
	case "SENSOR_I2C_ADDRS":
		c.SensorI2CAddrs = nil
		for _, a := range splitList(value) {
			addr, err := strconv.ParseUint(a, 0, 16)
			if err != nil {
				return fmt.Errorf("invalid SENSOR_I2C_ADDRS entry %q: %w", a, err)
			}
			c.SensorI2CAddrs = append(c.SensorI2CAddrs, uint16(addr))
		}
	case "SENSOR_MODE":
		if value != "parallel" && value != "continuous" {
			return fmt.Errorf("SENSOR_MODE must be parallel or continuous, got %q", value)
		}
		c.SensorMode = value
	case "SENSOR_MOCK":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SENSOR_MOCK %q: %w", value, err)
		}
		if n < 0 || n > 255 {
			return fmt.Errorf("SENSOR_MOCK must be 0-255, got %d", n)
		}
		c.SensorMock = n

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Label input
	case "LABEL_SOURCE":
		switch value {
		case "fixed", "gpio", "mqtt":
		default:
			return fmt.Errorf("LABEL_SOURCE must be fixed, gpio or mqtt, got %q", value)
		}
		c.LabelSource = value
	case "LABEL_FIXED":
		label, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LABEL_FIXED %q: %w", value, err)
		}
		c.LabelFixed = label
	case "LABEL_GPIO_PINS":
		c.LabelGPIOPins = splitList(value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_LABEL":
		c.TopicLabel = value

	// Indicator
	case "LED_PIN":
		c.LEDPin = value
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.StorageRoot == "" {
		return fmt.Errorf("STORAGE_ROOT is required")
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive")
	}
	if c.SensorMock == 0 && len(c.SensorSPIDevices) == 0 && len(c.SensorI2CAddrs) == 0 {
		return fmt.Errorf("SENSOR_SPI_DEVICES or SENSOR_I2C_ADDRS is required unless SENSOR_MOCK is set")
	}
	if c.GPSSerialPort != "" && c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE is required with GPS_SERIAL_PORT")
	}
	switch c.LabelSource {
	case "gpio":
		if len(c.LabelGPIOPins) == 0 {
			return fmt.Errorf("LABEL_GPIO_PINS is required with LABEL_SOURCE=gpio")
		}
	case "mqtt":
		if c.MQTTBroker == "" || c.TopicLabel == "" {
			return fmt.Errorf("MQTT_BROKER and TOPIC_LABEL are required with LABEL_SOURCE=mqtt")
		}
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has an effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
