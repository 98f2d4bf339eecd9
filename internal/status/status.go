// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package status defines the board's return codes.
//
// Negative codes are errors, positive codes are warnings and zero is OK.
// A Code implements error so it can be returned, wrapped with fmt.Errorf and
// matched with errors.Is. The numeric value is what gets logged into the
// "Error Code" column of every record.
package status

import (
	"errors"
	"fmt"
)

// Code is a board return code.
type Code int

const (
	OK Code = 0

	// Warnings: logging continues.
	RTCBeginWarning  Code = 1 // wall-clock source could not be started
	RTCAdjustWarning Code = 2 // wall-clock source has no valid time yet

	// Errors.
	SDCardInitError       Code = -1 // removable storage not available, logging impossible
	ConfigFileError       Code = -2 // board config missing or unreadable
	SensorConfigFileError Code = -3 // board config could not be opened while creating a log file
	LogFileError          Code = -4 // log file could not be created, or flush before any file exists
	SensorReadError       Code = -5 // a sensor failed to produce data
	SensorInitError       Code = -6 // no sensor could be initialised
	LabelSourceError      Code = -7 // label input could not be set up
)

var names = map[Code]string{
	OK:                    "ok",
	RTCBeginWarning:       "rtc begin warning",
	RTCAdjustWarning:      "rtc adjust warning",
	SDCardInitError:       "sd card init error",
	ConfigFileError:       "config file error",
	SensorConfigFileError: "sensor config file error",
	LogFileError:          "log file error",
	SensorReadError:       "sensor read error",
	SensorInitError:       "sensor init error",
	LabelSourceError:      "label source error",
}

func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("code %d", int(c))
}

// Error makes Code usable as an error value.
func (c Code) Error() string {
	return c.String()
}

// IsFatal reports whether c is an error code.
func (c Code) IsFatal() bool { return c < OK }

// IsWarning reports whether c is a warning code.
func (c Code) IsWarning() bool { return c > OK }

// Of extracts the code carried by err. A nil error is OK; an error that does
// not wrap a Code is reported as LogFileError since every path that produces
// foreign errors in this firmware is a storage path.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return LogFileError
}

// Wrap attaches context to a code while keeping it matchable with errors.Is.
func Wrap(c Code, format string, args ...any) error {
	return fmt.Errorf("%w: %s", c, fmt.Sprintf(format, args...))
}
