// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package indicator shows the datalogger state on the board: a status LED and
// an optional OLED display.
package indicator

import (
	"github.com/relabs-tech/gas_datalogger/internal/status"
)

// Status is the snapshot shown by an indicator.
type Status struct {
	Code        status.Code
	FileCounter int
	Cursor      int64
	Records     int
}

// Indicator renders a Status. Update is called once per polling step, also in
// idle mode.
type Indicator interface {
	Update(Status)
}

// Multi fans out to several indicators.
type Multi []Indicator

func (m Multi) Update(s Status) {
	for _, ind := range m {
		ind.Update(s)
	}
}
