// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package label provides the user classification attached to every record.
package label

import "github.com/relabs-tech/gas_datalogger/internal/reading"

// Provider returns the label currently selected by the user.
type Provider interface {
	Label() reading.Label
}

// Fixed always returns the same label.
type Fixed reading.Label

func (f Fixed) Label() reading.Label { return reading.Label(f) }
