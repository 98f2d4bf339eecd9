// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"

	"github.com/relabs-tech/gas_datalogger/internal/clock"
	"github.com/relabs-tech/gas_datalogger/internal/datalogger"
	"github.com/relabs-tech/gas_datalogger/internal/indicator"
	"github.com/relabs-tech/gas_datalogger/internal/label"
	"github.com/relabs-tech/gas_datalogger/internal/reading"
	"github.com/relabs-tech/gas_datalogger/internal/status"
)

// Source produces one round of readings, one per sensor.
type Source interface {
	Round(clk reading.Clock) []reading.Reading
}

// Session is the datalogger main loop: it feeds every sensor round to the
// writer and reports the outcome on the indicator. After a fatal status the
// session goes idle and only refreshes the indicator.
type Session struct {
	writer    *datalogger.Writer
	source    Source
	labels    label.Provider
	indicator indicator.Indicator
	clock     clock.Provider

	code    status.Code
	warning status.Code // boot warning shown while nothing worse happens
	idle    bool
	records int
}

// NewSession wires the loop collaborators. ind may be nil.
func NewSession(w *datalogger.Writer, src Source, labels label.Provider, ind indicator.Indicator, clk clock.Provider) *Session {
	if ind == nil {
		ind = indicator.Multi(nil)
	}
	return &Session{
		writer:    w,
		source:    src,
		labels:    labels,
		indicator: ind,
		clock:     clk,
	}
}

// Start creates the first log files. boot is the outcome of the earlier
// startup stages (card, clock, sensors). configPath is the discovered board
// config; empty means none was found. On a fatal outcome one record carrying
// the code is written if storage allows it, and the session goes idle.
func (s *Session) Start(configPath string, boot status.Code) status.Code {
	code := boot
	if !code.IsFatal() {
		if code.IsWarning() {
			s.warning = code
		}
		if configPath == "" {
			code = status.SensorConfigFileError
		} else {
			code = status.Of(s.writer.Initialize(configPath))
		}
	}

	if code.IsFatal() {
		log.Printf("datalogger: start failed: %v", code)
		if code != status.SDCardInitError {
			s.recordFailure(configPath, code)
		}
		s.idle = true
	}

	s.code = code
	s.show()
	return code
}

// recordFailure leaves a trace of a failed start on the card.
func (s *Session) recordFailure(configPath string, code status.Code) {
	err := s.writer.Initialize(configPath)
	if err != nil && configPath != "" {
		err = s.writer.Initialize("")
	}
	if err != nil {
		log.Printf("datalogger: cannot record start failure: %v", err)
		return
	}
	s.writer.AppendRecord(reading.Empty(s.clock, s.labels.Label(), code))
	if err := s.writer.Flush(); err != nil {
		log.Printf("datalogger: cannot record start failure: %v", err)
	}
}

// Step runs one polling iteration and returns its status.
func (s *Session) Step() status.Code {
	if s.idle {
		s.show()
		return s.code
	}

	lbl := s.labels.Label()
	for _, r := range s.source.Round(s.clock) {
		r.Label = lbl
		if err := s.writer.AppendRecord(r); err != nil {
			log.Printf("datalogger: append: %v", err)
			continue
		}
		s.records++
	}

	s.code = status.Of(s.writer.Flush())
	if s.code.IsFatal() {
		log.Printf("datalogger: logging stopped: %v", s.code)
		s.idle = true
	}
	s.show()
	return s.code
}

// Idle reports whether logging stopped.
func (s *Session) Idle() bool { return s.idle }

// Records is the number of records handed to the writer.
func (s *Session) Records() int { return s.records }

func (s *Session) show() {
	s.indicator.Update(indicator.Status{
		Code:        s.shown(),
		FileCounter: s.writer.FileCounter(),
		Cursor:      s.writer.Cursor(),
		Records:     s.records,
	})
}

// shown is the code for the indicator: errors first, then a pending boot
// warning. The clock warning clears once the clock got synchronized.
func (s *Session) shown() status.Code {
	if s.code != status.OK || s.warning == status.OK {
		return s.code
	}
	if sc, ok := s.clock.(interface{ Synced() bool }); ok && sc.Synced() {
		s.warning = status.OK
	}
	return s.warning
}

// worst combines the outcomes of two startup stages: the first error wins,
// otherwise the latest warning.
func worst(a, b status.Code) status.Code {
	switch {
	case a.IsFatal():
		return a
	case b.IsFatal(), b.IsWarning():
		return b
	}
	return a
}
