// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package datalogger persists readings into structured, appendable log files.
//
// Every log file is a JSON document whose data block stays open for appends:
//
//	{ <board config keys>, "rawDataHeader": {...}, "rawDataBody": {
//	      "dataColumns": [...],
//	      "dataBlock": [
//	          [record], [record], ...
//	      ] } }
//
// Two files are kept for the active session slot. The primary is the file
// meant for retrieval. The shadow receives the same text and is the one the
// write cursor is taken from. Each commit opens a file, writes the buffered
// records at the cursor followed by the closing brackets, syncs and closes it
// again, so a file that is never left open loses at most the last flush
// interval on power loss.
package datalogger

import (
	"io"
	"log"
	"strings"

	"github.com/relabs-tech/gas_datalogger/internal/clock"
	"github.com/relabs-tech/gas_datalogger/internal/reading"
	"github.com/relabs-tech/gas_datalogger/internal/status"
	"github.com/relabs-tech/gas_datalogger/internal/storage"
)

// Options configures a Writer.
type Options struct {
	FileSizeLimit   int64 // rollover once the shadow cursor reaches this offset
	Precision       int   // decimals of fixed-point floats
	FirmwareVersion string
	Extension       string
}

// DefaultOptions are the values of the Bosch devkit firmware the files stay compatible with.
var DefaultOptions = Options{
	FileSizeLimit:   1_000_000,
	Precision:       2,
	FirmwareVersion: "1.5.5",
	Extension:       ".bmerawdata",
}

// Writer is the structured log writer. It is not safe for concurrent use:
// the polling loop is its only caller.
type Writer struct {
	store storage.Storage
	clock clock.Provider
	init  *Initializer
	opts  Options
	seed  string

	configPath string

	buf       strings.Builder
	endOfLine bool

	counter      int
	primary      string
	shadow       string
	cursor       int64
	dataStart    int64 // shadow data start
	primaryShift int64 // primary data start minus shadow data start
}

// NewWriter creates a Writer; no file exists until Initialize succeeds.
func NewWriter(store storage.Storage, clk clock.Provider, seed string, opts Options) *Writer {
	if opts.Precision < 0 {
		opts.Precision = DefaultOptions.Precision
	}
	if opts.Extension == "" {
		opts.Extension = DefaultOptions.Extension
	}
	if opts.FileSizeLimit <= 0 {
		opts.FileSizeLimit = DefaultOptions.FileSizeLimit
	}
	return &Writer{
		store: store,
		clock: clk,
		init:  NewInitializer(store, clk, opts.FirmwareVersion, opts.Extension),
		opts:  opts,
		seed:  seed,
	}
}

// Initialize creates a new primary/shadow pair and resets cursor tracking to
// it. configPath is the optional board config copied into every file header.
// On error the writer keeps its previous pair, if any, untouched.
func (w *Writer) Initialize(configPath string) error {
	if configPath != "" {
		f, err := w.store.OpenRead(configPath)
		if err != nil {
			return status.Wrap(status.ConfigFileError, "%v", err)
		}
		f.Close()
	}

	prev := w.configPath
	w.configPath = configPath
	if err := w.createPair(); err != nil {
		w.configPath = prev
		return err
	}
	w.buf.Reset()
	return nil
}

// AppendRecord serializes r into the in-memory buffer. It never touches storage.
func (w *Writer) AppendRecord(r reading.Reading) error {
	if w.endOfLine {
		w.buf.WriteString(recordSep)
	}
	w.buf.WriteString(FormatRecord(r, w.opts.Precision))
	w.endOfLine = true
	return nil
}

// Flush commits the buffered records: best effort to the primary, then to the
// shadow, and only then advances the cursor. The buffer is cleared whatever
// the outcome; a failed shadow commit drops that batch. Reaching the size
// limit rolls over to a new pair.
func (w *Writer) Flush() error {
	if w.buf.Len() == 0 {
		return nil
	}
	text := w.buf.String()
	w.buf.Reset()

	if w.counter == 0 || w.shadow == "" {
		w.endOfLine = false
		return status.Wrap(status.LogFileError, "flush before any log file was created")
	}

	if _, err := w.commit(w.primary, w.cursor+w.primaryShift, text); err != nil {
		log.Printf("datalogger: primary commit failed, shadow still gets the batch: %v", err)
	}

	pos, err := w.commit(w.shadow, w.cursor, text)
	if err != nil {
		// The batch is gone; the next record follows whatever the file holds.
		w.endOfLine = w.cursor > w.dataStart
		return status.Wrap(status.LogFileError, "shadow commit: %v", err)
	}
	w.cursor = pos

	if w.cursor >= w.opts.FileSizeLimit {
		log.Printf("datalogger: %s reached %d bytes, rolling over", w.shadow, w.cursor)
		return w.createPair()
	}
	return nil
}

// commit writes text at pos followed by the document trailer and returns the
// offset right after text.
func (w *Writer) commit(name string, pos int64, text string) (int64, error) {
	f, err := w.store.OpenWrite(name)
	if err != nil {
		return pos, err
	}
	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		f.Close()
		return pos, err
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return pos, err
	}
	end, err := f.Position()
	if err != nil {
		f.Close()
		return pos, err
	}
	if _, err := f.WriteString(commitTrailer); err != nil {
		f.Close()
		return pos, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return pos, err
	}
	if err := f.Close(); err != nil {
		return pos, err
	}
	return end, nil
}

// createPair creates a new primary and shadow. The writer switches to the new
// pair only when both were created; otherwise the current pair stays active.
func (w *Writer) createPair() error {
	id := w.clock.DeviceID()

	primary, err := w.init.CreateLogFile(w.counter, id, w.seed, w.configPath)
	if err != nil {
		return err
	}
	w.counter++

	shadow, err := w.init.CreateLogFile(w.counter, id, w.seed, w.configPath)
	if err != nil {
		return err
	}
	w.counter++

	w.primary = primary.Path
	w.shadow = shadow.Path
	w.cursor = shadow.DataStart
	w.dataStart = shadow.DataStart
	w.primaryShift = primary.DataStart - shadow.DataStart
	w.endOfLine = false

	log.Printf("datalogger: logging to %s (shadow %s, data at %d)", w.primary, w.shadow, w.cursor)
	return nil
}

// FileCounter is the number of log files created in this session.
func (w *Writer) FileCounter() int { return w.counter }

// Cursor is the shadow offset where the next flush writes.
func (w *Writer) Cursor() int64 { return w.cursor }

// Files returns the active primary and shadow paths.
func (w *Writer) Files() (primary, shadow string) { return w.primary, w.shadow }

// Buffered is the number of bytes waiting for the next flush.
func (w *Writer) Buffered() int { return w.buf.Len() }
