// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package datalogger

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// ErrNotLogFile is returned when a document has no data block.
var ErrNotLogFile = errors.New("no data block found")

// Recovery is the content salvaged from a log file.
type Recovery struct {
	Rows []Row
	// Skipped counts lines inside the data block that were not records,
	// e.g. zero-filled holes left by a failed primary commit.
	Skipped int
	// Complete is false when no closing bracket follows the last record: the
	// tail is garbage from an interrupted commit.
	Complete bool
}

// ReadRecords returns every complete record of a log document. Damage after
// the last complete record is not an error.
func ReadRecords(r io.Reader) (Recovery, error) {
	doc, err := io.ReadAll(r)
	if err != nil {
		return Recovery{}, err
	}
	block := dataBlock(doc)
	if block == nil {
		return Recovery{}, ErrNotLogFile
	}

	var rec Recovery
	scanner := bufio.NewScanner(bytes.NewReader(block))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || line == "," || line == "}" || line == "{":
			continue
		case strings.HasPrefix(line, "]"):
			rec.Complete = true
			continue
		}

		row, err := ParseRecord(line)
		if err != nil {
			rec.Skipped++
			continue
		}
		rec.Rows = append(rec.Rows, row)
		rec.Complete = false
	}
	return rec, scanner.Err()
}
