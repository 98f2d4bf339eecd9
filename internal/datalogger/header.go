// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package datalogger

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/gas_datalogger/internal/clock"
	"github.com/relabs-tech/gas_datalogger/internal/status"
	"github.com/relabs-tech/gas_datalogger/internal/storage"
)

// LogFile is a freshly created log file.
type LogFile struct {
	Path    string
	Counter int
	// DataStart is the offset right after the data block opener, where the
	// first record of this file must be written.
	DataStart int64
}

// Initializer writes the static skeleton of new log files.
type Initializer struct {
	store    storage.Storage
	clock    clock.Provider
	firmware string
	ext      string
}

// NewInitializer creates an Initializer writing files with extension ext.
func NewInitializer(store storage.Storage, clk clock.Provider, firmware, ext string) *Initializer {
	return &Initializer{store: store, clock: clk, firmware: firmware, ext: ext}
}

// FileName builds the card path of a log file.
func FileName(created time.Time, deviceID, seed string, counter int, ext string) string {
	return "/" + clock.DateTime(created) +
		"_Board_" + deviceID +
		"_PowerOnOff_1_" + seed +
		"_File_" + strconv.Itoa(counter) + ext
}

// CreateLogFile creates a log file holding the header, the column schema and
// an empty data block. When configPath is set, the board config document is
// copied in front of the header inside the same top-level object.
// The file is closed before returning.
func (in *Initializer) CreateLogFile(counter int, deviceID, seed, configPath string) (LogFile, error) {
	created := in.clock.Now()
	name := FileName(created, deviceID, seed, counter, in.ext)

	prefix := "{\n"
	if configPath != "" {
		doc, err := in.configPrefix(configPath)
		if err != nil {
			return LogFile{}, err
		}
		prefix = doc
	}

	f, err := in.store.Create(name)
	if err != nil {
		return LogFile{}, status.Wrap(status.LogFileError, "%v", err)
	}

	var b strings.Builder
	b.WriteString(prefix)
	writeHeader(&b, counter, seed, created, in.firmware, deviceID)
	b.WriteString(dataBlockOpen + "\n")

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return LogFile{}, status.Wrap(status.LogFileError, "write header %s: %v", name, err)
	}
	start, err := f.Position()
	if err != nil {
		f.Close()
		return LogFile{}, status.Wrap(status.LogFileError, "position %s: %v", name, err)
	}
	if _, err := f.WriteString(trailer); err != nil {
		f.Close()
		return LogFile{}, status.Wrap(status.LogFileError, "write trailer %s: %v", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return LogFile{}, status.Wrap(status.LogFileError, "sync %s: %v", name, err)
	}
	if err := f.Close(); err != nil {
		return LogFile{}, status.Wrap(status.LogFileError, "close %s: %v", name, err)
	}

	return LogFile{Path: name, Counter: counter, DataStart: start}, nil
}

// configPrefix returns the board config document without its final closing
// brace, followed by the separator that lets the header keys join the object.
func (in *Initializer) configPrefix(configPath string) (string, error) {
	f, err := in.store.OpenRead(configPath)
	if err != nil {
		return "", status.Wrap(status.SensorConfigFileError, "%v", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return "", status.Wrap(status.SensorConfigFileError, "read %s: %v", configPath, err)
	}
	doc := string(raw)

	end := strings.LastIndexByte(doc, '}')
	if end < 0 || strings.TrimSpace(doc[end+1:]) != "" {
		return "", status.Wrap(status.SensorConfigFileError, "%s is not a single document", configPath)
	}
	body := strings.TrimRight(doc[:end], " \t\r\n")
	if !strings.HasPrefix(strings.TrimSpace(body), "{") {
		return "", status.Wrap(status.SensorConfigFileError, "%s is not a single document", configPath)
	}
	if strings.TrimSpace(body) == "{" {
		return body + "\n", nil
	}
	return body + "\n\t,\n", nil
}

func writeHeader(b *strings.Builder, counter int, seed string, created time.Time, firmware, deviceID string) {
	fmt.Fprintf(b, "    %s:\n", quote("rawDataHeader"))
	b.WriteString("\t{\n")
	fmt.Fprintf(b, "\t    \"counterPowerOnOff\": 1,\n")
	fmt.Fprintf(b, "\t    \"seedPowerOnOff\": %s,\n", quote(seed))
	fmt.Fprintf(b, "\t    \"counterFileLimit\": %d,\n", counter)
	fmt.Fprintf(b, "\t    \"dateCreated\": %s,\n", quote(strconv.FormatInt(created.Unix(), 10)))
	fmt.Fprintf(b, "\t    \"dateCreated_ISO\": %s,\n", quote(clock.ISO(created)))
	fmt.Fprintf(b, "\t    \"firmwareVersion\": %s,\n", quote(firmware))
	fmt.Fprintf(b, "\t    \"boardId\": %s\n", quote(deviceID))
	b.WriteString("\t},\n")

	b.WriteString("    \"rawDataBody\":\n")
	b.WriteString("\t{\n")
	b.WriteString("\t    \"dataColumns\": [\n")
	for i, c := range Columns {
		b.WriteString("\t\t{\n")
		fmt.Fprintf(b, "\t\t    \"name\": %s,\n", quote(c.Name))
		fmt.Fprintf(b, "\t\t    \"unit\": %s,\n", quote(c.Unit))
		fmt.Fprintf(b, "\t\t    \"format\": %s,\n", quote(c.Format))
		fmt.Fprintf(b, "\t\t    \"key\": %s\n", quote(c.Key))
		if i < len(Columns)-1 {
			b.WriteString("\t\t},\n")
		} else {
			b.WriteString("\t\t}\n")
		}
	}
	b.WriteString("\t    ],\n")
}

func quote(s string) string {
	q, _ := json.Marshal(s)
	return string(q)
}
