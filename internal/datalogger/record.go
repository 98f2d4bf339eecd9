// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package datalogger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/relabs-tech/gas_datalogger/internal/reading"
)

const null = "null"

// FormatRecord serializes r as one data block entry, in Columns order.
// Floats are fixed-point with prec decimals; absent values are null.
// Pressure is converted from Pa to hPa.
func FormatRecord(r reading.Reading, prec int) string {
	fields := make([]string, 0, len(Columns))

	fields = append(fields,
		optUint(r.Index),
		optUint(r.SensorID),
		strconv.FormatInt(r.Uptime.Milliseconds(), 10),
		strconv.FormatInt(r.Unix, 10),
		optFloat(r.Temperature, 1, prec),
		optFloat(r.Pressure, 100, prec),
		optFloat(r.Humidity, 1, prec),
		optFloat(r.GasResistance, 1, prec),
		optUint(r.HeaterStep),
		optInt(r.ScanEnabled()),
		strconv.Itoa(int(r.Label)),
		strconv.Itoa(r.Status),
	)
	return recordIndent + "[" + strings.Join(fields, ",") + "]"
}

func optUint[T uint8 | uint32](v *T) string {
	if v == nil {
		return null
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func optInt(v *int) string {
	if v == nil {
		return null
	}
	return strconv.Itoa(*v)
}

// optFloat renders NaN and infinities as null; they have no JSON form.
func optFloat(v *float64, div float64, prec int) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return null
	}
	return strconv.FormatFloat(*v/div, 'f', prec, 64)
}

// Row is one decoded record, in file units (pressure in hPa).
type Row struct {
	Index         *int64
	SensorID      *int64
	UptimeMs      int64
	Unix          int64
	Temperature   *float64
	Pressure      *float64
	Humidity      *float64
	GasResistance *float64
	HeaterStep    *int64
	ScanEnabled   *int64
	Label         int64
	Status        int64
}

// Values returns the row as strings in Columns order, empty for null.
func (r Row) Values() []string {
	i := func(v *int64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatInt(*v, 10)
	}
	f := func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	}
	return []string{
		i(r.Index), i(r.SensorID),
		strconv.FormatInt(r.UptimeMs, 10), strconv.FormatInt(r.Unix, 10),
		f(r.Temperature), f(r.Pressure), f(r.Humidity), f(r.GasResistance),
		i(r.HeaterStep), i(r.ScanEnabled),
		strconv.FormatInt(r.Label, 10), strconv.FormatInt(r.Status, 10),
	}
}

// ParseRecord decodes one data block line. Surrounding whitespace and a
// trailing separator comma are tolerated.
func ParseRecord(line string) (Row, error) {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ",")
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return Row{}, fmt.Errorf("not a record: %q", line)
	}

	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	var raw []*json.Number
	if err := dec.Decode(&raw); err != nil {
		return Row{}, fmt.Errorf("decode record: %w", err)
	}
	if len(raw) != len(Columns) {
		return Row{}, fmt.Errorf("record has %d fields, want %d", len(raw), len(Columns))
	}

	var row Row
	var err error
	ints := []struct {
		dst **int64
		idx int
	}{
		{&row.Index, 0}, {&row.SensorID, 1}, {&row.HeaterStep, 8}, {&row.ScanEnabled, 9},
	}
	for _, c := range ints {
		if *c.dst, err = optInt64(raw[c.idx]); err != nil {
			return Row{}, fmt.Errorf("%s: %w", Columns[c.idx].Key, err)
		}
	}
	floats := []struct {
		dst **float64
		idx int
	}{
		{&row.Temperature, 4}, {&row.Pressure, 5}, {&row.Humidity, 6}, {&row.GasResistance, 7},
	}
	for _, c := range floats {
		if *c.dst, err = optFloat64(raw[c.idx]); err != nil {
			return Row{}, fmt.Errorf("%s: %w", Columns[c.idx].Key, err)
		}
	}
	required := []struct {
		dst *int64
		idx int
	}{
		{&row.UptimeMs, 2}, {&row.Unix, 3}, {&row.Label, 10}, {&row.Status, 11},
	}
	for _, c := range required {
		v, err := optInt64(raw[c.idx])
		if err != nil {
			return Row{}, fmt.Errorf("%s: %w", Columns[c.idx].Key, err)
		}
		if v == nil {
			return Row{}, fmt.Errorf("%s: unexpected null", Columns[c.idx].Key)
		}
		*c.dst = *v
	}
	return row, nil
}

func optInt64(n *json.Number) (*int64, error) {
	if n == nil {
		return nil, nil
	}
	v, err := n.Int64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optFloat64(n *json.Number) (*float64, error) {
	if n == nil {
		return nil, nil
	}
	v, err := n.Float64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// dataBlock returns the bytes after the data block opener, or nil if doc is not a log file.
func dataBlock(doc []byte) []byte {
	i := bytes.Index(doc, []byte(dataBlockOpen))
	if i < 0 {
		return nil
	}
	rest := doc[i+len(dataBlockOpen):]
	return bytes.TrimPrefix(rest, []byte("\n"))
}
