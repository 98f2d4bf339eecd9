// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package datalogger

// Column describes one field of a record in the log file header.
type Column struct {
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Format string `json:"format"`
	Key    string `json:"key"`
}

// Columns is the fixed record layout; FormatRecord writes fields in this order.
var Columns = []Column{
	{Name: "Sensor Index", Unit: "", Format: "integer", Key: "sensor_index"},
	{Name: "Sensor ID", Unit: "", Format: "integer", Key: "sensorId"},
	{Name: "Time Since PowerOn", Unit: "Milliseconds", Format: "integer", Key: "timestamp_since_poweron"},
	{Name: "Real time clock", Unit: "Unix Timestamp: seconds since Jan 01 1970. (UTC); 0 = missing", Format: "integer", Key: "real_time_clock"},
	{Name: "Temperature", Unit: "DegreesClecius", Format: "float", Key: "temperature"},
	{Name: "Pressure", Unit: "Hectopascals", Format: "float", Key: "pressure"},
	{Name: "Relative Humidity", Unit: "Percent", Format: "float", Key: "relative_humidity"},
	{Name: "Resistance Gassensor", Unit: "Ohms", Format: "float", Key: "resistance_gassensor"},
	{Name: "Heater Profile Step Index", Unit: "", Format: "integer", Key: "heater_profile_step_index"},
	{Name: "Scanning enabled", Unit: "", Format: "integer", Key: "scanning_enabled"},
	{Name: "Label Tag", Unit: "", Format: "integer", Key: "label_tag"},
	{Name: "Error Code", Unit: "", Format: "integer", Key: "error_code"},
}

// Document framing shared by the initializer, the writer and the reader.
const (
	dataBlockOpen = "\t    \"dataBlock\": ["
	// trailer closes dataBlock, rawDataBody and the top-level object.
	trailer       = "\t    ]\n\t}\n}\n"
	recordSep     = ",\n"
	recordIndent  = "\t\t"
	commitTrailer = "\n" + trailer
)
