package gps

import (
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// Fix represents a single RMC fix; only the parts needed to discipline the clock.
type Fix struct {
	Time      string    `json:"time"`     // e.g. "12:34:56"
	Date      string    `json:"date"`     // e.g. "06/12/25"
	Latitude  float64   `json:"lat"`      // decimal degrees
	Longitude float64   `json:"lon"`      // decimal degrees
	Validity  string    `json:"validity"` // "A" (valid) / "V" (void)
	UTC       time.Time `json:"utc"`
}

// Valid reports whether the receiver had a fix and a complete date/time.
func (f Fix) Valid() bool {
	return f.Validity == nmea.ValidRMC && !f.UTC.IsZero()
}

// Parse decodes one NMEA line. Only RMC sentences produce a fix; everything
// else (GGA, GSA, noise, partial sentences) returns ok=false.
func Parse(line string) (Fix, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false
	}
	if sentence.DataType() != nmea.TypeRMC {
		return Fix{}, false
	}
	m := sentence.(nmea.RMC)

	fix := Fix{
		Time:      m.Time.String(),
		Date:      m.Date.String(),
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Validity:  m.Validity,
	}
	if m.Date.Valid && m.Time.Valid {
		fix.UTC = time.Date(2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
			m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond), time.UTC)
	}
	return fix, true
}
