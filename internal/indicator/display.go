// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package indicator

import (
	"fmt"
	"image"
	"log"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

// screen is the part of *ssd1306.Dev the display needs.
type screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Display renders the status on a 128x64 SSD1306 OLED. Redraws happen only
// when the shown values change.
type Display struct {
	dev  screen
	bus  i2c.BusCloser
	last *Status
}

// OpenDisplay initializes an SSD1306 at addr on the named I2C bus.
func OpenDisplay(busName string, addr uint16) (*Display, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(bus, addr, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("indicator: display initialized at 0x%02X", addr)
	d := &Display{dev: dev, bus: bus}
	if err := d.splash(); err != nil {
		log.Printf("indicator: error showing splash: %v", err)
	}
	return d, nil
}

func (d *Display) Update(s Status) {
	if d.last != nil && *d.last == s {
		return
	}
	if err := d.dev.Draw(d.dev.Bounds(), render(s), image.Point{}); err != nil {
		log.Printf("indicator: error updating display: %v", err)
		return
	}
	d.last = &s
}

// Close releases the I2C bus.
func (d *Display) Close() error {
	if d.bus == nil {
		return nil
	}
	return d.bus.Close()
}

func (d *Display) splash() error {
	img, drawer := canvas()
	drawLine(drawer, 16, "Gas Datalogger")
	drawLine(drawer, 40, "Starting...")
	return d.dev.Draw(d.dev.Bounds(), img, image.Point{})
}

func render(s Status) *image1bit.VerticalLSB {
	img, drawer := canvas()

	state := "LOGGING"
	switch {
	case s.Code.IsFatal():
		state = "STOPPED"
	case s.Code.IsWarning():
		state = "WARNING"
	}
	drawLine(drawer, 12, fmt.Sprintf("%s %d", state, int(s.Code)))
	drawLine(drawer, 26, fmt.Sprintf("File: %d", s.FileCounter))
	drawLine(drawer, 40, fmt.Sprintf("Pos: %d", s.Cursor))
	drawLine(drawer, 54, fmt.Sprintf("Recs: %d", s.Records))
	return img
}

func canvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(drawer *font.Drawer, y int, text string) {
	drawer.Dot = fixed.P(0, y)
	drawer.DrawString(text)
}
