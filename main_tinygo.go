//go:build tinygo

package main

import (
	"machine"

	"tinygo.org/x/drivers/st7789"

	"panelport/app"
	"panelport/hal"
	"panelport/port"
)

// Raspberry Pi Pico wiring of a 320x240 ST7789 module and a GT911 breakout.
const (
	pinDC  = machine.GPIO20
	pinCS  = machine.GPIO17
	pinRST = machine.GPIO21
	pinBL  = machine.GPIO22

	panelWidth  = 320
	panelHeight = 240
)

func main() {
	machine.SPI0.Configure(machine.SPIConfig{
		Mode:      0,
		SCK:       machine.GPIO18,
		SDO:       machine.GPIO19,
		Frequency: 62_500_000,
	})
	display := st7789.New(machine.SPI0, pinRST, pinDC, pinCS, machine.NoPin)
	display.Configure(st7789.Config{
		Width:    panelHeight,
		Height:   panelWidth,
		Rotation: st7789.ROTATION_90,
	})

	machine.I2C0.Configure(machine.I2CConfig{
		SDA:       machine.GPIO4,
		SCL:       machine.GPIO5,
		Frequency: 400 * machine.KHz,
	})

	b := hal.NewWithDevices(hal.Devices{
		Display:   &display,
		I2C:       machine.I2C0,
		Backlight: pinBL,
		UART:      machine.DefaultUART,
		Info:      hal.ChipInfo{Model: machine.Device, Cores: 2},
	})

	cfg := app.DefaultConfig()
	cfg.Port.Width, cfg.Port.Height = panelWidth, panelHeight
	cfg.Port.Buffering = port.BufferSingle
	app.Run(b, cfg)
}
