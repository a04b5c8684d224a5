// Package st77xx controls ST77xx-class RGB565 TFT displays via SPI.
//
// The driver targets hosts with little RAM: a 480×320 frame needs 300KiB, so
// besides the usual full-frame double buffer it can render a frame as a series
// of horizontal stripes through a buffer of a few KiB. It implements the
// display.Drawer interface from periph.io.
//
// # Display Characteristics
//
// - 16-bit RGB565 color (COLMOD 0x55)
// - Presets for the ST7796S (480×320) and ST7789 (135×240) panels
// - Four orientations through the MADCTL register
// - Hardware vertical scrolling
// - Display inversion
// - PWM backlight on an optional GPIO
//
// # Hardware Connection
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	SCL/SCK     → SPI Clock (SCLK)
//	SDA/MOSI    → SPI Data (MOSI)
//	DC/RS       → GPIO (any available pin)
//	CS          → SPI Chip Select
//	RST         → Optional: GPIO for hardware reset
//	BL/LED      → Optional: PWM capable GPIO
//
// # Basic Usage
//
//	package main
//
//	import (
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/devices/v3/st77xx"
//		"periph.io/x/devices/v3/st77xx/rgb565"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		host.Init()
//		port, _ := spireg.Open("")
//		dev, _ := st77xx.NewSPI(port, gpioreg.ByName("GPIO2"), &st77xx.Opts{
//			Panel: st77xx.ST7796S,
//			RST:   gpioreg.ByName("GPIO4"),
//		})
//		defer dev.Cleanup()
//
//		img := rgb565.NewImage(dev.Bounds())
//		img.Fill(rgb565.Blue)
//		dev.Flush(img)
//	}
//
// # Rendering Modes
//
// ## Double Buffer
//
// Two full-frame surfaces, allocated from PSRAM when Opts.UsePSRAM is set.
// Draw into the back surface and present it:
//
//	if err := dev.InitDoubleBuffers(); err != nil {
//		// fall back to stripes
//	}
//	img := dev.DrawBuffer()
//	img.FillRect(10, 10, 100, 50, rgb565.Red)
//	dev.SwapAndPresent()
//
// ## Stripes
//
// One stripe of Opts.StripeHeight rows is rendered and sent at a time.
// Coordinates in the stripe surface are stripe-local; StripeBand tells which
// panel rows the current stripe covers:
//
//	dev.InitStripeMode()
//	dev.BeginFrame()
//	for i := 0; i != st77xx.StripeDone; {
//		band := dev.StripeBand(i)
//		dev.StripeFill(rgb565.FromRGB(0, 0, uint8(band.Min.Y)))
//		i, _ = dev.FlushNext()
//	}
//
// DrawFromStream sends a raw frame from an io.Reader through the stripe
// surface without ever holding the whole frame.
//
// ## Preloaded Animation
//
// Preload reads numbered raw frames ("1.bin", "2.bin", ...) from an fs.FS and
// PresentFrame sends them:
//
//	n := dev.Preload(os.DirFS("/sdcard"), "anim", 60)
//	for i := range n {
//		dev.PresentFrame(i)
//	}
//
// # Pixel Format
//
// Surfaces store pixels low byte first. The driver swaps each pixel's bytes on
// the way out when the panel expects big-endian data (Panel.ByteOrder).
// Raw frame files use the surface layout.
//
// # Memory
//
// Every surface and transfer buffer comes from Opts.Allocator with capability
// flags (DMA, internal, SPIRAM). The default HeapAllocator never fails;
// BudgetAllocator simulates a fixed memory map such as ESP32S3 and reports
// per-region usage.
//
// # Compatibility with periph.io
//
// It can be used with any periph.io tool or library expecting a display.Drawer.
// Draw converts its source in stripe-sized bands and needs no full frame.
package st77xx
