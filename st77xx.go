// Package st77xx controls ST77xx-class RGB565 TFT displays via SPI.
//
// See doc.go for an overview.
package st77xx

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"periph.io/x/devices/v3/st77xx/rgb565"
)

// Controller commands.
const (
	cmdSWRESET  = 0x01
	cmdSLPOUT   = 0x11
	cmdNORON    = 0x13
	cmdINVOFF   = 0x20
	cmdINVON    = 0x21
	cmdDISPOFF  = 0x28
	cmdDISPON   = 0x29
	cmdCASET    = 0x2A
	cmdRASET    = 0x2B
	cmdRAMWR    = 0x2C
	cmdVSCRDEF  = 0x33
	cmdMADCTL   = 0x36
	cmdVSCRSADD = 0x37
	cmdCOLMOD   = 0x3A
	cmdPORCTRL  = 0xB2
	cmdGCTRL    = 0xB7
	cmdVCOMS    = 0xBB
)

const (
	defaultTransferSize = 4096
	defaultSpeed        = 40 * physic.MegaHertz
	maxStripeHeight     = 20
	backlightFreq       = 5 * physic.KiloHertz
)

var (
	// ErrHalted is returned by operations on a halted device.
	ErrHalted = errors.New("st77xx: halted")
	// ErrNoMemory is returned when the allocator cannot provide a surface.
	ErrNoMemory = errors.New("st77xx: out of memory")
	// ErrFrameSize is returned when pixel data does not cover exactly one frame.
	ErrFrameSize = errors.New("st77xx: invalid buffer size")
)

// sleep is replaced in tests.
var sleep = time.Sleep

// Opts is the configuration for the display.
type Opts struct {
	Panel Panel // Panel model (default: ST7796S)

	StripeHeight int              // Rows per stripe; must divide Panel.Height (default: largest divisor ≤ 20)
	TransferSize int              // Transfer buffer size in bytes (default: 4096)
	Speed        physic.Frequency // SPI clock (default: 40MHz)
	UsePSRAM     bool             // Place full-frame surfaces and preloaded frames in PSRAM

	// Optional pins
	RST gpio.PinIO  // Reset pin (nil: software reset only)
	BL  gpio.PinOut // Backlight pin, PWM capable (nil: backlight not controlled)

	Allocator Allocator    // Buffer allocator (default: HeapAllocator)
	Logger    *slog.Logger // Logger (default: discard)
}

// Info describes a device.
type Info struct {
	Controller   string
	Width        int
	Height       int
	Speed        physic.Frequency
	PSRAM        bool
	TransferSize int
	StripeHeight int
	StripeCount  int
	Initialized  bool
}

// Dev is the device handle for the display. It owns every surface and buffer
// it hands out; none of its methods are safe for concurrent use.
type Dev struct {
	// Communication
	ch  *channel
	rst gpio.PinIO
	bl  gpio.PinOut

	// Configuration
	panel        Panel
	rect         image.Rectangle
	orientation  Orientation
	speed        physic.Frequency
	usePSRAM     bool
	stripeHeight int
	alloc        Allocator
	log          *slog.Logger

	// Addressing window cache
	win window

	// Full-frame double buffer
	front, back *rgb565.Image

	// Stripe renderer
	stripe stripeState

	// Preloaded animation frames
	frames [][]byte

	// State
	initialized bool
	halted      bool
}

var _ display.Drawer = (*Dev)(nil)

// NewSPI returns a device connected over SPI.
//
// The SPI port is configured for opts.Speed, Mode0 (CPOL=0, CPHA=0), 8-bit
// transfers. The dc (Data/Command) GPIO pin must be provided.
//
// opts can be nil to use defaults (ST7796S 480x320).
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	o, err := withDefaults(opts)
	if err != nil {
		return nil, err
	}
	c, err := p.Connect(o.Speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("st77xx: failed to connect SPI: %w", err)
	}
	return newDev(c, dc, o)
}

// New returns a device using an already configured connection, e.g. a
// conntest recorder or a non-SPI bridge.
func New(c conn.Conn, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	o, err := withDefaults(opts)
	if err != nil {
		return nil, err
	}
	return newDev(c, dc, o)
}

// withDefaults validates opts and fills in defaults on a copy.
func withDefaults(opts *Opts) (Opts, error) {
	var o Opts
	if opts != nil {
		o = *opts
	}
	if o.Panel.Width == 0 && o.Panel.Height == 0 {
		o.Panel = ST7796S
	}
	if err := o.Panel.validate(); err != nil {
		return o, err
	}
	if o.StripeHeight == 0 {
		o.StripeHeight = defaultStripeHeight(o.Panel.Height)
	}
	if o.StripeHeight < 0 || o.StripeHeight > o.Panel.Height || o.Panel.Height%o.StripeHeight != 0 {
		return o, fmt.Errorf("st77xx: stripe height %d does not divide panel height %d", o.StripeHeight, o.Panel.Height)
	}
	if o.TransferSize == 0 {
		o.TransferSize = defaultTransferSize
	}
	if o.TransferSize < 2 {
		return o, fmt.Errorf("st77xx: transfer size %d too small", o.TransferSize)
	}
	if o.Speed == 0 {
		o.Speed = defaultSpeed
	}
	if o.Allocator == nil {
		o.Allocator = HeapAllocator{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o, nil
}

// defaultStripeHeight returns the largest divisor of height not above maxStripeHeight.
func defaultStripeHeight(height int) int {
	for h := min(height, maxStripeHeight); h > 1; h-- {
		if height%h == 0 {
			return h
		}
	}
	return 1
}

func newDev(c conn.Conn, dc gpio.PinOut, o Opts) (*Dev, error) {
	if dc == nil {
		return nil, errors.New("st77xx: DC pin is required")
	}
	log := o.Logger.With("panel", o.Panel.Name)
	d := &Dev{
		rst:          o.RST,
		bl:           o.BL,
		panel:        o.Panel,
		rect:         image.Rect(0, 0, o.Panel.Width, o.Panel.Height),
		orientation:  o.Panel.Orientation,
		speed:        o.Speed,
		usePSRAM:     o.UsePSRAM,
		stripeHeight: o.StripeHeight,
		alloc:        o.Allocator,
		log:          log,
	}
	d.ch = newChannel(c, dc, o.Allocator, o.TransferSize, o.Panel.ByteOrder != LittleEndian, log)

	if err := d.powerOn(); err != nil {
		d.ch.release(d.alloc)
		return nil, err
	}
	return d, nil
}

// powerOn resets the controller and sends the power-on sequence.
func (d *Dev) powerOn() error {
	d.log.Info("initializing", "width", d.rect.Dx(), "height", d.rect.Dy(), "speed", d.speed.String())

	if d.rst != nil {
		if err := d.rst.Out(gpio.Low); err != nil {
			return fmt.Errorf("st77xx: failed to pull RST low: %w", err)
		}
		sleep(10 * time.Millisecond)
		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("st77xx: failed to pull RST high: %w", err)
		}
		sleep(120 * time.Millisecond)
	}
	// Software reset restores the register defaults.
	if err := d.ch.command(cmdSWRESET); err != nil {
		return err
	}
	sleep(120 * time.Millisecond)

	// Datasheet: 120ms after sleep out before the next command.
	if err := d.ch.command(cmdSLPOUT); err != nil {
		return err
	}
	sleep(120 * time.Millisecond)

	inversion := byte(cmdINVOFF)
	if d.panel.Inversion {
		inversion = cmdINVON
	}
	steps := []struct {
		cmd  byte
		args []byte
	}{
		{cmdCOLMOD, []byte{0x55}},                           // 16 bits per pixel
		{cmdMADCTL, []byte{d.panel.MADCTL[d.orientation]}}, // Scan order and RGB/BGR for the orientation
		// Porch: back 12, front 12 lines, separate porch off, idle and partial 3/3
		{cmdPORCTRL, []byte{0x0C, 0x0C, 0x00, 0x33, 0x33}},
		{cmdGCTRL, []byte{d.panel.GateControl}}, // Gate voltages: VGH in bits 6:4, VGL in bits 2:0
		{cmdVCOMS, []byte{d.panel.VCOMS}},       // VCOM voltage
		{inversion, nil},                        // Color inversion required by the glass
		{cmdNORON, nil},                         // Normal display mode
		{cmdDISPON, nil},                        // Display ON
	}
	for _, s := range steps {
		if err := d.ch.commandArgs(s.cmd, s.args...); err != nil {
			return err
		}
	}
	sleep(120 * time.Millisecond)

	if err := d.SetBacklight(255); err != nil {
		return err
	}
	d.initialized = true
	return nil
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// frameSize is the size in bytes of one full frame.
func (d *Dev) frameSize() int {
	return 2 * d.rect.Dx() * d.rect.Dy()
}

// Info returns a description of the device.
func (d *Dev) Info() Info {
	return Info{
		Controller:   d.panel.Name,
		Width:        d.rect.Dx(),
		Height:       d.rect.Dy(),
		Speed:        d.speed,
		PSRAM:        d.usePSRAM,
		TransferSize: len(d.ch.buf),
		StripeHeight: d.stripeHeight,
		StripeCount:  d.StripeCount(),
		Initialized:  d.initialized,
	}
}

// Write writes one raw frame (2 bytes per pixel, low byte first, row-major).
// The data must be exactly Width*Height*2 bytes.
func (d *Dev) Write(pixels []byte) (int, error) {
	if d.halted {
		return 0, ErrHalted
	}
	if len(pixels) != d.frameSize() {
		return 0, ErrFrameSize
	}
	if err := d.flush(pixels); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// Flush sends a full-panel surface. Only the RAMWR command is repeated when the
// panel is already addressed for a full frame. A nil surface is ignored.
func (d *Dev) Flush(img *rgb565.Image) error {
	pix, err := d.framePix(img)
	if pix == nil || err != nil {
		return err
	}
	return d.flush(pix)
}

// FlushImmediate sends a full-panel surface into whatever window is currently
// addressed, without checking or updating the window cache.
func (d *Dev) FlushImmediate(img *rgb565.Image) error {
	pix, err := d.framePix(img)
	if pix == nil || err != nil {
		return err
	}
	if err := d.ch.command(cmdRAMWR); err != nil {
		return err
	}
	return d.ch.send(pix)
}

func (d *Dev) framePix(img *rgb565.Image) ([]byte, error) {
	if img == nil {
		return nil, nil
	}
	if d.halted {
		return nil, ErrHalted
	}
	if img.Rect.Size() != d.rect.Size() || img.Stride != 2*d.rect.Dx() || len(img.Pix) < d.frameSize() {
		return nil, ErrFrameSize
	}
	return img.Pix[:d.frameSize()], nil
}

// Draw implements display.Drawer.
//
// The source is converted in bands no larger than one stripe and each band is
// sent to its own window, so drawing needs no full-frame buffer. A full-panel
// *rgb565.Image is streamed as is.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return ErrHalted
	}
	dst = dst.Intersect(d.rect)
	if dst.Empty() {
		return nil
	}

	if img, ok := src.(*rgb565.Image); ok && dst == d.rect && sp == (image.Point{}) && img.Rect == d.rect {
		return d.Flush(img)
	}

	rows := min(dst.Dy(), max(1, d.stripeHeight*d.rect.Dx()/dst.Dx()))
	buf := d.alloc.Alloc(2*dst.Dx()*rows, CapDMA|Cap8Bit)
	if buf == nil {
		d.log.Error("draw band allocation failed", "bytes", 2*dst.Dx()*rows)
		return ErrNoMemory
	}
	defer d.alloc.Free(buf)

	for y := dst.Min.Y; y < dst.Max.Y; y += rows {
		band := image.Rect(dst.Min.X, y, dst.Max.X, min(y+rows, dst.Max.Y))
		img := rgb565.Wrap(buf, band)
		draw.Draw(img, band, src, sp.Add(band.Min.Sub(dst.Min)), draw.Src)
		if err := d.setWindowRect(band); err != nil {
			return err
		}
		if err := d.ch.send(img.Pix); err != nil {
			return err
		}
	}
	return nil
}

// SetOrientation changes the memory access order. The window cache is
// invalidated, the next flush re-addresses the panel.
func (d *Dev) SetOrientation(o Orientation) error {
	if d.halted {
		return ErrHalted
	}
	if int(o) >= len(d.panel.MADCTL) {
		return fmt.Errorf("st77xx: invalid orientation %d", o)
	}
	d.win.valid = false
	if err := d.ch.commandArgs(cmdMADCTL, d.panel.MADCTL[o]); err != nil {
		return err
	}
	d.orientation = o
	return nil
}

// Orientation returns the current orientation.
func (d *Dev) Orientation() Orientation {
	return d.orientation
}

// Invert inverts the display colors (black becomes white and vice versa),
// relative to the panel's normal inversion setting.
func (d *Dev) Invert(invert bool) error {
	if d.halted {
		return ErrHalted
	}
	cmd := byte(cmdINVOFF)
	if invert != d.panel.Inversion {
		cmd = cmdINVON
	}
	return d.ch.command(cmd)
}

// SetBacklight sets the backlight PWM duty cycle (0-255). It does nothing
// without a backlight pin.
func (d *Dev) SetBacklight(duty uint8) error {
	if d.bl == nil {
		return nil
	}
	dc := gpio.Duty(uint64(duty) * uint64(gpio.DutyMax) / 255)
	if err := d.bl.PWM(dc, backlightFreq); err != nil {
		return fmt.Errorf("st77xx: failed to set backlight: %w", err)
	}
	return nil
}

// SetScrollArea defines the vertical scroll region between a fixed top and a
// fixed bottom area, in rows.
func (d *Dev) SetScrollArea(top, bottom int) error {
	if d.halted {
		return ErrHalted
	}
	h := d.rect.Dy()
	if top < 0 || bottom < 0 || top+bottom > h {
		return errors.New("st77xx: scroll area out of range")
	}
	scroll := h - top - bottom
	return d.ch.commandArgs(cmdVSCRDEF,
		byte(top>>8), byte(top),
		byte(scroll>>8), byte(scroll),
		byte(bottom>>8), byte(bottom),
	)
}

// SetScroll sets the first row shown at the top of the scroll area.
func (d *Dev) SetScroll(line int) error {
	if d.halted {
		return ErrHalted
	}
	if line < 0 || line >= d.rect.Dy() {
		return errors.New("st77xx: scroll line out of range")
	}
	return d.ch.commandArgs(cmdVSCRSADD, byte(line>>8), byte(line))
}

// StopScroll returns the display to normal mode.
func (d *Dev) StopScroll() error {
	if d.halted {
		return ErrHalted
	}
	return d.ch.command(cmdNORON)
}

// Halt turns the display and backlight off.
// After calling Halt, the display will not respond to further commands
// until the device is re-initialized.
func (d *Dev) Halt() error {
	d.halted = true
	if err := d.SetBacklight(0); err != nil {
		return err
	}
	return d.ch.command(cmdDISPOFF)
}

// Cleanup releases every surface, the preloaded frames and the transfer buffer.
// The device must not be reused afterwards: drawing and panel commands return
// ErrHalted.
func (d *Dev) Cleanup() {
	d.halted = true
	d.ReleaseDoubleBuffers()
	d.ReleaseStripeMode()
	d.ReleasePreloaded()
	d.ch.release(d.alloc)
	d.win.valid = false
	d.initialized = false
	d.log.Info("resources released")
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("st77xx.Dev{%s %dx%d}", d.panel.Name, d.rect.Dx(), d.rect.Dy())
}
