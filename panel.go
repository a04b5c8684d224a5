package st77xx

import (
	"fmt"
	"strings"
)

// Orientation selects the memory access order of the controller.
type Orientation uint8

const (
	Portrait Orientation = iota
	Landscape
	PortraitInverted
	LandscapeInverted
)

var orientationNames = [...]string{"portrait", "landscape", "portrait-inverted", "landscape-inverted"}

func (o Orientation) String() string {
	if int(o) < len(orientationNames) {
		return orientationNames[o]
	}
	return fmt.Sprintf("Orientation(%d)", uint8(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) {
	if int(o) >= len(orientationNames) {
		return nil, fmt.Errorf("st77xx: invalid orientation %d", uint8(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(b []byte) error {
	s := strings.ToLower(string(b))
	for i, name := range orientationNames {
		if s == name {
			*o = Orientation(i)
			return nil
		}
	}
	return fmt.Errorf("st77xx: unknown orientation %q", b)
}

// ByteOrder is the order in which the panel expects the two bytes of a pixel.
type ByteOrder uint8

const (
	// BigEndian panels take the high byte first. ST77xx controllers in 16-bit
	// SPI mode are big-endian.
	BigEndian ByteOrder = iota
	// LittleEndian panels take pixels in the same order as rgb565.Image stores them.
	LittleEndian
)

func (b ByteOrder) String() string {
	if b == LittleEndian {
		return "little-endian"
	}
	return "big-endian"
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteOrder) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteOrder) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "big-endian", "big", "be":
		*b = BigEndian
	case "little-endian", "little", "le":
		*b = LittleEndian
	default:
		return fmt.Errorf("st77xx: unknown byte order %q", text)
	}
	return nil
}

// Panel describes one panel model: geometry, RAM origin offsets and the
// controller parameters that differ between models.
type Panel struct {
	Name        string      `yaml:"name"`
	Width       int         `yaml:"width"`    // Pixels per row in the default orientation
	Height      int         `yaml:"height"`   // Rows in the default orientation
	OffsetX     int         `yaml:"offset_x"` // Column of the visible origin in controller RAM
	OffsetY     int         `yaml:"offset_y"` // Row of the visible origin in controller RAM
	Inversion   bool        `yaml:"inversion"`
	ByteOrder   ByteOrder   `yaml:"byte_order"`
	Orientation Orientation `yaml:"orientation"` // Applied at power-on
	MADCTL      [4]byte     `yaml:"madctl"`      // Indexed by Orientation
	GateControl byte        `yaml:"gate_control"`
	VCOMS       byte        `yaml:"vcoms"`
}

// Predefined panels.
var (
	// ST7796S is a 480x320 panel used in landscape.
	ST7796S = Panel{
		Name:        "ST7796S",
		Width:       480,
		Height:      320,
		ByteOrder:   BigEndian,
		Orientation: LandscapeInverted,
		// MX, MV, MY, MY|MX|MV; all with BGR.
		MADCTL:      [4]byte{0x48, 0x28, 0x88, 0xE8},
		GateControl: 0x35,
		VCOMS:       0x1A,
	}

	// ST7789 is a 135x240 panel, as found on small ESP32 boards, with its
	// visible area offset inside the 240x320 controller RAM.
	ST7789 = Panel{
		Name:        "ST7789",
		Width:       135,
		Height:      240,
		OffsetX:     52,
		OffsetY:     40,
		Inversion:   true,
		ByteOrder:   BigEndian,
		Orientation: Portrait,
		MADCTL:      [4]byte{0x40, 0x20, 0x80, 0xE0},
		GateControl: 0x75,
		VCOMS:       0x2B,
	}
)

// PanelByName returns the predefined panel with the given name.
func PanelByName(name string) (Panel, bool) {
	for _, p := range []Panel{ST7796S, ST7789} {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Panel{}, false
}

func (p *Panel) validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("st77xx: panel %q: size %dx%d must be positive", p.Name, p.Width, p.Height)
	}
	if p.OffsetX < 0 || p.OffsetY < 0 || p.OffsetX+p.Width > 0xFFFF || p.OffsetY+p.Height > 0xFFFF {
		return fmt.Errorf("st77xx: panel %q: offsets out of range", p.Name)
	}
	if int(p.Orientation) >= len(p.MADCTL) {
		return fmt.Errorf("st77xx: panel %q: invalid orientation %d", p.Name, p.Orientation)
	}
	return nil
}
