// Package glyph rasterizes UTF-8 text with fixed-size bitmap fonts onto rgb565 surfaces.
//
// A font file holds one byte per glyph row, Height rows per glyph, glyphs in the
// order of the font's Map. Bit k of a row, counted from the most significant bit,
// is column k of the glyph, so glyphs are at most 8 pixels wide.
package glyph

import (
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"unicode/utf8"

	"periph.io/x/devices/v3/st77xx/rgb565"
)

// LineSpacing is the number of unscaled blank rows between two text lines.
const LineSpacing = 2

// Mapping associates a code point with the index of its glyph in the font data.
type Mapping struct {
	Rune  rune
	Index int
}

// Map is an ordered code point to glyph index table. Lookups scan it linearly.
type Map []Mapping

// NewMap builds a Map assigning consecutive glyph indices to runes.
func NewMap(runes ...rune) Map {
	m := make(Map, len(runes))
	for i, r := range runes {
		m[i] = Mapping{Rune: r, Index: i}
	}
	return m
}

// Lookup returns the glyph index of r.
func (m Map) Lookup(r rune) (int, bool) {
	for _, e := range m {
		if e.Rune == r {
			return e.Index, true
		}
	}
	return -1, false
}

// DefaultMap covers printable ASCII, the Spanish Latin-1 letters and punctuation,
// and two CJK glyphs.
var DefaultMap = NewMap(append(asciiRunes(),
	'¡', '¿', 'Ñ', 'á', 'é', 'í', 'ñ', 'ó', 'ú', 'ü', '月', '你')...)

func asciiRunes() []rune {
	r := make([]rune, 0, 96)
	for c := rune(32); c <= 127; c++ {
		r = append(r, c)
	}
	return r
}

// Font is a fixed-size bitmap font.
type Font struct {
	Width  int    // Glyph width in pixels (1-8)
	Height int    // Glyph height in rows
	Data   []byte // Height bytes per glyph
	Map    Map
}

// ErrSize is returned when font data does not match the glyph count and height.
var ErrSize = errors.New("glyph: font data size mismatch")

// New validates the font geometry against data.
func New(width, height int, data []byte, m Map) (*Font, error) {
	if width < 1 || width > 8 {
		return nil, fmt.Errorf("glyph: width %d out of range 1-8", width)
	}
	if height < 1 {
		return nil, fmt.Errorf("glyph: height %d must be positive", height)
	}
	if len(data) != glyphCount(m)*height {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSize, len(data), glyphCount(m)*height)
	}
	return &Font{Width: width, Height: height, Data: data, Map: m}, nil
}

// Load reads a font file of exactly glyphCount(m)*height bytes from fsys.
func Load(fsys fs.FS, name string, width, height int, m Map) (*Font, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("glyph: %w", err)
	}
	defer f.Close()

	want := glyphCount(m) * height
	data := make([]byte, want)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSize, name, err)
	}
	return New(width, height, data, m)
}

func glyphCount(m Map) int {
	n := 0
	for _, e := range m {
		if e.Index+1 > n {
			n = e.Index + 1
		}
	}
	return n
}

// Bounds returns the unscaled size of one glyph cell.
func (f *Font) Bounds() image.Point {
	return image.Pt(f.Width, f.Height)
}

// glyph returns the rows of glyph index, or nil if the data does not cover it.
func (f *Font) glyph(index int) []byte {
	start := index * f.Height
	if index < 0 || start+f.Height > len(f.Data) {
		return nil
	}
	return f.Data[start : start+f.Height]
}

// DrawText draws text at (x, y) and returns the cursor position after the last
// code point.
//
// A '\n' moves the cursor back to x and down one line. Code points missing from
// the font's map draw nothing but still advance the cursor by one glyph. Invalid
// UTF-8 advances one byte at a time. A nil font or surface draws nothing.
func DrawText(dst *rgb565.Image, text string, x, y int, c rgb565.Color, scale int, f *Font) image.Point {
	cursor := image.Pt(x, y)
	if dst == nil || f == nil {
		return cursor
	}
	if scale < 1 {
		scale = 1
	}
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size

		if r == '\n' {
			cursor.X = x
			cursor.Y += (f.Height + LineSpacing) * scale
			continue
		}
		if r != utf8.RuneError {
			if idx, ok := f.Map.Lookup(r); ok {
				f.drawGlyph(dst, cursor.X, cursor.Y, idx, c, scale)
			}
		}
		cursor.X += f.Width * scale
	}
	return cursor
}

func (f *Font) drawGlyph(dst *rgb565.Image, x, y, index int, c rgb565.Color, scale int) {
	rows := f.glyph(index)
	for row, bits := range rows {
		for col := 0; col < f.Width; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}
			if scale == 1 {
				dst.SetRGB565(x+col, y+row, c)
			} else {
				dst.FillRect(x+col*scale, y+row*scale, scale, scale, c)
			}
		}
	}
}

// Measure returns the size in pixels of the box DrawText covers for text.
func (f *Font) Measure(text string, scale int) image.Point {
	if scale < 1 {
		scale = 1
	}
	lines, cols, maxCols := 1, 0, 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r == '\n' {
			lines++
			cols = 0
			continue
		}
		cols++
		if cols > maxCols {
			maxCols = cols
		}
	}
	return image.Pt(maxCols*f.Width*scale, (lines*(f.Height+LineSpacing)-LineSpacing)*scale)
}
