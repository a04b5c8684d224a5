package rgb565

import (
	"image"
	"image/color"
)

// Color is a 5/6/5 packed RGB color.
type Color uint16

// Common colors.
const (
	Black Color = 0x0000
	White Color = 0xFFFF
	Red   Color = 0xF800
	Green Color = 0x07E0
	Blue  Color = 0x001F
)

// FromRGB packs 8-bit components, keeping the 5/6/5 most significant bits.
func FromRGB(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGBA implements color.Color.
//
// Each channel is expanded by repeating its bit pattern, so 0 maps to 0 and an
// all-ones channel maps to 0xFFFF.
func (c Color) RGBA() (r, g, b, a uint32) {
	rBits := uint32(c & 0xF800) // RRRRR00000000000
	gBits := uint32(c & 0x07E0) // 00000GGGGGG00000
	bBits := uint32(c & 0x001F) // 00000000000BBBBB
	r = rBits | rBits>>5 | rBits>>10 | rBits>>15
	g = gBits<<5 | gBits>>1 | gBits>>7
	b = bBits<<11 | bBits<<6 | bBits<<1 | bBits>>4
	return r, g, b, 0xFFFF
}

func toRGB565(c color.Color) color.Color {
	if p, ok := c.(Color); ok {
		return p
	}
	r, g, b, _ := c.RGBA()
	return Color((r & 0xF800) | ((g & 0xFC00) >> 5) | ((b & 0xF800) >> 11))
}

// Model converts colors to Color.
var Model = color.ModelFunc(toRGB565)

// Image is a row-major RGB565 surface, two bytes per pixel, low byte first.
type Image struct {
	Pix    []byte          // Pixel data (2 bytes per pixel)
	Stride int             // Bytes per row
	Rect   image.Rectangle // Image bounds
}

// NewImage allocates an Image with the given bounds.
func NewImage(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	return &Image{
		Pix:    make([]byte, 2*w*h),
		Stride: 2 * w,
		Rect:   r,
	}
}

// Wrap returns an Image backed by buf, which must hold at least 2*Dx*Dy bytes.
// It returns nil if buf is too small.
func Wrap(buf []byte, r image.Rectangle) *Image {
	n := 2 * r.Dx() * r.Dy()
	if len(buf) < n {
		return nil
	}
	return &Image{
		Pix:    buf[:n],
		Stride: 2 * r.Dx(),
		Rect:   r,
	}
}

// ColorModel implements image.Image.
func (p *Image) ColorModel() color.Model {
	return Model
}

// Bounds implements image.Image.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At implements image.Image.
func (p *Image) At(x, y int) color.Color {
	return p.RGB565At(x, y)
}

// RGB565At returns the packed color at (x, y), or Black outside the bounds.
func (p *Image) RGB565At(x, y int) Color {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return Black
	}
	i := p.PixOffset(x, y)
	return Color(p.Pix[i]) | Color(p.Pix[i+1])<<8
}

// Set implements draw.Image.
func (p *Image) Set(x, y int, c color.Color) {
	p.SetRGB565(x, y, Model.Convert(c).(Color))
}

// SetRGB565 sets the pixel at (x, y). Writes outside the bounds are ignored.
func (p *Image) SetRGB565(x, y int, c Color) {
	if p == nil || !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	p.Pix[i] = byte(c)
	p.Pix[i+1] = byte(c >> 8)
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (p *Image) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}

// Fill sets every pixel to c.
func (p *Image) Fill(c Color) {
	if p == nil || p.Rect.Empty() {
		return
	}
	if p.Stride == 2*p.Rect.Dx() {
		fillSpan(p.Pix[:p.Stride*p.Rect.Dy()], c)
		return
	}
	for y := p.Rect.Min.Y; y < p.Rect.Max.Y; y++ {
		i := p.PixOffset(p.Rect.Min.X, y)
		fillSpan(p.Pix[i:i+2*p.Rect.Dx()], c)
	}
}

// FillRect fills the w×h rectangle at (x, y), clipped to the bounds.
// Rectangles with a zero or negative size are ignored.
func (p *Image) FillRect(x, y, w, h int, c Color) {
	if p == nil || w <= 0 || h <= 0 {
		return
	}
	x0, x1, ok := clipSpan(x, w, p.Rect.Min.X, p.Rect.Max.X)
	if !ok {
		return
	}
	y0, y1, ok := clipSpan(y, h, p.Rect.Min.Y, p.Rect.Max.Y)
	if !ok {
		return
	}
	r := image.Rect(x0, y0, x1, y1)
	start := p.PixOffset(r.Min.X, r.Min.Y)
	rowBytes := 2 * r.Dx()
	if rowBytes == p.Stride {
		// Full-width rows are contiguous.
		fillSpan(p.Pix[start:start+rowBytes*r.Dy()], c)
		return
	}
	for row := 0; row < r.Dy(); row++ {
		i := start + row*p.Stride
		fillSpan(p.Pix[i:i+rowBytes], c)
	}
}

// SubImage returns the part of p visible through r. The result shares pixels with p.
func (p *Image) SubImage(r image.Rectangle) *Image {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &Image{}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &Image{
		Pix:    p.Pix[i:],
		Stride: p.Stride,
		Rect:   r,
	}
}

// clipSpan clips the span of n > 0 units starting at v to [lo, hi). The
// distances are computed unsigned so v+n never overflows.
func clipSpan(v, n, lo, hi int) (int, int, bool) {
	if v >= hi {
		return 0, 0, false
	}
	size := min(uint(n), uint(hi)-uint(v))
	if v < lo {
		skip := uint(lo) - uint(v)
		if skip >= size {
			return 0, 0, false
		}
		size -= skip
		v = lo
	}
	return v, v + int(size), true
}

// fillSpan writes c into every pixel of b. It seeds one pixel and then doubles the
// filled prefix with copy, so large spans cost O(log n) copy calls.
func fillSpan(b []byte, c Color) {
	if len(b) < 2 {
		return
	}
	b[0] = byte(c)
	b[1] = byte(c >> 8)
	for filled := 2; filled < len(b); filled *= 2 {
		copy(b[filled:], b[:filled])
	}
}
