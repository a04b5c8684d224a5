package rgb565

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRGB(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    Color
	}{
		{"black", 0, 0, 0, 0x0000},
		{"white", 255, 255, 255, 0xFFFF},
		{"red", 255, 0, 0, 0xF800},
		{"green", 0, 255, 0, 0x07E0},
		{"blue", 0, 0, 255, 0x001F},
		{"low bits dropped", 7, 3, 7, 0x0000},
		{"mid gray", 0x80, 0x80, 0x80, 0x8410},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromRGB(tt.r, tt.g, tt.b))
		})
	}
}

func TestColorRGBA(t *testing.T) {
	tests := []struct {
		name       string
		c          Color
		wr, wg, wb uint32
	}{
		{"black", Black, 0, 0, 0},
		{"white", White, 0xFFFF, 0xFFFF, 0xFFFF},
		{"red", Red, 0xFFFF, 0, 0},
		{"green", Green, 0, 0xFFFF, 0},
		{"blue", Blue, 0, 0, 0xFFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, a := tt.c.RGBA()
			assert.Equal(t, []uint32{tt.wr, tt.wg, tt.wb, 0xFFFF}, []uint32{r, g, b, a})
		})
	}
}

func TestModelConvert(t *testing.T) {
	tests := []struct {
		name  string
		input color.Color
		want  Color
	}{
		{"passthrough", Color(0x1234), 0x1234},
		{"black", color.Black, Black},
		{"white", color.White, White},
		{"rgba red", color.RGBA{0xFF, 0, 0, 0xFF}, Red},
		{"matches FromRGB", color.RGBA{0x12, 0x34, 0x56, 0xFF}, FromRGB(0x12, 0x34, 0x56)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Model.Convert(tt.input).(Color))
		})
	}
}

func TestNewImage(t *testing.T) {
	tests := []struct {
		name       string
		rect       image.Rectangle
		wantStride int
		wantPixLen int
	}{
		{"480x320", image.Rect(0, 0, 480, 320), 960, 307200},
		{"stripe 480x20", image.Rect(0, 0, 480, 20), 960, 19200},
		{"odd width", image.Rect(0, 0, 3, 3), 6, 18},
		{"offset rect", image.Rect(10, 20, 14, 22), 8, 16},
		{"empty", image.Rect(0, 0, 0, 0), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := NewImage(tt.rect)
			assert.Equal(t, tt.rect, img.Rect)
			assert.Equal(t, tt.wantStride, img.Stride)
			assert.Len(t, img.Pix, tt.wantPixLen)
		})
	}
}

func TestWrap(t *testing.T) {
	buf := make([]byte, 64)
	img := Wrap(buf, image.Rect(0, 0, 4, 4))
	require.NotNil(t, img)
	assert.Len(t, img.Pix, 32)
	img.SetRGB565(0, 0, 0xBEEF)
	assert.Equal(t, []byte{0xEF, 0xBE}, buf[:2], "Wrap must share the caller's buffer")

	assert.Nil(t, Wrap(make([]byte, 31), image.Rect(0, 0, 4, 4)))
}

func TestByteLayout(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 2, 1))
	img.SetRGB565(0, 0, 0x1234)
	img.SetRGB565(1, 0, 0xABCD)
	assert.Equal(t, []byte{0x34, 0x12, 0xCD, 0xAB}, img.Pix)
	assert.Equal(t, Color(0x1234), img.RGB565At(0, 0))
	assert.Equal(t, Color(0xABCD), img.RGB565At(1, 0))
}

func TestSetOutOfBounds(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 4, 4))
	before := append([]byte(nil), img.Pix...)

	for _, pt := range []image.Point{{-1, 0}, {0, -1}, {4, 0}, {0, 4}, {100, 100}} {
		img.SetRGB565(pt.X, pt.Y, White)
		img.Set(pt.X, pt.Y, color.White)
	}
	assert.Equal(t, before, img.Pix)
	assert.Equal(t, Black, img.RGB565At(-1, -1))

	var nilImg *Image
	assert.NotPanics(t, func() {
		nilImg.SetRGB565(0, 0, White)
		nilImg.Fill(White)
		nilImg.FillRect(0, 0, 1, 1, White)
	})
}

func TestFill(t *testing.T) {
	for _, rect := range []image.Rectangle{
		image.Rect(0, 0, 1, 1),
		image.Rect(0, 0, 3, 1),
		image.Rect(0, 0, 480, 27),
		image.Rect(0, 0, 7, 5),
	} {
		img := NewImage(rect)
		img.Fill(0x1234)
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				require.Equal(t, Color(0x1234), img.RGB565At(x, y), "pixel (%d,%d) of %v", x, y, rect)
			}
		}
	}
}

func TestFillSubImage(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 4, 4))
	sub := img.SubImage(image.Rect(1, 1, 3, 3))
	sub.Fill(White)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := Black
			if x >= 1 && x < 3 && y >= 1 && y < 3 {
				want = White
			}
			assert.Equal(t, want, img.RGB565At(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestFillRectClipping(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int
		want       image.Rectangle // pixels expected to change
	}{
		{"inside", 1, 1, 2, 2, image.Rect(1, 1, 3, 3)},
		{"full width", 0, 2, 8, 3, image.Rect(0, 2, 8, 5)},
		{"straddle left", -2, 1, 4, 2, image.Rect(0, 1, 2, 3)},
		{"straddle top", 3, -3, 2, 5, image.Rect(3, 0, 5, 2)},
		{"straddle right bottom", 6, 4, 10, 10, image.Rect(6, 4, 8, 6)},
		{"covers everything", -5, -5, 100, 100, image.Rect(0, 0, 8, 6)},
		{"fully left", -10, 0, 5, 5, image.Rectangle{}},
		{"fully below", 0, 6, 5, 5, image.Rectangle{}},
		{"fully right", 8, 0, 5, 5, image.Rectangle{}},
		{"zero width", 2, 2, 0, 3, image.Rectangle{}},
		{"negative height", 2, 2, 3, -3, image.Rectangle{}},
		{"max width", 2, 0, math.MaxInt, 1, image.Rect(2, 0, 8, 1)},
		{"max height", 1, 3, 2, math.MaxInt, image.Rect(1, 3, 3, 6)},
		{"max width from far left", 4 - math.MaxInt, 2, math.MaxInt, 1, image.Rect(0, 2, 4, 3)},
		{"min origin max width", math.MinInt, 0, math.MaxInt, 1, image.Rectangle{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := NewImage(image.Rect(0, 0, 8, 6))
			img.Fill(Blue)
			img.FillRect(tt.x, tt.y, tt.w, tt.h, Red)

			for y := 0; y < 6; y++ {
				for x := 0; x < 8; x++ {
					want := Blue
					if (image.Point{X: x, Y: y}).In(tt.want) {
						want = Red
					}
					require.Equal(t, want, img.RGB565At(x, y), "pixel (%d,%d)", x, y)
				}
			}
		})
	}
}

func TestDrawInterop(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 4, 2))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{0, 0xFF, 0, 0xFF}), image.Point{}, draw.Src)
	assert.Equal(t, Green, img.RGB565At(3, 1))
	assert.Equal(t, Model, img.ColorModel())
}
