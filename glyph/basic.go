package glyph

import (
	"image"

	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Basic renders the runes of m from basicfont.Face7x13 into a 7x13 bitmap font.
// Runes outside the face's ranges get a blank glyph rather than the face's
// replacement box.
func Basic(m Map) *Font {
	return fromFace(basicfont.Face7x13, m)
}

func fromFace(face *basicfont.Face, m Map) *Font {
	width, height := face.Advance, face.Ascent+face.Descent
	f := &Font{
		Width:  width,
		Height: height,
		Data:   make([]byte, glyphCount(m)*height),
		Map:    m,
	}
	for _, e := range m {
		if !covers(face, e.Rune) {
			continue
		}
		dr, mask, mp, _, ok := face.Glyph(fixed.P(0, face.Ascent), e.Rune)
		if !ok {
			continue
		}
		rows := f.Data[e.Index*height : (e.Index+1)*height]
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if !image.Pt(x, y).In(dr) {
					continue
				}
				_, _, _, a := mask.At(mp.X+x-dr.Min.X, mp.Y+y-dr.Min.Y).RGBA()
				if a >= 0x8000 {
					rows[y] |= 0x80 >> x
				}
			}
		}
	}
	return f
}

func covers(face *basicfont.Face, r rune) bool {
	for _, rng := range face.Ranges {
		if rng.Low <= r && r < rng.High {
			return true
		}
	}
	return false
}
