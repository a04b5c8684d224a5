// Package rgb565 provides the 16-bit packed color surface used by the st77xx driver.
//
// Each pixel is a 5/6/5 packed RGB value stored in two bytes, low byte first, rows
// contiguous:
//
//	bit   15..11  10..5   4..0
//	      RRRRR   GGGGGG  BBBBB
//
//	Pix:  [lo0 hi0 lo1 hi1 ...]
//
// The driver swaps each pair on the way to the panel when the controller expects the
// high byte first, so raw frame files produced on a little-endian host can be streamed
// without conversion.
//
// This package provides:
//
// - Color: a packed 16-bit color, convertible to and from color.Color
// - Model: a color model converting standard Go colors to Color
// - Image: a draw.Image with clipped pixel, rectangle and fill primitives
//
// Example usage:
//
//	img := rgb565.NewImage(image.Rect(0, 0, 480, 320))
//	img.Fill(rgb565.FromRGB(0, 0, 64))
//	img.FillRect(10, 10, 100, 40, rgb565.White)
//	img.SetRGB565(5, 5, rgb565.FromRGB(255, 0, 0))
package rgb565
