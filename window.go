package st77xx

import "image"

// window remembers the addressing rectangle last sent to the controller, so a
// full-screen flush can skip CASET/RASET when the panel is already addressed
// for it. A RAMWR without re-addressing restarts at the top of the last window.
type window struct {
	valid bool
	r     image.Rectangle // Panel coordinates, Max exclusive
}

// setWindow addresses the inclusive rectangle (x0,y0)-(x1,y1), ordered and
// clamped to the panel, and opens it for writing.
func (d *Dev) setWindow(x0, y0, x1, y1 int) error {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	x0, x1 = clamp(x0, 0, d.rect.Dx()-1), clamp(x1, 0, d.rect.Dx()-1)
	y0, y1 = clamp(y0, 0, d.rect.Dy()-1), clamp(y1, 0, d.rect.Dy()-1)

	// Unknown until every command went through.
	d.win.valid = false

	xs, xe := x0+d.panel.OffsetX, x1+d.panel.OffsetX
	ys, ye := y0+d.panel.OffsetY, y1+d.panel.OffsetY
	if err := d.ch.commandArgs(cmdCASET, byte(xs>>8), byte(xs), byte(xe>>8), byte(xe)); err != nil {
		return err
	}
	if err := d.ch.commandArgs(cmdRASET, byte(ys>>8), byte(ys), byte(ye>>8), byte(ye)); err != nil {
		return err
	}
	if err := d.ch.command(cmdRAMWR); err != nil {
		return err
	}
	d.win = window{valid: true, r: image.Rect(x0, y0, x1+1, y1+1)}
	d.log.Debug("window", "x0", x0, "y0", y0, "x1", x1, "y1", y1)
	return nil
}

// setWindowRect addresses r, given in panel coordinates with Max exclusive.
func (d *Dev) setWindowRect(r image.Rectangle) error {
	return d.setWindow(r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1)
}

// flush streams a full frame, re-addressing only if the cached window is not
// the whole panel.
func (d *Dev) flush(pixels []byte) error {
	if d.win.valid && d.win.r == d.rect {
		if err := d.ch.command(cmdRAMWR); err != nil {
			return err
		}
	} else if err := d.setWindowRect(d.rect); err != nil {
		return err
	}
	return d.ch.send(pixels)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
