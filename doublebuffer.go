package st77xx

import "periph.io/x/devices/v3/st77xx/rgb565"

// frameCaps returns the capabilities requested for full-frame surfaces.
func (d *Dev) frameCaps() Caps {
	if d.usePSRAM {
		return Cap8Bit | CapSPIRAM
	}
	return Cap8Bit
}

// InitDoubleBuffers allocates the front and back full-frame surfaces. It does
// nothing when both are already allocated. On failure nothing stays allocated
// and ErrNoMemory is returned.
func (d *Dev) InitDoubleBuffers() error {
	if d.front != nil && d.back != nil {
		return nil
	}
	d.ReleaseDoubleBuffers()

	caps := d.frameCaps()
	n := d.frameSize()
	a := d.alloc.Alloc(n, caps)
	if a == nil {
		d.log.Error("front buffer allocation failed", "bytes", n, "caps", caps.String())
		return ErrNoMemory
	}
	b := d.alloc.Alloc(n, caps)
	if b == nil {
		d.alloc.Free(a)
		d.log.Error("back buffer allocation failed", "bytes", n, "caps", caps.String())
		return ErrNoMemory
	}
	d.front = rgb565.Wrap(a, d.rect)
	d.back = rgb565.Wrap(b, d.rect)
	d.log.Info("double buffers allocated", "bytes", 2*n, "caps", caps.String())
	return nil
}

// DrawBuffer returns the back surface, or nil if double buffering is not
// initialized. The surface is owned by the device.
func (d *Dev) DrawBuffer() *rgb565.Image {
	return d.back
}

// SwapAndPresent makes the back surface the front one and sends it to the
// panel. It does nothing when double buffering is not initialized.
func (d *Dev) SwapAndPresent() error {
	if d.front == nil || d.back == nil {
		return nil
	}
	if d.halted {
		return ErrHalted
	}
	d.front, d.back = d.back, d.front
	return d.flush(d.front.Pix)
}

// ReleaseDoubleBuffers frees both surfaces. It is safe to call repeatedly.
func (d *Dev) ReleaseDoubleBuffers() {
	if d.front != nil {
		d.alloc.Free(d.front.Pix)
		d.front = nil
	}
	if d.back != nil {
		d.alloc.Free(d.back.Pix)
		d.back = nil
	}
}
