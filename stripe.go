package st77xx

import (
	"errors"
	"fmt"
	"image"
	"io"

	"periph.io/x/devices/v3/st77xx/rgb565"
)

// StripeDone is returned by FlushNext once the last stripe of a frame has been
// sent, or when no frame is in progress.
const StripeDone = -1

// stripeState tracks the stripe renderer. buf is nil while idle; next is
// StripeDone between frames.
type stripeState struct {
	buf  *rgb565.Image
	next int
}

// InitStripeMode allocates the stripe surface, one stripe of panel width. It
// does nothing if stripe mode is already initialized.
func (d *Dev) InitStripeMode() error {
	if d.stripe.buf != nil {
		return nil
	}
	n := 2 * d.rect.Dx() * d.stripeHeight
	b := d.alloc.Alloc(n, CapDMA|Cap8Bit)
	if b == nil {
		d.log.Error("stripe buffer allocation failed", "bytes", n)
		return ErrNoMemory
	}
	d.stripe = stripeState{
		buf:  rgb565.Wrap(b, image.Rect(0, 0, d.rect.Dx(), d.stripeHeight)),
		next: StripeDone,
	}
	d.log.Info("stripe mode", "bytes", n, "stripes", d.StripeCount())
	return nil
}

// StripeBuffer returns the stripe surface, or nil if stripe mode is not
// initialized. Its coordinates are stripe-local: (0,0) is the top-left pixel of
// the stripe currently being rendered.
func (d *Dev) StripeBuffer() *rgb565.Image {
	return d.stripe.buf
}

// StripeHeight returns the number of rows per stripe.
func (d *Dev) StripeHeight() int {
	return d.stripeHeight
}

// StripeCount returns the number of stripes per frame.
func (d *Dev) StripeCount() int {
	return d.rect.Dy() / d.stripeHeight
}

// StripeBand returns the panel rectangle covered by stripe i.
func (d *Dev) StripeBand(i int) image.Rectangle {
	y := i * d.stripeHeight
	return image.Rect(0, y, d.rect.Dx(), y+d.stripeHeight).Intersect(d.rect)
}

// BeginFrame starts a new frame; the next FlushNext sends stripe 0. It does
// nothing if stripe mode is not initialized.
func (d *Dev) BeginFrame() {
	if d.stripe.buf != nil {
		d.stripe.next = 0
	}
}

// FlushNext sends the stripe surface as the next stripe of the frame and
// returns the index of the following stripe, or StripeDone after the last one.
// Without a frame in progress it sends nothing and returns StripeDone.
func (d *Dev) FlushNext() (int, error) {
	if d.stripe.buf == nil || d.stripe.next == StripeDone {
		return StripeDone, nil
	}
	if d.halted {
		return StripeDone, ErrHalted
	}
	i := d.stripe.next
	if err := d.setWindowRect(d.StripeBand(i)); err != nil {
		return StripeDone, err
	}
	if err := d.ch.send(d.stripe.buf.Pix); err != nil {
		return StripeDone, err
	}
	if i+1 < d.StripeCount() {
		d.stripe.next = i + 1
	} else {
		d.stripe.next = StripeDone
	}
	return d.stripe.next, nil
}

// StripeFill fills the whole stripe surface with c.
func (d *Dev) StripeFill(c rgb565.Color) {
	d.stripe.buf.Fill(c)
}

// StripeFillRect fills a rectangle in stripe-local coordinates, clipped to the
// stripe.
func (d *Dev) StripeFillRect(x, y, w, h int, c rgb565.Color) {
	d.stripe.buf.FillRect(x, y, w, h, c)
}

// ReleaseStripeMode frees the stripe surface and returns to idle.
func (d *Dev) ReleaseStripeMode() {
	if d.stripe.buf != nil {
		d.alloc.Free(d.stripe.buf.Pix)
	}
	d.stripe = stripeState{next: StripeDone}
}

// DrawFromStream reads one raw frame from r, one stripe at a time, and sends
// it to the panel. The full-panel window is addressed once. A short read is
// padded with zeros and ends the stream; the rest of the frame is sent black.
// Stripe mode must be initialized.
func (d *Dev) DrawFromStream(r io.Reader) error {
	if d.stripe.buf == nil {
		return errors.New("st77xx: stripe mode not initialized")
	}
	if d.halted {
		return ErrHalted
	}
	if err := d.setWindowRect(d.rect); err != nil {
		return err
	}
	pix := d.stripe.buf.Pix
	eof := false
	for i := range d.StripeCount() {
		n := 0
		if !eof {
			var err error
			n, err = io.ReadFull(r, pix)
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				d.log.Warn("short stream", "stripe", i, "bytes", n)
				eof = true
			case err != nil:
				return fmt.Errorf("st77xx: failed to read stripe %d: %w", i, err)
			}
		}
		clear(pix[n:])
		if err := d.ch.send(pix); err != nil {
			return err
		}
	}
	return nil
}
