package st77xx

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// minTransferSize is the smallest transfer buffer tried before giving up.
const minTransferSize = 512

// channel streams commands and pixel data to the controller. It owns the
// transfer buffer; pixel payloads are copied through it one chunk at a time.
type channel struct {
	c    conn.Conn
	dc   gpio.PinOut
	buf  []byte // nil if allocation failed; send then drops data
	swap bool   // swap the two bytes of every pixel
	log  *slog.Logger
}

// newChannel allocates a DMA capable transfer buffer of size bytes, halving the
// request down to minTransferSize when memory is short.
func newChannel(c conn.Conn, dc gpio.PinOut, alloc Allocator, size int, swap bool, log *slog.Logger) *channel {
	ch := &channel{c: c, dc: dc, swap: swap, log: log}
	if swap {
		// Chunks must not split a pixel.
		size &^= 1
	}
	for size > 0 {
		if ch.buf = alloc.Alloc(size, CapDMA|Cap8Bit); ch.buf != nil {
			break
		}
		log.Warn("transfer buffer allocation failed", "bytes", size)
		if size /= 2; size < minTransferSize {
			break
		}
		size &^= 1
	}
	if ch.buf == nil {
		log.Error("no transfer buffer, pixel data will be dropped")
	} else {
		log.Debug("transfer buffer", "bytes", len(ch.buf), "swap", swap)
	}
	return ch
}

// release returns the transfer buffer to alloc.
func (ch *channel) release(alloc Allocator) {
	if ch.buf != nil {
		alloc.Free(ch.buf)
		ch.buf = nil
	}
}

// command sends a single command byte with DC low.
func (ch *channel) command(cmd byte) error {
	if err := ch.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("st77xx: failed to set DC for command: %w", err)
	}
	return ch.c.Tx([]byte{cmd}, nil)
}

// sendSmall sends command arguments straight from p, without swapping or chunking.
func (ch *channel) sendSmall(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := ch.dc.Out(gpio.High); err != nil {
		return fmt.Errorf("st77xx: failed to set DC for data: %w", err)
	}
	return ch.c.Tx(p, nil)
}

// commandArgs sends cmd followed by its arguments.
func (ch *channel) commandArgs(cmd byte, args ...byte) error {
	if err := ch.command(cmd); err != nil {
		return err
	}
	return ch.sendSmall(args)
}

// send streams p in chunks of at most len(ch.buf) bytes.
func (ch *channel) send(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if ch.buf == nil {
		ch.log.Warn("dropping pixel data without transfer buffer", "bytes", len(p))
		return nil
	}
	if err := ch.dc.Out(gpio.High); err != nil {
		return fmt.Errorf("st77xx: failed to set DC for data: %w", err)
	}
	for len(p) > 0 {
		chunk := ch.buf[:min(len(p), len(ch.buf))]
		if ch.swap {
			swapPairs(chunk, p)
		} else {
			copy(chunk, p)
		}
		if err := ch.c.Tx(chunk, nil); err != nil {
			return fmt.Errorf("st77xx: transfer failed: %w", err)
		}
		p = p[len(chunk):]
	}
	return nil
}

// swapPairs copies len(dst) bytes of src into dst, exchanging the bytes of each
// pair. An odd trailing byte is copied as is.
func swapPairs(dst, src []byte) {
	n := len(dst)
	i := 0
	for ; i+1 < n; i += 2 {
		dst[i], dst[i+1] = src[i+1], src[i]
	}
	if i < n {
		dst[i] = src[i]
	}
}
