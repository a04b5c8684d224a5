package st77xx

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strconv"

	"periph.io/x/devices/v3/st77xx/rgb565"
)

// Preload loads up to limit raw frames named "1.bin", "2.bin", ... from dir in
// fsys and keeps them in memory, replacing any previously loaded set. Loading
// stops at the first missing file, allocation failure or short file. It returns
// the number of frames loaded.
func (d *Dev) Preload(fsys fs.FS, dir string, limit int) int {
	d.ReleasePreloaded()
	if limit <= 0 {
		return 0
	}
	caps := d.frameCaps()
	n := d.frameSize()
	var frames [][]byte
	for i := 1; i <= limit; i++ {
		name := path.Join(dir, strconv.Itoa(i)+".bin")
		buf, err := d.loadFrame(fsys, name, caps)
		if err != nil {
			d.log.Warn("preload stopped", "file", name, "err", err)
			break
		}
		frames = append(frames, buf)
		if i%10 == 0 {
			d.log.Info("preloading", "frames", i, "bytes", i*n)
		}
	}
	if len(frames) == 0 {
		return 0
	}
	d.frames = frames
	d.log.Info("preloaded", "frames", len(frames), "bytes", len(frames)*n)
	return len(frames)
}

// loadFrame reads exactly one frame from name into a new buffer.
func (d *Dev) loadFrame(fsys fs.FS, name string, caps Caps) ([]byte, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	n := d.frameSize()
	buf := d.alloc.Alloc(n, caps)
	if buf == nil {
		return nil, ErrNoMemory
	}
	if _, err := io.ReadFull(f, buf); err != nil {
		d.alloc.Free(buf)
		return nil, err
	}
	return buf, nil
}

// PreloadedFrame returns frame i (0-based) of the loaded set, or nil when out
// of range. The data is owned by the device.
func (d *Dev) PreloadedFrame(i int) []byte {
	if i < 0 || i >= len(d.frames) {
		return nil
	}
	return d.frames[i]
}

// PreloadedCount returns the number of loaded frames.
func (d *Dev) PreloadedCount() int {
	return len(d.frames)
}

// ReleasePreloaded frees all loaded frames. It is safe to call when nothing is
// loaded.
func (d *Dev) ReleasePreloaded() {
	for _, f := range d.frames {
		d.alloc.Free(f)
	}
	d.frames = nil
}

// PresentFrame sends loaded frame i to the panel.
func (d *Dev) PresentFrame(i int) error {
	f := d.PreloadedFrame(i)
	if f == nil {
		return fmt.Errorf("st77xx: no preloaded frame %d", i)
	}
	if d.halted {
		return ErrHalted
	}
	return d.flush(f)
}

// LoadImage reads a raw frame from name into dst. The file must hold exactly
// one frame of dst's size.
func LoadImage(fsys fs.FS, name string, dst *rgb565.Image) error {
	if dst == nil {
		return errors.New("st77xx: nil destination")
	}
	fi, err := fs.Stat(fsys, name)
	if err != nil {
		return err
	}
	want := 2 * dst.Rect.Dx() * dst.Rect.Dy()
	if fi.Size() != int64(want) || dst.Stride != 2*dst.Rect.Dx() {
		return fmt.Errorf("st77xx: %s: %d bytes, want %d: %w", name, fi.Size(), want, ErrFrameSize)
	}
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.ReadFull(f, dst.Pix[:want]); err != nil {
		return fmt.Errorf("st77xx: failed to read %s: %w", name, err)
	}
	return nil
}
