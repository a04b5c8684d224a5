package st77xx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"periph.io/x/devices/v3/st77xx/rgb565"
)

func TestDoubleBuffers(t *testing.T) {
	d, rec := newTestDev(t, &Opts{Panel: testPanel(4, 2)})
	assert.Nil(t, d.DrawBuffer())

	require.NoError(t, d.InitDoubleBuffers())
	back := d.DrawBuffer()
	require.NotNil(t, back)
	assert.Equal(t, d.Bounds(), back.Bounds())

	back.Fill(rgb565.Red)
	require.NoError(t, d.SwapAndPresent())
	assert.NotSame(t, back, d.DrawBuffer(), "buffers swapped")

	steps := rec.steps()
	require.Len(t, steps, 3)
	data := steps[2].payload()
	require.Len(t, data, 16)
	assert.Equal(t, []byte{0xF8, 0x00}, data[:2])

	// Presenting again only needs RAMWR.
	rec.reset()
	require.NoError(t, d.SwapAndPresent())
	assert.Equal(t, []byte{cmdRAMWR}, rec.commands())
	assert.Same(t, back, d.DrawBuffer())
}

func TestInitDoubleBuffersIdempotent(t *testing.T) {
	alloc := NewBudgetAllocator(Region{Name: "ram", Caps: CapDMA | Cap8Bit, Size: 1 << 20})
	d, _ := newTestDev(t, &Opts{Panel: testPanel(8, 8), Allocator: alloc})
	require.NoError(t, d.InitDoubleBuffers())
	back := d.DrawBuffer()
	require.NoError(t, d.InitDoubleBuffers())
	assert.Same(t, back, d.DrawBuffer())
	assert.Equal(t, 3, alloc.Outstanding())
}

func TestInitDoubleBuffersRollback(t *testing.T) {
	// 480x320 needs 300KiB per surface: one fits in SRAM, two do not.
	alloc := ESP32S3(0)
	d, _ := newTestDev(t, &Opts{Allocator: alloc})
	require.Equal(t, 1, alloc.Outstanding())

	assert.ErrorIs(t, d.InitDoubleBuffers(), ErrNoMemory)
	assert.Nil(t, d.DrawBuffer())
	assert.Nil(t, d.front)
	assert.Equal(t, 1, alloc.Outstanding(), "partial allocation released")
}

func TestInitDoubleBuffersPSRAM(t *testing.T) {
	alloc := ESP32S3(8 << 20)
	d, _ := newTestDev(t, &Opts{Allocator: alloc, UsePSRAM: true})
	require.NoError(t, d.InitDoubleBuffers())

	for _, s := range alloc.Stats() {
		switch s.Name {
		case "psram":
			assert.Equal(t, 2*480*320*2, s.Used)
		case "sram":
			assert.Equal(t, defaultTransferSize, s.Used)
		}
	}

	d.ReleaseDoubleBuffers()
	d.ReleaseDoubleBuffers()
	assert.Equal(t, 1, alloc.Outstanding())
}

func TestSwapAndPresentUnallocated(t *testing.T) {
	d, rec := newTestDev(t, nil)
	assert.NoError(t, d.SwapAndPresent())
	assert.Empty(t, rec.Ops)
}
