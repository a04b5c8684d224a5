package st77xx

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

var discard = slog.New(slog.DiscardHandler)

func newTestChannel(alloc Allocator, size int, swap bool) (*channel, *recorder) {
	dc := &gpiotest.Pin{N: "DC"}
	rec := &recorder{dc: dc}
	return newChannel(rec, dc, alloc, size, swap, discard), rec
}

func TestSendChunks(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		length int
		want   []int
	}{
		{"single chunk", 8, 6, []int{6}},
		{"exact multiple", 4, 8, []int{4, 4}},
		{"remainder", 4, 10, []int{4, 4, 2}},
		{"one byte", 4, 1, []int{1}},
		{"empty", 4, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, rec := newTestChannel(HeapAllocator{}, tt.size, false)
			p := make([]byte, tt.length)
			for i := range p {
				p[i] = byte(i)
			}
			require.NoError(t, ch.send(p))

			var got []int
			var joined []byte
			for i, op := range rec.Ops {
				assert.True(t, rec.data[i], "DC must be high for data")
				got = append(got, len(op.W))
				joined = append(joined, op.W...)
			}
			assert.Equal(t, tt.want, got)
			if tt.length > 0 {
				assert.Equal(t, p, joined)
			}
		})
	}
}

func TestSendSwap(t *testing.T) {
	ch, rec := newTestChannel(HeapAllocator{}, 4, true)
	p := []byte{0x34, 0x12, 0x78, 0x56, 0xBC, 0x9A}
	require.NoError(t, ch.send(p))

	require.Len(t, rec.Ops, 2)
	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78}, rec.Ops[0].W)
	assert.Equal(t, []byte{0x9A, 0xBC}, rec.Ops[1].W)
	assert.Equal(t, []byte{0x34, 0x12, 0x78, 0x56, 0xBC, 0x9A}, p, "payload unchanged")
}

func TestSwapOddSize(t *testing.T) {
	// An odd request is rounded down so chunks never split a pixel.
	ch, _ := newTestChannel(HeapAllocator{}, 5, true)
	assert.Len(t, ch.buf, 4)

	ch, _ = newTestChannel(HeapAllocator{}, 5, false)
	assert.Len(t, ch.buf, 5)
}

func TestSwapPairs(t *testing.T) {
	dst := make([]byte, 5)
	swapPairs(dst, []byte{1, 2, 3, 4, 5})
	assert.Equal(t, []byte{2, 1, 4, 3, 5}, dst)

	// Swapping twice is the identity.
	back := make([]byte, 5)
	swapPairs(back, dst)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, back)
}

func TestCommand(t *testing.T) {
	ch, rec := newTestChannel(HeapAllocator{}, 16, true)
	require.NoError(t, ch.commandArgs(cmdCASET, 0x01, 0x02))
	require.NoError(t, ch.commandArgs(cmdNORON))

	require.Len(t, rec.Ops, 3)
	assert.Equal(t, []bool{false, true, false}, rec.data)
	assert.Equal(t, []byte{cmdCASET}, rec.Ops[0].W)
	assert.Equal(t, []byte{0x01, 0x02}, rec.Ops[1].W, "arguments are not swapped")
	assert.Equal(t, []byte{cmdNORON}, rec.Ops[2].W)
}

func TestTransferBufferFallback(t *testing.T) {
	alloc := NewBudgetAllocator(Region{Name: "dma", Caps: CapDMA | Cap8Bit, Size: 1500})
	ch, _ := newTestChannel(alloc, 4096, true)
	assert.Len(t, ch.buf, 1024)
	assert.Equal(t, 1, alloc.Outstanding())

	ch.release(alloc)
	assert.Nil(t, ch.buf)
	assert.Zero(t, alloc.Outstanding())
	ch.release(alloc)
}

func TestTransferBufferCaps(t *testing.T) {
	// PSRAM is not DMA capable.
	alloc := NewBudgetAllocator(Region{Name: "psram", Caps: CapSPIRAM | Cap8Bit, Size: 1 << 20})
	ch, rec := newTestChannel(alloc, 4096, true)
	assert.Nil(t, ch.buf)

	// Without a transfer buffer data is dropped, commands still go out.
	require.NoError(t, ch.send(make([]byte, 64)))
	assert.Empty(t, rec.Ops)
	require.NoError(t, ch.command(cmdRAMWR))
	assert.Len(t, rec.Ops, 1)
}
