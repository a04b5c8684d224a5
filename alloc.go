package st77xx

import (
	"strings"
	"sync"
)

// Caps are the memory capabilities a buffer requires.
type Caps uint8

const (
	CapDMA      Caps = 1 << iota // Reachable by the SPI DMA engine
	CapInternal                  // On-chip SRAM
	CapSPIRAM                    // External PSRAM
	Cap8Bit                      // Byte addressable
)

func (c Caps) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		c    Caps
		name string
	}{{CapDMA, "dma"}, {CapInternal, "internal"}, {CapSPIRAM, "spiram"}, {Cap8Bit, "8bit"}} {
		if c&f.c != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// Allocator hands out buffers with the requested capabilities.
//
// Alloc returns nil when no memory with the capabilities is left; callers
// degrade instead of failing hard. Free accepts exactly the slices Alloc
// returned, or nil.
type Allocator interface {
	Alloc(n int, caps Caps) []byte
	Free(b []byte)
}

// HeapAllocator allocates from the Go heap and ignores capabilities.
type HeapAllocator struct{}

// Alloc implements Allocator.
func (HeapAllocator) Alloc(n int, caps Caps) []byte {
	if n <= 0 {
		return nil
	}
	return make([]byte, n)
}

// Free implements Allocator.
func (HeapAllocator) Free(b []byte) {}

// Region is a memory pool with a fixed size and capability set.
type Region struct {
	Name string
	Caps Caps
	Size int
}

// PoolStats reports the usage of one Region.
type PoolStats struct {
	Region
	Used   int
	Peak   int
	Blocks int
}

// Free returns the number of unused bytes.
func (s PoolStats) Free() int {
	return s.Size - s.Used
}

// BudgetAllocator emulates a capability-tagged heap with fixed regions. A
// request is served by the first region whose capabilities include all the
// requested ones and which still has room.
//
// Alloc and Free belong to the control goroutine; Stats may be called
// concurrently, e.g. from a memory monitor.
type BudgetAllocator struct {
	mu      sync.Mutex
	regions []PoolStats
	blocks  map[*byte]block
}

type block struct {
	region int
	size   int
}

// NewBudgetAllocator returns an allocator over the given regions.
func NewBudgetAllocator(regions ...Region) *BudgetAllocator {
	a := &BudgetAllocator{blocks: map[*byte]block{}}
	for _, r := range regions {
		a.regions = append(a.regions, PoolStats{Region: r})
	}
	return a
}

// Alloc implements Allocator.
func (a *BudgetAllocator) Alloc(n int, caps Caps) []byte {
	if n <= 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.regions {
		r := &a.regions[i]
		if r.Caps&caps != caps || r.Size-r.Used < n {
			continue
		}
		b := make([]byte, n)
		r.Used += n
		r.Blocks++
		if r.Used > r.Peak {
			r.Peak = r.Used
		}
		a.blocks[&b[0]] = block{region: i, size: n}
		return b
	}
	return nil
}

// Free implements Allocator.
func (a *BudgetAllocator) Free(b []byte) {
	if len(b) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	blk, ok := a.blocks[&b[0]]
	if !ok {
		return
	}
	delete(a.blocks, &b[0])
	r := &a.regions[blk.region]
	r.Used -= blk.size
	r.Blocks--
}

// Outstanding returns the number of blocks not yet freed.
func (a *BudgetAllocator) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.blocks)
}

// Stats returns a snapshot of every region.
func (a *BudgetAllocator) Stats() []PoolStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]PoolStats(nil), a.regions...)
}

// ESP32S3 approximates the heap of an ESP32-S3 module: internal SRAM usable for
// DMA and, when psram is non-zero, that many bytes of external PSRAM.
func ESP32S3(psram int) *BudgetAllocator {
	regions := []Region{{Name: "sram", Caps: CapDMA | CapInternal | Cap8Bit, Size: 320 << 10}}
	if psram > 0 {
		regions = append(regions, Region{Name: "psram", Caps: CapSPIRAM | Cap8Bit, Size: psram})
	}
	return NewBudgetAllocator(regions...)
}
