// Package memmon periodically logs memory usage: Go runtime statistics, host
// memory and the regions of a capability-tagged allocator.
package memmon

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/mem"

	"periph.io/x/devices/v3/st77xx"
)

// PoolSource reports allocator regions. *st77xx.BudgetAllocator implements it.
type PoolSource interface {
	Stats() []st77xx.PoolStats
}

// Report is one memory snapshot.
type Report struct {
	HeapAlloc     uint64 // Bytes of live Go heap objects
	Sys           uint64 // Bytes obtained from the OS by the Go runtime
	NumGC         uint32
	HostTotal     uint64 // Zero when host statistics are unavailable
	HostAvailable uint64
	Pools         []st77xx.PoolStats
}

// Monitor logs a Report every Interval.
type Monitor struct {
	Interval time.Duration
	Pools    PoolSource   // Optional
	Logger   *slog.Logger // Default: slog.Default()

	// virtualMemory is replaced in tests.
	virtualMemory func() (*mem.VirtualMemoryStat, error)
}

// Snapshot collects a Report.
func (m *Monitor) Snapshot() Report {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	r := Report{HeapAlloc: ms.HeapAlloc, Sys: ms.Sys, NumGC: ms.NumGC}

	vm := m.virtualMemory
	if vm == nil {
		vm = mem.VirtualMemory
	}
	if v, err := vm(); err == nil {
		r.HostTotal = v.Total
		r.HostAvailable = v.Available
	}
	if m.Pools != nil {
		r.Pools = m.Pools.Stats()
	}
	return r
}

// Log writes r to the monitor's logger: one line for the process and one per
// allocator region.
func (m *Monitor) Log(r Report) {
	log := m.Logger
	if log == nil {
		log = slog.Default()
	}
	attrs := []any{
		"heap", humanize.IBytes(r.HeapAlloc),
		"sys", humanize.IBytes(r.Sys),
		"gc", r.NumGC,
	}
	if r.HostTotal > 0 {
		attrs = append(attrs,
			"host_available", humanize.IBytes(r.HostAvailable),
			"host_total", humanize.IBytes(r.HostTotal),
		)
	}
	log.Info("memory", attrs...)
	for _, p := range r.Pools {
		log.Info("pool",
			"name", p.Name,
			"caps", p.Caps.String(),
			"used", humanize.IBytes(uint64(p.Used)),
			"free", humanize.IBytes(uint64(p.Free())),
			"peak", humanize.IBytes(uint64(p.Peak)),
			"blocks", p.Blocks,
		)
	}
}

// Run logs a snapshot every Interval until ctx is done. It returns ctx.Err().
func (m *Monitor) Run(ctx context.Context) error {
	if m.Interval <= 0 {
		return errors.New("memmon: interval must be positive")
	}
	t := time.NewTicker(m.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			m.Log(m.Snapshot())
		}
	}
}
