package tools

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo is a snapshot of the machine the renderer runs on, surfaced
// by the doctor command next to tool availability.
type HostInfo struct {
	GOOS          string  `json:"goos"`
	LogicalCores  int     `json:"logical_cores"`
	PhysicalCores int     `json:"physical_cores"`
	TotalMemMB    uint64  `json:"total_mem_mb"`
	FreeMemMB     uint64  `json:"free_mem_mb"`
	MemUsedPct    float64 `json:"mem_used_pct"`
}

// Host collects CPU and memory facts. Fields that cannot be read stay
// zero; rendering never depends on them.
func Host(ctx context.Context) HostInfo {
	info := HostInfo{GOOS: runtime.GOOS, LogicalCores: runtime.NumCPU()}

	if physical, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.PhysicalCores = physical
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.TotalMemMB = vm.Total / (1 << 20)
		info.FreeMemMB = vm.Available / (1 << 20)
		info.MemUsedPct = vm.UsedPercent
	}
	return info
}
