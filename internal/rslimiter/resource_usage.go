package rslimiter

import (
	"runtime"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceUsage is a point-in-time snapshot of process and host resources
type ResourceUsage struct {
	AllocMB              int64   `json:"allocMB"`
	SysMB                int64   `json:"sysMB"`
	Goroutines           int     `json:"goroutines"`
	GCCount              int64   `json:"gcCount"`
	SystemMemUsedMB      int64   `json:"systemMemUsedMB"`
	SystemMemTotalMB     int64   `json:"systemMemTotalMB"`
	SystemMemUsedPercent float64 `json:"systemMemUsedPercent"`
	CPUUsagePercent      float64 `json:"cpuUsagePercent"`
}

// GetResourceUsage returns current resource usage statistics. CPU usage is
// measured since the previous call and is 0 on the first one.
func GetResourceUsage() ResourceUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usage := ResourceUsage{
		AllocMB:    int64(m.Alloc / 1024 / 1024),
		SysMB:      int64(m.Sys / 1024 / 1024),
		Goroutines: runtime.NumGoroutine(),
		GCCount:    int64(m.NumGC),
	}

	if vmStat, err := mem.VirtualMemory(); err == nil {
		usage.SystemMemUsedMB = int64(vmStat.Used / 1024 / 1024)
		usage.SystemMemTotalMB = int64(vmStat.Total / 1024 / 1024)
		usage.SystemMemUsedPercent = vmStat.UsedPercent
	}

	if cpuPercents, err := cpu.Percent(0, false); err == nil && len(cpuPercents) > 0 {
		usage.CPUUsagePercent = cpuPercents[0]
	}

	return usage
}

// MarshalZerologObject lets a snapshot be attached to a log event with
// Object("resources", usage).
func (u ResourceUsage) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("alloc_mb", u.AllocMB).
		Int64("sys_mb", u.SysMB).
		Int("goroutines", u.Goroutines).
		Int64("gc_count", u.GCCount).
		Float64("system_mem_percent", u.SystemMemUsedPercent).
		Float64("cpu_percent", u.CPUUsagePercent)
}
