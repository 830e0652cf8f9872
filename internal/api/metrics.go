package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ServerMetrics собирает показатели процесса для /api/stats
type ServerMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// ProcessStats снимок показателей процесса
type ProcessStats struct {
	Uptime      string  `json:"uptime"`
	UptimeSec   int64   `json:"uptime_seconds"`
	CPUPercent  float64 `json:"cpu_percent"`
	RSSMB       float64 `json:"rss_mb"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	NumGC       uint32  `json:"num_gc"`
	Goroutines  int     `json:"goroutines"`
}

// NewServerMetrics создает новый экземпляр метрик
func NewServerMetrics() *ServerMetrics {
	sm := &ServerMetrics{StartTime: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		sm.proc = proc
	}
	return sm
}

// GetUptime возвращает время работы сервера
func (sm *ServerMetrics) GetUptime() string {
	return formatUptime(time.Since(sm.StartTime))
}

func formatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// GetCPUUsage использование CPU процессом; при ошибке берется системное значение
func (sm *ServerMetrics) GetCPUUsage() (float64, error) {
	if sm.proc != nil {
		if pct, err := sm.proc.CPUPercent(); err == nil {
			return pct, nil
		}
	}
	cpuPercents, err := cpu.Percent(0, false)
	if err != nil || len(cpuPercents) == 0 {
		return 0, err
	}
	return cpuPercents[0], nil
}

// Snapshot собирает ProcessStats. Ошибки gopsutil не фатальны: поле остается нулевым.
func (sm *ServerMetrics) Snapshot() ProcessStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(sm.StartTime)
	ps := ProcessStats{
		Uptime:      formatUptime(uptime),
		UptimeSec:   int64(uptime.Seconds()),
		HeapAllocMB: float64(m.HeapAlloc) / 1024 / 1024,
		NumGC:       m.NumGC,
		Goroutines:  runtime.NumGoroutine(),
	}
	if pct, err := sm.GetCPUUsage(); err == nil {
		ps.CPUPercent = pct
	}
	if sm.proc != nil {
		if mem, err := sm.proc.MemoryInfo(); err == nil && mem != nil {
			ps.RSSMB = float64(mem.RSS) / 1024 / 1024
		}
	}
	return ps
}
