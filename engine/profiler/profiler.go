package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Stats is one profiler report.
type Stats struct {
	// FPS is the refresh rate measured over the last interval.
	FPS float64
	// HeapMB is the live heap size.
	HeapMB float64
	// AllocRateMB is the heap allocation rate in MB per second.
	AllocRateMB float64
	// GCCount is the total number of completed GC cycles.
	GCCount uint32
	// LastPauseUs and MaxPauseUs are GC pauses in microseconds; Max covers the last interval.
	LastPauseUs, MaxPauseUs uint64
	// SysMB is the memory obtained from the OS.
	SysMB float64
}

// Profiler tracks refresh rate and memory statistics for performance monitoring.
// Logs stats at a configurable interval.
type Profiler struct {
	mu             *sync.Mutex
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a new Profiler reporting once per second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return NewProfilerWithInterval(time.Second)
}

// NewProfilerWithInterval creates a new Profiler with a custom report interval.
//
// Parameters:
//   - interval: the time between reports; values <= 0 select one second
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfilerWithInterval(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		mu:             &sync.Mutex{},
		lastTime:       time.Now(),
		updateInterval: interval,
	}
}

// Tick should be called once per refresh.
//
// Returns:
//   - bool: true if stats were reported this tick, false otherwise
func (p *Profiler) Tick() bool {
	return p.tickAt(time.Now())
}

// Last returns the most recent report.
//
// Returns:
//   - Stats: the last report, zero before the first one
func (p *Profiler) Last() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Profiler) tickAt(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses
	if s.GCCount > 0 {
		s.LastPauseUs = p.memStats.PauseNs[(s.GCCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if s.GCCount-startIdx > 256 {
			startIdx = s.GCCount - 256
		}
		for i := startIdx; i < s.GCCount; i++ {
			s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":      "Profiler.Tick",
		"fps":           s.FPS,
		"heap_mb":       s.HeapMB,
		"alloc_rate_mb": s.AllocRateMB,
		"gc":            s.GCCount,
		"gc_last_us":    s.LastPauseUs,
		"gc_max_us":     s.MaxPauseUs,
		"sys_mb":        s.SysMB,
	}).Info("Profiler")

	p.last = s
	p.frameCount = 0
	p.lastTime = now
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
