package profiler

import (
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/engine/bindcache"
	"github.com/Carmen-Shannon/oxy-gl/engine/gfx"
)

// Source is a rendering context whose counters the profiler drains each interval.
type Source interface {
	Name() string
	ResetBindStats() bindcache.Stats
	ResetUploadStats() gfx.UploadStats
}

var _ Source = &gfx.Context{}

// Sample is one interval of collected statistics.
type Sample struct {
	// FPS is the frame rate over the interval.
	FPS float64
	// Binds sums the bind counters of every source.
	Binds bindcache.Stats
	// Uploads sums the upload counters of every source.
	Uploads gfx.UploadStats
	// HeapMB is the live heap size in megabytes.
	HeapMB float64
	// AllocRateMB is the heap allocation rate in megabytes per second.
	AllocRateMB float64
	// GCCount is the total number of completed GC cycles.
	GCCount uint32
	// MaxPauseUs is the longest GC pause since the previous sample, in microseconds.
	MaxPauseUs uint64
}

// Profiler tracks frame rate, device traffic and memory statistics.
// Outputs stats to its logger at a configurable interval.
type Profiler struct {
	logger         *zap.Logger
	sources        []Source
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Sample
	now            func() time.Time
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: optional builder options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         Logger(),
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.logger = p.logger.Named("profiler")
	p.lastTime = p.now()
	return p
}

// Track adds a source whose counters are reported and reset each interval.
func (p *Profiler) Track(s Source) {
	p.sources = append(p.sources, s)
}

// Last returns the most recently logged sample.
func (p *Profiler) Last() Sample {
	return p.last
}

// Tick should be called once per frame to track frame timing.
// Logs a sample when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	s := Sample{FPS: float64(p.frameCount) / elapsed.Seconds()}
	for _, src := range p.sources {
		binds := src.ResetBindStats()
		uploads := src.ResetUploadStats()
		s.Binds = s.Binds.Add(binds)
		s.Uploads = s.Uploads.Add(uploads)
		if ce := p.logger.Check(zap.DebugLevel, "context"); ce != nil {
			ce.Write(
				zap.String("context", src.Name()),
				zap.Int("binds", binds.Binds),
				zap.Int("skipped", binds.Skipped),
				zap.Int("uploads", uploads.Full+uploads.Subrange+uploads.Textures),
			)
		}
	}
	p.readMemory(&s, elapsed)

	p.logger.Info("frame stats",
		zap.Float64("fps", s.FPS),
		zap.Int("binds", s.Binds.Binds),
		zap.Int("bindsSkipped", s.Binds.Skipped),
		zap.Int("restores", s.Binds.Restores),
		zap.Int("uploadsFull", s.Uploads.Full),
		zap.Int("uploadsSubrange", s.Uploads.Subrange),
		zap.Int("uploadsTexture", s.Uploads.Textures),
		zap.Int("uploadBytes", s.Uploads.Bytes),
		zap.Float64("heapMB", s.HeapMB),
		zap.Float64("allocRateMB", s.AllocRateMB),
		zap.Uint32("gc", s.GCCount),
		zap.Uint64("maxPauseUs", s.MaxPauseUs),
	)

	p.last = s
	p.frameCount = 0
	p.lastTime = currentTime
	return true
}

func (p *Profiler) readMemory(s *Sample, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	s.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	s.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 pauses.
	gcCount := p.memStats.NumGC
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	for i := startIdx; i < gcCount; i++ {
		s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}
	s.GCCount = gcCount

	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
