package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/musicability-api/internal/melody"
	"github.com/Conceptual-Machines/musicability-api/internal/metrics"
	"github.com/Conceptual-Machines/musicability-api/internal/midi"
)

// StatsSource reports in-process render counters
type StatsSource interface {
	Stats() map[string]metrics.RenderSnapshot
}

type MetricsHandler struct {
	startTime time.Time
	version   string
	maxNotes  int
	stats     StatsSource
}

func NewMetricsHandler(version string, maxNotes int, stats StatsSource) *MetricsHandler {
	return &MetricsHandler{
		startTime: time.Now(),
		version:   version,
		maxNotes:  maxNotes,
		stats:     stats,
	}
}

// formatUptime formats the uptime duration with seconds rounded to 2 decimal places
func formatUptime(d time.Duration) string {
	hours := int(d / time.Hour)
	minutes := int(d/time.Minute) % 60
	seconds := (d - time.Duration(hours)*time.Hour - time.Duration(minutes)*time.Minute).Seconds()

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%.2fs", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%.2fs", minutes, seconds)
	default:
		return fmt.Sprintf("%.2fs", seconds)
	}
}

type MetricsResponse struct {
	Status    string                            `json:"status"`
	Uptime    string                            `json:"uptime"`
	Timestamp string                            `json:"timestamp"`
	Version   string                            `json:"version"`
	StartTime string                            `json:"start_time"`
	System    SystemMetrics                     `json:"system"`
	MIDI      MIDIInfo                          `json:"midi"`
	Limits    LimitsInfo                        `json:"limits"`
	Renders   map[string]metrics.RenderSnapshot `json:"renders"`
}

type SystemMetrics struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAllocMB   uint64 `json:"mem_alloc_mb"`
	MemTotalMB   uint64 `json:"mem_total_mb"`
	NumGC        uint32 `json:"num_gc"`
}

// MIDIInfo describes the fixed shape of every generated file
type MIDIInfo struct {
	Format          int    `json:"format"`
	TicksPerQuarter int    `json:"ticks_per_quarter"`
	Channel         int    `json:"channel"`
	Program         int    `json:"program"`
	PitchRange      string `json:"pitch_range"`
}

type LimitsInfo struct {
	MaxNotes     int `json:"max_notes"`
	MaxBodyBytes int `json:"max_body_bytes"`
}

const bytesToMB = 1024 * 1024

func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	policy := melody.DefaultPolicy()
	resp := MetricsResponse{
		Status:    "healthy",
		Uptime:    formatUptime(time.Since(h.startTime)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		StartTime: h.startTime.UTC().Format(time.RFC3339),
		System: SystemMetrics{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAllocMB:   m.Alloc / bytesToMB,
			MemTotalMB:   m.TotalAlloc / bytesToMB,
			NumGC:        m.NumGC,
		},
		MIDI: MIDIInfo{
			Format:          0,
			TicksPerQuarter: midi.TicksPerQuarter,
			Channel:         midi.Channel,
			Program:         midi.Program,
			PitchRange:      melody.NoteName(policy.LowestPitch) + ".." + melody.NoteName(policy.HighestPitch),
		},
		Limits: LimitsInfo{
			MaxNotes:     h.maxNotes,
			MaxBodyBytes: maxBodyBytes,
		},
		Renders: map[string]metrics.RenderSnapshot{},
	}
	if h.stats != nil {
		resp.Renders = h.stats.Stats()
	}

	c.JSON(http.StatusOK, resp)
}
