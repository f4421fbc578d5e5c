package metrics

import "sync/atomic"

// RenderStats counts renders in-process for the /api/metrics endpoint.
// The zero value is ready to use.
type RenderStats struct {
	midi     renderCounter
	previews renderCounter
}

type renderCounter struct {
	ok     atomic.Int64
	failed atomic.Int64
	notes  atomic.Int64
	bytes  atomic.Int64
}

// RenderSnapshot is a point-in-time copy of one kind's counters
type RenderSnapshot struct {
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Notes     int64 `json:"notes"`
	Bytes     int64 `json:"bytes"`
}

// Record counts one render of the given kind ("midi" or "preview").
func (s *RenderStats) Record(kind string, notes, size int, success bool) {
	if s == nil {
		return
	}
	c := &s.midi
	if kind == "preview" {
		c = &s.previews
	}
	if !success {
		c.failed.Add(1)
		return
	}
	c.ok.Add(1)
	c.notes.Add(int64(notes))
	c.bytes.Add(int64(size))
}

// Snapshot returns the current counters keyed by kind
func (s *RenderStats) Snapshot() map[string]RenderSnapshot {
	if s == nil {
		return map[string]RenderSnapshot{}
	}
	return map[string]RenderSnapshot{
		"midi":    s.midi.snapshot(),
		"preview": s.previews.snapshot(),
	}
}

func (c *renderCounter) snapshot() RenderSnapshot {
	return RenderSnapshot{
		Succeeded: c.ok.Load(),
		Failed:    c.failed.Load(),
		Notes:     c.notes.Load(),
		Bytes:     c.bytes.Load(),
	}
}
