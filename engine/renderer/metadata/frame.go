package metadata

import "time"

// FrameStamp identifies one frame cycle.
type FrameStamp struct {
	FrameCount uint64
	Time       time.Time
	// SimulationTime is the time since the first frame.
	SimulationTime time.Duration
}

// NextFrameStamp advances a stamp by one frame at now.
func NextFrameStamp(previous *FrameStamp, now time.Time) *FrameStamp {
	if previous == nil {
		return &FrameStamp{Time: now}
	}
	return &FrameStamp{
		FrameCount:     previous.FrameCount + 1,
		Time:           now,
		SimulationTime: previous.SimulationTime + now.Sub(previous.Time),
	}
}
