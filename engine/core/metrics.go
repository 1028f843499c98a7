package core

import (
	"sync"
	"sync/atomic"
	"time"
)

const AVG_COUNT uint8 = 30

// SubmitMetrics counts what happened across frame submissions. Counters are
// atomic so a monitoring goroutine can read them while frames are in flight.
type SubmitMetrics struct {
	framesSubmitted  atomic.Uint64
	fenceWaits       atomic.Uint64
	fenceTimeouts    atomic.Uint64
	semaphoreReuses  atomic.Uint64
	deviceFailures   atomic.Uint64
	commandsRecorded atomic.Uint64

	mu              sync.Mutex
	frameAVGCounter uint8
	msTimes         [AVG_COUNT]float64
	msAvg           float64
}

func NewSubmitMetrics() *SubmitMetrics {
	return &SubmitMetrics{}
}

func (m *SubmitMetrics) FrameSubmitted(elapsed time.Duration, commandBuffers int) {
	m.framesSubmitted.Add(1)
	m.commandsRecorded.Add(uint64(commandBuffers))

	frameMS := float64(elapsed) / float64(time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.msTimes[m.frameAVGCounter] = frameMS
	if m.frameAVGCounter == AVG_COUNT-1 {
		sum := 0.0
		for i := uint8(0); i < AVG_COUNT; i++ {
			sum += m.msTimes[i]
		}
		m.msAvg = sum / float64(AVG_COUNT)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= AVG_COUNT
}

func (m *SubmitMetrics) FenceWaited() { m.fenceWaits.Add(1) }
func (m *SubmitMetrics) FenceTimedOut() { m.fenceTimeouts.Add(1) }
func (m *SubmitMetrics) SemaphoreReused() { m.semaphoreReuses.Add(1) }
func (m *SubmitMetrics) DeviceFailed() { m.deviceFailures.Add(1) }
func (m *SubmitMetrics) FramesSubmitted() uint64 { return m.framesSubmitted.Load() }
func (m *SubmitMetrics) FenceWaits() uint64 { return m.fenceWaits.Load() }
func (m *SubmitMetrics) FenceTimeouts() uint64 { return m.fenceTimeouts.Load() }
func (m *SubmitMetrics) SemaphoreReuses() uint64 { return m.semaphoreReuses.Load() }
func (m *SubmitMetrics) DeviceFailures() uint64 { return m.deviceFailures.Load() }
func (m *SubmitMetrics) CommandsRecorded() uint64 {
	return m.commandsRecorded.Load()
}

// SubmitTime is the average time spent in Submit over the last AVG_COUNT frames, in milliseconds.
// It stays 0 until AVG_COUNT frames were submitted.
func (m *SubmitMetrics) SubmitTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msAvg
}
