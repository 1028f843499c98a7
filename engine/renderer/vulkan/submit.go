package vulkan

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/systems"
)

/** @brief The step a frame submission is in. */
type TaskPhase int32

const (
	TaskPhaseIdle TaskPhase = iota
	TaskPhaseWaitPriorFence
	TaskPhaseRecord
	TaskPhaseAggregateSync
	TaskPhaseSubmit
)

func (p TaskPhase) String() string {
	switch p {
	case TaskPhaseIdle:
		return "idle"
	case TaskPhaseWaitPriorFence:
		return "wait_prior_fence"
	case TaskPhaseRecord:
		return "record"
	case TaskPhaseAggregateSync:
		return "aggregate_sync"
	case TaskPhaseSubmit:
		return "submit"
	}
	return fmt.Sprintf("TaskPhase(%d)", int32(p))
}

/**
 * @brief Records the command graphs of one frame and submits them as a single
 * batch, guarded by the fence of the windows' current frame slot.
 *
 * Every mutator takes the same lock as Submit, so the task only changes
 * between frames.
 */
type RecordAndSubmitTask struct {
	device Device

	mu    sync.Mutex
	phase atomic.Int32

	commandGraphs    []CommandGraph
	windows          []Window
	streamer         ResourceStreamer
	waitSemaphores   []*Semaphore
	signalSemaphores []*Semaphore
	// streaming semaphores of a failed submission, counted and still signaled
	carried []*Semaphore

	// guards submissions when no window provides a fence
	fence *Fence

	fenceTimeout    uint64
	maxFenceRetries uint32
	recorders       *systems.JobSystem

	metrics *core.SubmitMetrics
	clock   *core.Clock
}

func NewRecordAndSubmitTask(device Device, config *core.Config) (*RecordAndSubmitTask, error) {
	fence, err := NewFence(device, false)
	if err != nil {
		return nil, err
	}
	t := &RecordAndSubmitTask{
		device:  device,
		fence:   fence,
		metrics: core.NewSubmitMetrics(),
		clock:   core.NewClock(),
	}
	if config == nil {
		config = core.DefaultConfig()
	}
	if err := t.ApplyConfig(config); err != nil {
		fence.Destroy()
		return nil, err
	}
	return t, nil
}

// ApplyConfig takes the sync settings of config. It blocks while a frame is being submitted.
func (t *RecordAndSubmitTask) ApplyConfig(config *core.Config) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.fenceTimeout = config.Sync.FenceTimeout.Nanoseconds()
	t.maxFenceRetries = config.Sync.MaxFenceRetries

	switch {
	case config.Sync.ParallelRecord && t.recorders == nil:
		js, err := systems.NewJobSystem(runtime.GOMAXPROCS(0), 0)
		if err != nil {
			return err
		}
		t.recorders = js
	case !config.Sync.ParallelRecord && t.recorders != nil:
		t.recorders.Shutdown()
		t.recorders = nil
	}
	return nil
}

func (t *RecordAndSubmitTask) AddCommandGraph(commandGraphs ...CommandGraph) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commandGraphs = append(t.commandGraphs, commandGraphs...)
}

// RemoveCommandGraph keeps the order of the remaining graphs.
func (t *RecordAndSubmitTask) RemoveCommandGraph(commandGraph CommandGraph) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, cg := range t.commandGraphs {
		if cg == commandGraph {
			t.commandGraphs = append(t.commandGraphs[:i], t.commandGraphs[i+1:]...)
			return true
		}
	}
	return false
}

func (t *RecordAndSubmitTask) AddWindow(windows ...Window) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.windows = append(t.windows, windows...)
}

// SetStreaming sets the background upload collaborator; nil removes it.
func (t *RecordAndSubmitTask) SetStreaming(streamer ResourceStreamer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streamer = streamer
}

// AddWaitSemaphores adds semaphores every submission waits on, after the window ones.
func (t *RecordAndSubmitTask) AddWaitSemaphores(semaphores ...*Semaphore) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waitSemaphores = append(t.waitSemaphores, semaphores...)
}

// AddSignalSemaphores adds semaphores every submission signals.
func (t *RecordAndSubmitTask) AddSignalSemaphores(semaphores ...*Semaphore) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.signalSemaphores = append(t.signalSemaphores, semaphores...)
}

func (t *RecordAndSubmitTask) Phase() TaskPhase {
	return TaskPhase(t.phase.Load())
}

func (t *RecordAndSubmitTask) Metrics() *core.SubmitMetrics {
	return t.metrics
}

// Fence is the fence used when no window provides one.
func (t *RecordAndSubmitTask) Fence() *Fence {
	return t.fence
}

func (t *RecordAndSubmitTask) setPhase(p TaskPhase) {
	t.phase.Store(int32(p))
}

/**
 * @brief Runs one frame cycle: wait for the prior use of the frame slot,
 * record, collect the semaphores and submit. Device errors are returned as
 * ResultError and never retried; a fence that keeps timing out past the
 * configured retries fails with core.ErrFenceTimeout.
 */
func (t *RecordAndSubmitTask) Submit(frameStamp metadata.FrameStamp) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	defer t.setPhase(TaskPhaseIdle)

	t.clock.Start()

	t.setPhase(TaskPhaseWaitPriorFence)
	waits, fence := t.acquireFrames()
	if err := t.waitPriorFence(fence); err != nil {
		return err
	}

	t.setPhase(TaskPhaseRecord)
	recorded := t.record(frameStamp)

	t.setPhase(TaskPhaseAggregateSync)
	streaming := t.streamingSemaphores()
	submit := t.aggregateSync(waits, streaming, recorded)

	t.setPhase(TaskPhaseSubmit)
	if res := t.device.QueueSubmit(submit, fence.Handle); res != vk.Success {
		// nothing was submitted, the next frame waits on the streaming semaphores
		t.carried = streaming
		t.metrics.DeviceFailed()
		return newResultError("queue submit", res)
	}
	t.carried = nil
	t.attachDependents(fence, streaming, recorded)

	t.clock.Update()
	t.metrics.FrameSubmitted(t.clock.Elapsed(), len(recorded))
	return nil
}

// acquireFrames collects the image available semaphore of every window. All
// windows of a task share one synchronization epoch, so the last fence wins.
func (t *RecordAndSubmitTask) acquireFrames() ([]*Semaphore, *Fence) {
	var waits []*Semaphore
	var fence *Fence
	for _, window := range t.windows {
		frame := window.Frame(window.NextImageIndex())
		if frame == nil {
			core.LogWarn("window returned no frame for its next image, skipping")
			continue
		}
		if frame.ImageAvailableSemaphore != nil {
			waits = append(waits, frame.ImageAvailableSemaphore)
		}
		if frame.CommandsCompletedFence != nil {
			fence = frame.CommandsCompletedFence
		}
	}
	if fence == nil {
		fence = t.fence
	}
	return waits, fence
}

func (t *RecordAndSubmitTask) waitPriorFence(fence *Fence) error {
	if !fence.InFlight() {
		return nil
	}
	t.metrics.FenceWaited()
	timeouts, err := fence.WaitAndReclaim(t.fenceTimeout, t.maxFenceRetries)
	for i := uint32(0); i < timeouts; i++ {
		t.metrics.FenceTimedOut()
	}
	if err != nil {
		var resultErr *ResultError
		if errors.As(err, &resultErr) && resultErr.Result != vk.Timeout {
			t.metrics.DeviceFailed()
		}
		return err
	}
	return nil
}

func (t *RecordAndSubmitTask) record(frameStamp metadata.FrameStamp) []*CommandBuffer {
	if t.recorders == nil || len(t.commandGraphs) < 2 {
		var out CommandBuffers
		for _, cg := range t.commandGraphs {
			cg.Record(&out, frameStamp, t.streamer)
		}
		return out.List()
	}

	// one slot per graph, joined in registration order
	slots := make([]CommandBuffers, len(t.commandGraphs))
	jobs := make([]metadata.JobTask, len(t.commandGraphs))
	for i, cg := range t.commandGraphs {
		i, cg := i, cg
		jobs[i] = metadata.JobTask{
			JobType:     metadata.JOB_TYPE_RECORD,
			Priority:    metadata.JOB_PRIORITY_HIGH,
			InputParams: frameStamp,
			OnStart: func(params interface{}) (interface{}, error) {
				cg.Record(&slots[i], params.(metadata.FrameStamp), t.streamer)
				return nil, nil
			},
		}
	}
	t.recorders.RunAll(jobs)

	var out CommandBuffers
	for i := range slots {
		out.Append(slots[i].List()...)
	}
	return out.List()
}

// streamingSemaphores returns the semaphores carried over from a failed
// submission followed by the ones the streamer completed since the last frame.
// Only the new ones are counted; carried ones were counted when first handed out.
func (t *RecordAndSubmitTask) streamingSemaphores() []*Semaphore {
	streaming := t.carried
	if t.streamer == nil {
		return streaming
	}
	for _, semaphore := range t.streamer.Semaphores() {
		if n := semaphore.NumDependentSubmissions(); n > 1 {
			core.LogWarn("streaming semaphore %v waited on again before its submissions retired (%d dependent submissions)", semaphore.Handle, n)
			t.metrics.SemaphoreReused()
		}
		semaphore.AddDependentSubmission()
		streaming = append(streaming, semaphore)
	}
	return streaming
}

func (t *RecordAndSubmitTask) aggregateSync(waits, streaming []*Semaphore, recorded []*CommandBuffer) *SubmitInfo {
	waits = append(waits, t.waitSemaphores...)
	waits = append(waits, streaming...)

	submit := &SubmitInfo{
		WaitSemaphores:   make([]vk.Semaphore, 0, len(waits)),
		WaitDstStageMask: make([]vk.PipelineStageFlags, 0, len(waits)),
		CommandBuffers:   make([]vk.CommandBuffer, 0, len(recorded)),
		SignalSemaphores: make([]vk.Semaphore, 0, len(t.signalSemaphores)),
	}
	for _, semaphore := range waits {
		submit.WaitSemaphores = append(submit.WaitSemaphores, semaphore.Handle)
		submit.WaitDstStageMask = append(submit.WaitDstStageMask, semaphore.PipelineStageFlags())
	}
	for _, commandBuffer := range recorded {
		submit.CommandBuffers = append(submit.CommandBuffers, commandBuffer.Handle)
	}
	for _, semaphore := range t.signalSemaphores {
		submit.SignalSemaphores = append(submit.SignalSemaphores, semaphore.Handle)
	}
	return submit
}

// attachDependents hands everything the accepted submission uses to its fence.
func (t *RecordAndSubmitTask) attachDependents(fence *Fence, streaming []*Semaphore, recorded []*CommandBuffer) {
	for _, commandBuffer := range recorded {
		commandBuffer.UpdateSubmitted()
	}
	fence.AddDependentCommandBuffers(recorded...)
	fence.AddDependentSemaphores(t.signalSemaphores...)
	fence.AddDependentSemaphores(streaming...)
	fence.markSubmitted()
}

// Destroy waits for the last submission of the task's own fence and releases it.
func (t *RecordAndSubmitTask) Destroy() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.fence.InFlight() {
		_, err = t.fence.WaitAndReclaim(t.fenceTimeout, t.maxFenceRetries)
	}
	t.fence.Destroy()
	// never submitted, give them back to the streamer
	for _, semaphore := range t.carried {
		semaphore.ResetDependentSubmissions()
	}
	t.carried = nil
	if t.recorders != nil {
		t.recorders.Shutdown()
		t.recorders = nil
	}
	return err
}
