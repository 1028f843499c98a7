package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/containers"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/systems"
)

/**
 * @brief Background re-upload of descriptor buffers. Every finished upload
 * signals a semaphore that the next frame submission waits on. Semaphores
 * come back to the free list once the frame fence retired them.
 */
type TransferTask struct {
	device    Device
	jobs      *systems.JobSystem
	stageMask vk.PipelineStageFlags

	fenceTimeout    uint64
	maxFenceRetries uint32

	mu       sync.Mutex
	ready    *containers.RingQueue[*Semaphore]
	reserved int
	free     []*Semaphore
	inUse    []*Semaphore
	all      []*Semaphore

	pending sync.WaitGroup
}

// NewTransferTask sizes the workers and the pending queue from the streaming
// settings; guard fence waits follow the sync settings.
func NewTransferTask(device Device, config *core.Config) (*TransferTask, error) {
	if config == nil {
		config = core.DefaultConfig()
	}
	streaming := config.Streaming
	if streaming.MaxPending <= 0 {
		err := fmt.Errorf("streaming max_pending must be positive, got %d", streaming.MaxPending)
		core.LogError(err.Error())
		return nil, err
	}
	jobs, err := systems.NewJobSystem(streaming.Workers, streaming.QueueSize)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return &TransferTask{
		device:          device,
		jobs:            jobs,
		stageMask:       vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit | vk.PipelineStageFragmentShaderBit),
		fenceTimeout:    config.Sync.FenceTimeout.Nanoseconds(),
		maxFenceRetries: config.Sync.MaxFenceRetries,
		ready:           containers.NewRingQueue[*Semaphore](streaming.MaxPending),
	}, nil
}

// recycle moves the semaphores whose submissions were retired back to the free list.
// Only Semaphores calls it: by then the submitting goroutine counted every
// semaphore handed out before, so a zero count means retired.
func (tt *TransferTask) recycle() {
	kept := tt.inUse[:0]
	for _, s := range tt.inUse {
		if s.NumDependentSubmissions() == 0 {
			tt.free = append(tt.free, s)
		} else {
			kept = append(kept, s)
		}
	}
	tt.inUse = kept
}

func (tt *TransferTask) reserveSemaphore() (*Semaphore, error) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if tt.ready.Len()+tt.reserved >= tt.ready.Cap() {
		return nil, core.ErrQueueFull
	}

	var semaphore *Semaphore
	if n := len(tt.free); n > 0 {
		semaphore = tt.free[n-1]
		tt.free = tt.free[:n-1]
	} else {
		s, err := NewSemaphore(tt.device, tt.stageMask)
		if err != nil {
			return nil, err
		}
		semaphore = s
		tt.all = append(tt.all, s)
	}
	tt.reserved++
	return semaphore, nil
}

func (tt *TransferTask) publish(semaphore *Semaphore, signaled bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	tt.reserved--
	if !signaled {
		tt.free = append(tt.free, semaphore)
		return
	}
	// capacity was reserved, so this cannot fail
	_ = tt.ready.Enqueue(semaphore)
}

type uploadParams struct {
	buffer *DescriptorBuffer
	guard  *Fence
}

func (tt *TransferTask) upload(db *DescriptorBuffer, guard *Fence) error {
	semaphore, err := tt.reserveSemaphore()
	if err != nil {
		return err
	}
	// host writes are not ordered against frames still reading the buffer
	if guard != nil {
		if err := guard.WaitRetired(tt.fenceTimeout, tt.maxFenceRetries); err != nil {
			tt.publish(semaphore, false)
			return err
		}
	}
	if err := db.CopyToDevice(); err != nil {
		tt.publish(semaphore, false)
		return err
	}
	submit := &SubmitInfo{SignalSemaphores: []vk.Semaphore{semaphore.Handle}}
	if res := tt.device.QueueSubmit(submit, vk.NullFence); res != vk.Success {
		tt.publish(semaphore, false)
		return newResultError("submit upload signal", res)
	}
	tt.publish(semaphore, true)
	return nil
}

/**
 * @brief Queues a re-upload of db on a worker. guard is the fence of the last
 * submission binding db, nil when none did; the worker writes only once that
 * submission completed. Until Flush returns db must not be compiled, released,
 * uploaded from another goroutine or bound by a new submission.
 * Returns false once the task is destroyed.
 */
func (tt *TransferTask) Upload(db *DescriptorBuffer, guard *Fence) bool {
	tt.pending.Add(1)
	queued := tt.jobs.Submit(metadata.JobTask{
		JobType:     metadata.JOB_TYPE_GPU_RESOURCE,
		Priority:    metadata.JOB_PRIORITY_NORMAL,
		InputParams: uploadParams{buffer: db, guard: guard},
		OnStart: func(params interface{}) (interface{}, error) {
			p := params.(uploadParams)
			return nil, tt.upload(p.buffer, p.guard)
		},
		OnCompletionCallback: tt.pending.Done,
	})
	if !queued {
		tt.pending.Done()
	}
	return queued
}

// Flush blocks until every queued upload finished.
func (tt *TransferTask) Flush() {
	tt.pending.Wait()
}

// Semaphores hands out the semaphores of the uploads completed since the last
// call. The caller must count each one as a dependent submission before the
// next call.
func (tt *TransferTask) Semaphores() []*Semaphore {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	tt.recycle()
	semaphores := tt.ready.Drain()
	tt.inUse = append(tt.inUse, semaphores...)
	return semaphores
}

// Destroy waits for queued uploads, stops the workers and destroys every semaphore.
func (tt *TransferTask) Destroy() {
	tt.Flush()
	tt.jobs.Shutdown()

	tt.mu.Lock()
	defer tt.mu.Unlock()
	for _, s := range tt.all {
		s.Destroy()
	}
	tt.all = nil
	tt.free = nil
	tt.inUse = nil
	tt.ready.Drain()
}
