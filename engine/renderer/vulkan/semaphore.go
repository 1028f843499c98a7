package vulkan

import (
	"sync/atomic"

	vk "github.com/goki/vulkan"
)

/**
 * @brief A GPU semaphore plus the number of submissions that signal or wait
 * on it and have not been retired yet. The counter is shared with the
 * streaming worker, so it is only touched atomically. It goes back to zero
 * once the fence guarding those submissions is known to be signaled.
 */
type Semaphore struct {
	Handle vk.Semaphore

	device    Device
	stageMask vk.PipelineStageFlags

	numDependentSubmissions atomic.Uint32
}

// NewSemaphore creates a semaphore that is waited on at stageMask.
func NewSemaphore(device Device, stageMask vk.PipelineStageFlags) (*Semaphore, error) {
	handle, err := device.CreateSemaphore()
	if err != nil {
		return nil, err
	}
	return &Semaphore{
		Handle:    handle,
		device:    device,
		stageMask: stageMask,
	}, nil
}

func (s *Semaphore) PipelineStageFlags() vk.PipelineStageFlags {
	return s.stageMask
}

func (s *Semaphore) NumDependentSubmissions() uint32 {
	return s.numDependentSubmissions.Load()
}

// AddDependentSubmission returns the new count.
func (s *Semaphore) AddDependentSubmission() uint32 {
	return s.numDependentSubmissions.Add(1)
}

// ResetDependentSubmissions returns the count it replaced.
func (s *Semaphore) ResetDependentSubmissions() uint32 {
	return s.numDependentSubmissions.Swap(0)
}

func (s *Semaphore) Destroy() {
	if s.Handle != vk.NullSemaphore {
		s.device.DestroySemaphore(s.Handle)
		s.Handle = vk.NullSemaphore
	}
}
