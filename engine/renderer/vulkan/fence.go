package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

/**
 * @brief A GPU fence and everything that must stay alive until it signals:
 * the semaphores and command buffers of the submissions it guards.
 * Dependents accumulate per submission and are released together by the
 * first successful wait.
 */
type Fence struct {
	Handle vk.Fence

	device Device

	mu                      sync.Mutex
	dependentSemaphores     []*Semaphore
	dependentCommandBuffers []*CommandBuffer
	// set by a queue submission, cleared by the wait that retires it
	submitted bool
}

func NewFence(device Device, createSignaled bool) (*Fence, error) {
	handle, err := device.CreateFence(createSignaled)
	if err != nil {
		return nil, err
	}
	return &Fence{
		Handle: handle,
		device: device,
	}, nil
}

func (f *Fence) AddDependentSemaphores(semaphores ...*Semaphore) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dependentSemaphores = append(f.dependentSemaphores, semaphores...)
}

func (f *Fence) AddDependentCommandBuffers(commandBuffers ...*CommandBuffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dependentCommandBuffers = append(f.dependentCommandBuffers, commandBuffers...)
}

// DependentSemaphores returns a copy, in insertion order.
func (f *Fence) DependentSemaphores() []*Semaphore {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Semaphore(nil), f.dependentSemaphores...)
}

// DependentCommandBuffers returns a copy, in insertion order.
func (f *Fence) DependentCommandBuffers() []*CommandBuffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*CommandBuffer(nil), f.dependentCommandBuffers...)
}

func (f *Fence) HasDependents() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dependentSemaphores) > 0 || len(f.dependentCommandBuffers) > 0
}

// InFlight reports whether a submission guarded by the fence was not retired yet.
func (f *Fence) InFlight() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted || len(f.dependentSemaphores) > 0 || len(f.dependentCommandBuffers) > 0
}

func (f *Fence) markSubmitted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = true
}

/**
 * @brief Blocks until the fence signals or timeoutNs elapsed. On success the
 * fence is reset and every dependent is retired: semaphore and command buffer
 * counters drop to zero and both lists are cleared. Any other status, a failed
 * reset included, leaves the dependents untouched and is returned as is.
 */
func (f *Fence) Wait(timeoutNs uint64) vk.Result {
	result := f.device.WaitForFence(f.Handle, timeoutNs)
	if result != vk.Success {
		return result
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// still signaled, so the next wait returns at once and retries the reset
	if result := f.device.ResetFence(f.Handle); result != vk.Success {
		return result
	}

	for _, semaphore := range f.dependentSemaphores {
		semaphore.ResetDependentSubmissions()
	}
	for _, commandBuffer := range f.dependentCommandBuffers {
		commandBuffer.Reset()
	}
	f.dependentSemaphores = f.dependentSemaphores[:0]
	f.dependentCommandBuffers = f.dependentCommandBuffers[:0]
	f.submitted = false

	return vk.Success
}

/**
 * @brief Blocks until the submission guarded by the fence completed, without
 * resetting the fence or touching its dependents; that stays with the
 * goroutine submitting on it. Returns at once when nothing is in flight.
 * maxRetries bounds the timed out waits as in WaitAndReclaim.
 */
func (f *Fence) WaitRetired(timeoutNs uint64, maxRetries uint32) error {
	var timeouts uint32
	for f.InFlight() {
		result := f.device.WaitForFence(f.Handle, timeoutNs)
		switch result {
		case vk.Success:
			return nil
		case vk.Timeout:
			// a reclaim may have reset the fence meanwhile, InFlight tells
			timeouts++
			if maxRetries != 0 && timeouts >= maxRetries {
				return newResultError("fence retire wait", result)
			}
		default:
			return newResultError("fence retire wait", result)
		}
	}
	return nil
}

/**
 * @brief Waits until the fence signals, retrying on timeout. maxRetries is the
 * number of timed out waits tolerated before ErrFenceTimeout is returned; 0
 * retries forever. Returns the number of timeouts observed along with a
 * ResultError for anything that is neither success nor timeout.
 */
func (f *Fence) WaitAndReclaim(timeoutNs uint64, maxRetries uint32) (uint32, error) {
	var timeouts uint32
	for {
		result := f.Wait(timeoutNs)
		switch result {
		case vk.Success:
			return timeouts, nil
		case vk.Timeout:
			timeouts++
			core.LogWarn("fence wait timed out after %dns, retrying (attempt %d)", timeoutNs, timeouts)
			if maxRetries != 0 && timeouts >= maxRetries {
				return timeouts, newResultError("fence wait", result)
			}
		default:
			return timeouts, newResultError("fence wait", result)
		}
	}
}

// Destroy releases the fence. Dependents still attached mean a submission was
// never waited on; they are reported and dropped.
func (f *Fence) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.dependentSemaphores) > 0 || len(f.dependentCommandBuffers) > 0 {
		core.LogWarn("fence destroyed with %d semaphores and %d command buffers still attached",
			len(f.dependentSemaphores), len(f.dependentCommandBuffers))
		f.dependentSemaphores = nil
		f.dependentCommandBuffers = nil
	}
	if f.Handle != vk.NullFence {
		f.device.DestroyFence(f.Handle)
		f.Handle = vk.NullFence
	}
}
