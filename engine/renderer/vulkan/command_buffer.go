package vulkan

import (
	"sync/atomic"

	vk "github.com/goki/vulkan"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type CommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State CommandBufferState

	device Device
	// Submissions using this buffer that no fence wait retired yet.
	numDependentSubmissions atomic.Uint32
}

func NewCommandBuffer(device Device, isPrimary bool) (*CommandBuffer, error) {
	handle, err := device.AllocateCommandBuffer(isPrimary)
	if err != nil {
		return nil, err
	}
	return &CommandBuffer{
		Handle: handle,
		State:  COMMAND_BUFFER_STATE_READY,
		device: device,
	}, nil
}

func (cb *CommandBuffer) Free() {
	if cb.State == COMMAND_BUFFER_STATE_NOT_ALLOCATED {
		return
	}
	cb.device.FreeCommandBuffer(cb.Handle)
	cb.Handle = nil
	cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (cb *CommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	var flags vk.CommandBufferUsageFlags
	if isSingleUse {
		flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := cb.device.BeginCommandBuffer(cb.Handle, flags); res != vk.Success {
		return newResultError("begin command buffer", res)
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (cb *CommandBuffer) End() error {
	if res := cb.device.EndCommandBuffer(cb.Handle); res != vk.Success {
		return newResultError("end command buffer", res)
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

// UpdateSubmitted marks the buffer as part of one more in-flight submission.
func (cb *CommandBuffer) UpdateSubmitted() {
	cb.numDependentSubmissions.Add(1)
	cb.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (cb *CommandBuffer) NumDependentSubmissions() uint32 {
	return cb.numDependentSubmissions.Load()
}

// Reset retires every submission of the buffer. Called once its fence signaled.
func (cb *CommandBuffer) Reset() {
	cb.numDependentSubmissions.Store(0)
	if cb.State != COMMAND_BUFFER_STATE_NOT_ALLOCATED {
		cb.State = COMMAND_BUFFER_STATE_READY
	}
}

/**
 * Allocates and begins recording a one time submit command buffer.
 */
func AllocateAndBeginSingleUse(device Device) (*CommandBuffer, error) {
	cb, err := NewCommandBuffer(device, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free()
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits, waits for the submission on a private fence and
 * frees the command buffer.
 */
func (cb *CommandBuffer) EndSingleUse() error {
	defer cb.Free()

	if err := cb.End(); err != nil {
		return err
	}

	fence, err := cb.device.CreateFence(false)
	if err != nil {
		return err
	}
	defer cb.device.DestroyFence(fence)

	submit := &SubmitInfo{CommandBuffers: []vk.CommandBuffer{cb.Handle}}
	if res := cb.device.QueueSubmit(submit, fence); res != vk.Success {
		return newResultError("submit single use command buffer", res)
	}
	if res := cb.device.WaitForFence(fence, vk.MaxUint64); res != vk.Success {
		return newResultError("wait for single use command buffer", res)
	}
	return nil
}
