package vulkan

import "github.com/spaghettifunk/ember/engine/renderer/metadata"

// Frame is the synchronization of one swapchain image slot.
type Frame struct {
	ImageAvailableSemaphore *Semaphore
	CommandsCompletedFence  *Fence
}

/**
 * @brief A presentation target. NextImageIndex acquires the next swapchain
 * image; the returned slot stays valid until the next acquire.
 */
type Window interface {
	NextImageIndex() uint32
	Frame(imageIndex uint32) *Frame
}

/**
 * @brief Background uploads the next submission has to wait on. Each returned
 * semaphore is signaled by a completed upload.
 */
type ResourceStreamer interface {
	Semaphores() []*Semaphore
}

// CommandBuffers is the ordered output of recording. Submission follows its order.
type CommandBuffers struct {
	list []*CommandBuffer
}

func (cbs *CommandBuffers) Append(commandBuffers ...*CommandBuffer) {
	cbs.list = append(cbs.list, commandBuffers...)
}

func (cbs *CommandBuffers) Len() int {
	return len(cbs.list)
}

func (cbs *CommandBuffers) List() []*CommandBuffer {
	return cbs.list
}

/**
 * @brief Records the command buffers of one part of the scene. streamer is nil
 * when the task has no background uploads.
 */
type CommandGraph interface {
	Record(out *CommandBuffers, frameStamp metadata.FrameStamp, streamer ResourceStreamer)
}
