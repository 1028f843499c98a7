package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

/**
 * @brief The device calls the submission and descriptor code depends on.
 * VulkanDevice implements it on top of goki/vulkan. Every blocking or
 * failing call reports the raw vk.Result so callers can tell a timeout
 * from a device failure.
 */
type Device interface {
	// Buffers
	CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlagBits) (*Buffer, error)
	DestroyBuffer(buffer *Buffer)
	CopyToBuffer(buffer *Buffer, offset vk.DeviceSize, data []byte) error
	MinOffsetAlignment(usage vk.BufferUsageFlagBits) vk.DeviceSize

	// Images and samplers
	CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error)
	DestroySampler(sampler vk.Sampler)
	MaxSamplerAnisotropy() float32
	TransferImage(data *metadata.ImageData) (*Image, error)
	DestroyImage(image *Image)
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)

	// Synchronization
	CreateFence(signaled bool) (vk.Fence, error)
	DestroyFence(fence vk.Fence)
	WaitForFence(fence vk.Fence, timeoutNs uint64) vk.Result
	ResetFence(fence vk.Fence) vk.Result
	CreateSemaphore() (vk.Semaphore, error)
	DestroySemaphore(semaphore vk.Semaphore)

	// Command buffers and queue
	AllocateCommandBuffer(primary bool) (vk.CommandBuffer, error)
	FreeCommandBuffer(commandBuffer vk.CommandBuffer)
	BeginCommandBuffer(commandBuffer vk.CommandBuffer, flags vk.CommandBufferUsageFlags) vk.Result
	EndCommandBuffer(commandBuffer vk.CommandBuffer) vk.Result
	QueueSubmit(submit *SubmitInfo, fence vk.Fence) vk.Result
}

// Buffer is a host visible device buffer with its bound memory.
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Usage  vk.BufferUsageFlagBits
}

// Image is a sampled image in shader read-only layout.
type Image struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Format vk.Format
	Layout vk.ImageLayout
	Width  uint32
	Height uint32
}

/**
 * @brief One batch handed to the queue. WaitDstStageMask runs parallel to
 * WaitSemaphores.
 */
type SubmitInfo struct {
	WaitSemaphores   []vk.Semaphore
	WaitDstStageMask []vk.PipelineStageFlags
	CommandBuffers   []vk.CommandBuffer
	SignalSemaphores []vk.Semaphore
}

func (si *SubmitInfo) toVulkan() vk.SubmitInfo {
	return vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(si.WaitSemaphores)),
		PWaitSemaphores:      si.WaitSemaphores,
		PWaitDstStageMask:    si.WaitDstStageMask,
		CommandBufferCount:   uint32(len(si.CommandBuffers)),
		PCommandBuffers:      si.CommandBuffers,
		SignalSemaphoreCount: uint32(len(si.SignalSemaphores)),
		PSignalSemaphores:    si.SignalSemaphores,
	}
}
