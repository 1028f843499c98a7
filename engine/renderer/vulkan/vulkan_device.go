package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

/**
 * @brief Device implementation on top of goki/vulkan. Instance, physical and
 * logical device creation belong to the platform layer; VulkanDevice takes the
 * created handles and owns the command pool used for uploads.
 */
type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Allocator      *vk.AllocationCallbacks

	GraphicsQueueIndex  uint32
	GraphicsQueue       vk.Queue
	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties

	locks *VulkanLockPool
}

func NewVulkanDevice(physical vk.PhysicalDevice, logical vk.Device, graphicsQueueIndex uint32) (*VulkanDevice, error) {
	vd := &VulkanDevice{
		PhysicalDevice:     physical,
		LogicalDevice:      logical,
		GraphicsQueueIndex: graphicsQueueIndex,
		locks:              NewVulkanLockPool(),
	}

	vk.GetPhysicalDeviceProperties(physical, &vd.Properties)
	vd.Properties.Deref()
	vd.Properties.Limits.Deref()

	vk.GetPhysicalDeviceMemoryProperties(physical, &vd.Memory)
	vd.Memory.Deref()

	vk.GetDeviceQueue(logical, graphicsQueueIndex, 0, &vd.GraphicsQueue)

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: graphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(logical, &poolCreateInfo, vd.Allocator, &vd.GraphicsCommandPool); res != vk.Success {
		return nil, newResultError("create graphics command pool", res)
	}
	core.LogDebug("graphics command pool created for queue family %d", graphicsQueueIndex)

	return vd, nil
}

func (vd *VulkanDevice) Destroy() {
	if vd.GraphicsCommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(vd.LogicalDevice, vd.GraphicsCommandPool, vd.Allocator)
		vd.GraphicsCommandPool = vk.NullCommandPool
	}
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has all propertyFlags.
func (vd *VulkanDevice) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < vd.Memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		vd.Memory.MemoryTypes[i].Deref()
		flags := vk.MemoryPropertyFlagBits(vd.Memory.MemoryTypes[i].PropertyFlags)
		if (typeFilter&(1<<i)) != 0 && flags&propertyFlags == propertyFlags {
			return i, true
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return 0, false
}

func (vd *VulkanDevice) allocate(requirements vk.MemoryRequirements, properties vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	requirements.Deref()
	index, ok := vd.FindMemoryIndex(requirements.MemoryTypeBits, properties)
	if !ok {
		err := fmt.Errorf("no memory type for properties %#x: %w", uint32(properties), core.ErrDeviceFailure)
		core.LogError(err.Error())
		return vk.NullDeviceMemory, err
	}

	var memory vk.DeviceMemory
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: index,
	}
	if res := vk.AllocateMemory(vd.LogicalDevice, &allocateInfo, vd.Allocator, &memory); res != vk.Success {
		return vk.NullDeviceMemory, newResultError("allocate device memory", res)
	}
	return memory, nil
}

func (vd *VulkanDevice) createBuffer(size vk.DeviceSize, usage vk.BufferUsageFlagBits, properties vk.MemoryPropertyFlagBits) (*Buffer, error) {
	buffer := &Buffer{Size: size, Usage: usage}

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(vd.LogicalDevice, &createInfo, vd.Allocator, &buffer.Handle); res != vk.Success {
		return nil, newResultError("create buffer", res)
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vd.LogicalDevice, buffer.Handle, &requirements)
	memory, err := vd.allocate(requirements, properties)
	if err != nil {
		vk.DestroyBuffer(vd.LogicalDevice, buffer.Handle, vd.Allocator)
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(vd.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		vd.DestroyBuffer(buffer)
		return nil, newResultError("bind buffer memory", res)
	}
	return buffer, nil
}

// CreateBuffer creates a host visible, coherent buffer.
func (vd *VulkanDevice) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	var buffer *Buffer
	err := vd.locks.SafeCall(BufferManagement, func() error {
		var err error
		buffer, err = vd.createBuffer(size, usage, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		return err
	})
	return buffer, err
}

func (vd *VulkanDevice) DestroyBuffer(buffer *Buffer) {
	if buffer == nil {
		return
	}
	if buffer.Handle != vk.NullBuffer {
		vk.DestroyBuffer(vd.LogicalDevice, buffer.Handle, vd.Allocator)
		buffer.Handle = vk.NullBuffer
	}
	if buffer.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(vd.LogicalDevice, buffer.Memory, vd.Allocator)
		buffer.Memory = vk.NullDeviceMemory
	}
}

func (vd *VulkanDevice) CopyToBuffer(buffer *Buffer, offset vk.DeviceSize, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if offset+vk.DeviceSize(len(data)) > buffer.Size {
		err := fmt.Errorf("copy of %d bytes at offset %d overflows buffer of %d bytes", len(data), offset, buffer.Size)
		core.LogError(err.Error())
		return err
	}
	return vd.locks.SafeCall(MemoryManagement, func() error {
		var ptr unsafe.Pointer
		if res := vk.MapMemory(vd.LogicalDevice, buffer.Memory, offset, vk.DeviceSize(len(data)), 0, &ptr); res != vk.Success {
			return newResultError("map buffer memory", res)
		}
		vk.Memcopy(ptr, data)
		vk.UnmapMemory(vd.LogicalDevice, buffer.Memory)
		return nil
	})
}

func (vd *VulkanDevice) MinOffsetAlignment(usage vk.BufferUsageFlagBits) vk.DeviceSize {
	limits := vd.Properties.Limits
	switch {
	case usage&vk.BufferUsageUniformBufferBit != 0:
		return limits.MinUniformBufferOffsetAlignment
	case usage&vk.BufferUsageStorageBufferBit != 0:
		return limits.MinStorageBufferOffsetAlignment
	}
	return 1
}

func (vd *VulkanDevice) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	var sampler vk.Sampler
	err := vd.locks.SafeCall(SamplerManagement, func() error {
		if res := vk.CreateSampler(vd.LogicalDevice, info, vd.Allocator, &sampler); res != vk.Success {
			return newResultError("create sampler", res)
		}
		return nil
	})
	return sampler, err
}

func (vd *VulkanDevice) DestroySampler(sampler vk.Sampler) {
	if sampler != nil {
		vk.DestroySampler(vd.LogicalDevice, sampler, vd.Allocator)
	}
}

func (vd *VulkanDevice) MaxSamplerAnisotropy() float32 {
	return vd.Properties.Limits.MaxSamplerAnisotropy
}

func vulkanFormat(format metadata.ImageFormat) vk.Format {
	switch format {
	case metadata.ImageFormatR8Unorm:
		return vk.FormatR8Unorm
	case metadata.ImageFormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case metadata.ImageFormatR8G8B8A8Srgb:
		return vk.FormatR8g8b8a8Srgb
	case metadata.ImageFormatR32G32B32A32Sfloat:
		return vk.FormatR32g32b32a32Sfloat
	}
	return vk.FormatUndefined
}

/**
 * @brief Uploads data through a staging buffer into a device local image and
 * leaves it in shader read-only layout. Blocks until the copy completed.
 */
func (vd *VulkanDevice) TransferImage(data *metadata.ImageData) (*Image, error) {
	if !data.Valid() {
		err := fmt.Errorf("image data is empty or does not match its format: %w", core.ErrImageTransfer)
		core.LogError(err.Error())
		return nil, err
	}

	staging, err := vd.createBuffer(vk.DeviceSize(data.Size()), vk.BufferUsageTransferSrcBit, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	defer vd.DestroyBuffer(staging)
	if err := vd.CopyToBuffer(staging, 0, data.Pixels); err != nil {
		return nil, err
	}

	image := &Image{
		Format: vulkanFormat(data.Format),
		Layout: vk.ImageLayoutUndefined,
		Width:  data.Width,
		Height: data.Height,
	}
	if err := vd.locks.SafeCall(ImageManagement, func() error { return vd.createImage(image) }); err != nil {
		return nil, err
	}

	cb, err := AllocateAndBeginSingleUse(vd)
	if err != nil {
		vd.DestroyImage(image)
		return nil, err
	}
	recordImageTransition(cb.Handle, image, vk.ImageLayoutTransferDstOptimal)
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: image.Width, Height: image.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cb.Handle, staging.Handle, image.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	recordImageTransition(cb.Handle, image, vk.ImageLayoutShaderReadOnlyOptimal)

	if err := cb.EndSingleUse(); err != nil {
		vd.DestroyImage(image)
		return nil, err
	}
	return image, nil
}

func (vd *VulkanDevice) createImage(image *Image) error {
	createInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        image.Format,
		Extent:        vk.Extent3D{Width: image.Width, Height: image.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if res := vk.CreateImage(vd.LogicalDevice, &createInfo, vd.Allocator, &image.Handle); res != vk.Success {
		return newResultError("create image", res)
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(vd.LogicalDevice, image.Handle, &requirements)
	memory, err := vd.allocate(requirements, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(vd.LogicalDevice, image.Handle, vd.Allocator)
		image.Handle = vk.NullImage
		return err
	}
	image.Memory = memory
	if res := vk.BindImageMemory(vd.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		vd.DestroyImage(image)
		return newResultError("bind image memory", res)
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   image.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	if res := vk.CreateImageView(vd.LogicalDevice, &viewInfo, vd.Allocator, &image.View); res != vk.Success {
		vd.DestroyImage(image)
		return newResultError("create image view", res)
	}
	return nil
}

func recordImageTransition(commandBuffer vk.CommandBuffer, image *Image, newLayout vk.ImageLayout) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           image.Layout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags
	if newLayout == vk.ImageLayoutTransferDstOptimal {
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	} else {
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	}

	vk.CmdPipelineBarrier(commandBuffer, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	image.Layout = newLayout
}

func (vd *VulkanDevice) DestroyImage(image *Image) {
	if image == nil {
		return
	}
	if image.View != vk.NullImageView {
		vk.DestroyImageView(vd.LogicalDevice, image.View, vd.Allocator)
		image.View = vk.NullImageView
	}
	if image.Handle != vk.NullImage {
		vk.DestroyImage(vd.LogicalDevice, image.Handle, vd.Allocator)
		image.Handle = vk.NullImage
	}
	if image.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(vd.LogicalDevice, image.Memory, vd.Allocator)
		image.Memory = vk.NullDeviceMemory
	}
}

func (vd *VulkanDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	if len(writes) == 0 {
		return
	}
	vd.locks.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(vd.LogicalDevice, uint32(len(writes)), writes, 0, nil)
		return nil
	})
}

func (vd *VulkanDevice) CreateFence(signaled bool) (vk.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if res := vk.CreateFence(vd.LogicalDevice, &fenceCreateInfo, vd.Allocator, &fence); res != vk.Success {
		return vk.NullFence, newResultError("create fence", res)
	}
	return fence, nil
}

func (vd *VulkanDevice) DestroyFence(fence vk.Fence) {
	if fence != vk.NullFence {
		vk.DestroyFence(vd.LogicalDevice, fence, vd.Allocator)
	}
}

func (vd *VulkanDevice) WaitForFence(fence vk.Fence, timeoutNs uint64) vk.Result {
	return vk.WaitForFences(vd.LogicalDevice, 1, []vk.Fence{fence}, vk.True, timeoutNs)
}

func (vd *VulkanDevice) ResetFence(fence vk.Fence) vk.Result {
	return vk.ResetFences(vd.LogicalDevice, 1, []vk.Fence{fence})
}

func (vd *VulkanDevice) CreateSemaphore() (vk.Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(vd.LogicalDevice, &createInfo, vd.Allocator, &semaphore); res != vk.Success {
		return vk.NullSemaphore, newResultError("create semaphore", res)
	}
	return semaphore, nil
}

func (vd *VulkanDevice) DestroySemaphore(semaphore vk.Semaphore) {
	if semaphore != vk.NullSemaphore {
		vk.DestroySemaphore(vd.LogicalDevice, semaphore, vd.Allocator)
	}
}

func (vd *VulkanDevice) AllocateCommandBuffer(primary bool) (vk.CommandBuffer, error) {
	level := vk.CommandBufferLevelSecondary
	if primary {
		level = vk.CommandBufferLevelPrimary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        vd.GraphicsCommandPool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	err := vd.locks.SafeCall(CommandBufferManagement, func() error {
		if res := vk.AllocateCommandBuffers(vd.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			return newResultError("allocate command buffer", res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handles[0], nil
}

func (vd *VulkanDevice) FreeCommandBuffer(commandBuffer vk.CommandBuffer) {
	vd.locks.SafeCall(CommandBufferManagement, func() error {
		vk.FreeCommandBuffers(vd.LogicalDevice, vd.GraphicsCommandPool, 1, []vk.CommandBuffer{commandBuffer})
		return nil
	})
}

func (vd *VulkanDevice) BeginCommandBuffer(commandBuffer vk.CommandBuffer, flags vk.CommandBufferUsageFlags) vk.Result {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}
	return vk.BeginCommandBuffer(commandBuffer, &beginInfo)
}

func (vd *VulkanDevice) EndCommandBuffer(commandBuffer vk.CommandBuffer) vk.Result {
	return vk.EndCommandBuffer(commandBuffer)
}

// QueueSubmit serializes access to the graphics queue.
func (vd *VulkanDevice) QueueSubmit(submit *SubmitInfo, fence vk.Fence) vk.Result {
	res := vk.Success
	vd.locks.SafeQueueCall(vd.GraphicsQueueIndex, func() error {
		res = vk.QueueSubmit(vd.GraphicsQueue, 1, []vk.SubmitInfo{submit.toVulkan()}, fence)
		return nil
	})
	return res
}
