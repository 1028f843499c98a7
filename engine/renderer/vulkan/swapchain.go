package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

// ImageAcquirer hands out presentable images. semaphore is signaled once the
// returned image can be rendered to.
type ImageAcquirer interface {
	AcquireNextImage(timeoutNs uint64, semaphore vk.Semaphore) (uint32, vk.Result)
}

// VulkanSwapchain acquires the images of a swapchain created by the windowing layer.
type VulkanSwapchain struct {
	Handle vk.Swapchain

	device *VulkanDevice
}

func NewVulkanSwapchain(device *VulkanDevice, handle vk.Swapchain) *VulkanSwapchain {
	return &VulkanSwapchain{
		Handle: handle,
		device: device,
	}
}

func (vs *VulkanSwapchain) AcquireNextImage(timeoutNs uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	var imageIndex uint32
	result := vk.AcquireNextImage(vs.device.LogicalDevice, vs.Handle, timeoutNs, semaphore, vk.NullFence, &imageIndex)
	return imageIndex, result
}

/**
 * @brief A Window with one Frame per swapchain image.
 *
 * Which image an acquire returns is only known once it returned, so every
 * acquire signals a spare semaphore that is then swapped with the one of the
 * returned image's frame.
 */
type SwapchainWindow struct {
	acquirer   ImageAcquirer
	timeoutNs  uint64
	maxRetries uint32

	frames     []*Frame
	spare      *Semaphore
	imageIndex uint32
	// the last acquire returned no image
	acquireFailed bool
	// the swapchain no longer matches the surface
	outOfDate bool
}

func NewSwapchainWindow(device Device, acquirer ImageAcquirer, imageCount uint32, config *core.Config) (*SwapchainWindow, error) {
	if imageCount == 0 {
		err := fmt.Errorf("swapchain window needs at least one image")
		core.LogError(err.Error())
		return nil, err
	}
	if config == nil {
		config = core.DefaultConfig()
	}

	sw := &SwapchainWindow{
		acquirer:   acquirer,
		timeoutNs:  config.Sync.FenceTimeout.Nanoseconds(),
		maxRetries: config.Sync.MaxFenceRetries,
		frames:     make([]*Frame, 0, imageCount),
	}
	stageMask := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)

	spare, err := NewSemaphore(device, stageMask)
	if err != nil {
		return nil, err
	}
	sw.spare = spare

	for i := uint32(0); i < imageCount; i++ {
		semaphore, err := NewSemaphore(device, stageMask)
		if err != nil {
			_ = sw.Destroy()
			return nil, err
		}
		fence, err := NewFence(device, false)
		if err != nil {
			semaphore.Destroy()
			_ = sw.Destroy()
			return nil, err
		}
		sw.frames = append(sw.frames, &Frame{
			ImageAvailableSemaphore: semaphore,
			CommandsCompletedFence:  fence,
		})
	}
	return sw, nil
}

// NextImageIndex acquires the next image. On failure the previous index is
// returned and Frame reports no frame until an acquire succeeds.
func (sw *SwapchainWindow) NextImageIndex() uint32 {
	imageIndex, result := sw.acquirer.AcquireNextImage(sw.timeoutNs, sw.spare.Handle)

	switch result {
	case vk.Success:
	case vk.Suboptimal:
		// still presentable
		sw.outOfDate = true
	case vk.ErrorOutOfDate:
		sw.outOfDate = true
		sw.acquireFailed = true
		core.LogWarn("swapchain out of date, it has to be recreated")
		return sw.imageIndex
	default:
		sw.acquireFailed = true
		core.LogError("failed to acquire swapchain image: %s", VulkanResultString(result))
		return sw.imageIndex
	}

	if imageIndex >= uint32(len(sw.frames)) {
		sw.acquireFailed = true
		core.LogError("swapchain returned image %d of %d", imageIndex, len(sw.frames))
		return sw.imageIndex
	}

	frame := sw.frames[imageIndex]
	frame.ImageAvailableSemaphore, sw.spare = sw.spare, frame.ImageAvailableSemaphore
	sw.imageIndex = imageIndex
	sw.acquireFailed = false
	return imageIndex
}

func (sw *SwapchainWindow) Frame(imageIndex uint32) *Frame {
	if sw.acquireFailed || imageIndex >= uint32(len(sw.frames)) {
		return nil
	}
	return sw.frames[imageIndex]
}

func (sw *SwapchainWindow) ImageCount() uint32 {
	return uint32(len(sw.frames))
}

// NeedsRecreate reports whether an acquire found the swapchain out of date or suboptimal.
func (sw *SwapchainWindow) NeedsRecreate() bool {
	return sw.outOfDate
}

// Destroy waits for every frame still in flight, then releases the frames.
func (sw *SwapchainWindow) Destroy() error {
	var firstErr error
	for _, frame := range sw.frames {
		if frame.CommandsCompletedFence.InFlight() {
			if _, err := frame.CommandsCompletedFence.WaitAndReclaim(sw.timeoutNs, sw.maxRetries); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		frame.CommandsCompletedFence.Destroy()
		frame.ImageAvailableSemaphore.Destroy()
	}
	sw.frames = nil
	if sw.spare != nil {
		sw.spare.Destroy()
		sw.spare = nil
	}
	return firstErr
}
