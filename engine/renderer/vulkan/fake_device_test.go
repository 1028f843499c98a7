package vulkan

import (
	"errors"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func fakeHandle(n uintptr) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(nil), n)
}

type fakeCopy struct {
	buffer *Buffer
	offset vk.DeviceSize
	data   []byte
}

// fakeDevice records every call. Fence waits follow waitResults in order and
// succeed once the script ran out.
type fakeDevice struct {
	mu     sync.Mutex
	handle uintptr

	alignment vk.DeviceSize

	buffers          []*Buffer
	destroyedBuffers int
	copies           []fakeCopy

	samplerInfos      []vk.SamplerCreateInfo
	destroyedSamplers int
	transfers         int
	destroyedImages   int
	transferErr       error

	writes [][]vk.WriteDescriptorSet

	fences      int
	fenceWaits  []vk.Fence
	waitResults []vk.Result
	fenceResets []vk.Fence
	resetResult vk.Result

	semaphores          int
	destroyedSemaphores int

	commandBuffers int
	submits        []SubmitInfo
	submitFences   []vk.Fence
	submitResult   vk.Result
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{alignment: 256}
}

func (fd *fakeDevice) nextHandle() unsafe.Pointer {
	fd.handle++
	return fakeHandle(fd.handle)
}

func (fd *fakeDevice) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	b := &Buffer{
		Handle: vk.Buffer(fd.nextHandle()),
		Memory: vk.DeviceMemory(fd.nextHandle()),
		Size:   size,
		Usage:  usage,
	}
	fd.buffers = append(fd.buffers, b)
	return b, nil
}

func (fd *fakeDevice) DestroyBuffer(buffer *Buffer) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.destroyedBuffers++
}

func (fd *fakeDevice) CopyToBuffer(buffer *Buffer, offset vk.DeviceSize, data []byte) error {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if offset+vk.DeviceSize(len(data)) > buffer.Size {
		return errors.New("copy overflows buffer")
	}
	fd.copies = append(fd.copies, fakeCopy{buffer: buffer, offset: offset, data: append([]byte(nil), data...)})
	return nil
}

func (fd *fakeDevice) MinOffsetAlignment(usage vk.BufferUsageFlagBits) vk.DeviceSize {
	return fd.alignment
}

func (fd *fakeDevice) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.samplerInfos = append(fd.samplerInfos, *info)
	return vk.Sampler(fd.nextHandle()), nil
}

func (fd *fakeDevice) DestroySampler(sampler vk.Sampler) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.destroyedSamplers++
}

func (fd *fakeDevice) MaxSamplerAnisotropy() float32 {
	return 8
}

func (fd *fakeDevice) TransferImage(data *metadata.ImageData) (*Image, error) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if fd.transferErr != nil {
		return nil, fd.transferErr
	}
	fd.transfers++
	return &Image{
		Handle: vk.Image(fd.nextHandle()),
		View:   vk.ImageView(fd.nextHandle()),
		Layout: vk.ImageLayoutShaderReadOnlyOptimal,
		Width:  data.Width,
		Height: data.Height,
	}, nil
}

func (fd *fakeDevice) DestroyImage(image *Image) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.destroyedImages++
}

func (fd *fakeDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.writes = append(fd.writes, writes)
}

func (fd *fakeDevice) CreateFence(signaled bool) (vk.Fence, error) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.fences++
	return vk.Fence(fd.nextHandle()), nil
}

func (fd *fakeDevice) DestroyFence(fence vk.Fence) {}

func (fd *fakeDevice) WaitForFence(fence vk.Fence, timeoutNs uint64) vk.Result {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.fenceWaits = append(fd.fenceWaits, fence)
	if len(fd.waitResults) == 0 {
		return vk.Success
	}
	res := fd.waitResults[0]
	fd.waitResults = fd.waitResults[1:]
	return res
}

func (fd *fakeDevice) ResetFence(fence vk.Fence) vk.Result {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.fenceResets = append(fd.fenceResets, fence)
	return fd.resetResult
}

func (fd *fakeDevice) CreateSemaphore() (vk.Semaphore, error) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.semaphores++
	return vk.Semaphore(fd.nextHandle()), nil
}

func (fd *fakeDevice) DestroySemaphore(semaphore vk.Semaphore) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.destroyedSemaphores++
}

func (fd *fakeDevice) AllocateCommandBuffer(primary bool) (vk.CommandBuffer, error) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.commandBuffers++
	return vk.CommandBuffer(fd.nextHandle()), nil
}

func (fd *fakeDevice) FreeCommandBuffer(commandBuffer vk.CommandBuffer) {}

func (fd *fakeDevice) BeginCommandBuffer(commandBuffer vk.CommandBuffer, flags vk.CommandBufferUsageFlags) vk.Result {
	return vk.Success
}

func (fd *fakeDevice) EndCommandBuffer(commandBuffer vk.CommandBuffer) vk.Result {
	return vk.Success
}

func (fd *fakeDevice) QueueSubmit(submit *SubmitInfo, fence vk.Fence) vk.Result {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if fd.submitResult != vk.Success {
		return fd.submitResult
	}
	fd.submits = append(fd.submits, *submit)
	fd.submitFences = append(fd.submitFences, fence)
	return vk.Success
}

func (fd *fakeDevice) waitCount() int {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return len(fd.fenceWaits)
}

func (fd *fakeDevice) submitCount() int {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return len(fd.submits)
}
