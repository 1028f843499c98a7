package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type acquireResult struct {
	index  uint32
	result vk.Result
}

type fakeAcquirer struct {
	results    []acquireResult
	semaphores []vk.Semaphore
}

func (fa *fakeAcquirer) AcquireNextImage(timeoutNs uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	fa.semaphores = append(fa.semaphores, semaphore)
	r := fa.results[0]
	fa.results = fa.results[1:]
	return r.index, r.result
}

func TestSwapchainWindowSwapsAcquireSemaphore(t *testing.T) {
	fd := newFakeDevice()
	acquirer := &fakeAcquirer{results: []acquireResult{{1, vk.Success}, {0, vk.Success}}}
	sw, err := NewSwapchainWindow(fd, acquirer, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), sw.ImageCount())
	assert.Equal(t, 4, fd.semaphores)
	assert.Equal(t, 3, fd.fences)

	spare := sw.spare
	previous := sw.Frame(1).ImageAvailableSemaphore

	assert.Equal(t, uint32(1), sw.NextImageIndex())
	assert.Equal(t, spare.Handle, acquirer.semaphores[0])
	assert.Same(t, spare, sw.Frame(1).ImageAvailableSemaphore)
	assert.Same(t, previous, sw.spare)

	assert.Equal(t, uint32(0), sw.NextImageIndex())
	assert.Equal(t, previous.Handle, acquirer.semaphores[1])
	assert.Same(t, previous, sw.Frame(0).ImageAvailableSemaphore)
	assert.False(t, sw.NeedsRecreate())

	require.NoError(t, sw.Destroy())
	assert.Equal(t, 4, fd.destroyedSemaphores)
}

func TestSwapchainWindowAcquireFailures(t *testing.T) {
	fd := newFakeDevice()
	acquirer := &fakeAcquirer{results: []acquireResult{
		{2, vk.Success},
		{0, vk.ErrorOutOfDate},
		{7, vk.Success},
		{1, vk.Suboptimal},
	}}
	sw, err := NewSwapchainWindow(fd, acquirer, 3, nil)
	require.NoError(t, err)
	defer sw.Destroy()

	require.Equal(t, uint32(2), sw.NextImageIndex())
	require.NotNil(t, sw.Frame(2))

	assert.Equal(t, uint32(2), sw.NextImageIndex())
	assert.Nil(t, sw.Frame(2))
	assert.True(t, sw.NeedsRecreate())

	assert.Equal(t, uint32(2), sw.NextImageIndex())
	assert.Nil(t, sw.Frame(2))

	// suboptimal images are still usable
	assert.Equal(t, uint32(1), sw.NextImageIndex())
	assert.NotNil(t, sw.Frame(1))
}

func TestSwapchainWindowDrivesSubmission(t *testing.T) {
	fd := newFakeDevice()
	acquirer := &fakeAcquirer{results: []acquireResult{{0, vk.Success}, {1, vk.Success}, {0, vk.Success}}}
	sw, err := NewSwapchainWindow(fd, acquirer, 2, nil)
	require.NoError(t, err)
	task := newTestTask(t, fd, nil)
	task.AddWindow(sw)
	task.AddCommandGraph(newFakeGraph(t, fd, 1))

	for i := uint64(0); i < 3; i++ {
		require.NoError(t, task.Submit(metadata.FrameStamp{FrameCount: i}))
	}

	require.Equal(t, 3, fd.submitCount())
	assert.Equal(t, sw.frames[0].CommandsCompletedFence.Handle, fd.submitFences[0])
	assert.Equal(t, sw.frames[1].CommandsCompletedFence.Handle, fd.submitFences[1])
	assert.Equal(t, sw.frames[0].CommandsCompletedFence.Handle, fd.submitFences[2])
	// only the third frame reused a slot whose fence was in flight
	assert.Equal(t, 1, fd.waitCount())
	for i := range fd.submits {
		assert.Equal(t, []vk.Semaphore{acquirer.semaphores[i]}, fd.submits[i].WaitSemaphores)
	}

	require.NoError(t, sw.Destroy())
	assert.Equal(t, 3, fd.waitCount())
}
