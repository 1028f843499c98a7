package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextFrameStamp(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := NextFrameStamp(nil, start)
	assert.Equal(t, uint64(0), first.FrameCount)
	assert.Zero(t, first.SimulationTime)

	second := NextFrameStamp(first, start.Add(16*time.Millisecond))
	third := NextFrameStamp(second, start.Add(33*time.Millisecond))
	assert.Equal(t, uint64(2), third.FrameCount)
	assert.Equal(t, 33*time.Millisecond, third.SimulationTime)
}

func TestDataWrites(t *testing.T) {
	source := []byte{1, 2, 3, 4}
	d := NewData(source)
	source[0] = 9
	assert.Equal(t, []byte{1, 2, 3, 4}, d.Bytes())
	assert.Equal(t, uint64(0), d.ModifiedCount())

	assert.Equal(t, 2, d.WriteAt(2, []byte{7, 7, 7}))
	assert.Equal(t, []byte{1, 2, 7, 7}, d.Bytes())
	assert.Equal(t, 0, d.WriteAt(4, []byte{1}))
	assert.Equal(t, uint64(1), d.ModifiedCount())

	d.Set([]byte{5, 6})
	assert.Equal(t, uint64(2), d.Size())
	assert.Equal(t, uint64(2), d.ModifiedCount())
}

func TestImageDataValid(t *testing.T) {
	checker := NewCheckerboardImage(4)
	require.True(t, checker.Valid())
	assert.Equal(t, uint64(64), checker.Size())
	assert.Equal(t, []uint8{0, 0, 255, 255}, checker.Pixels[0:4])
	assert.Equal(t, []uint8{255, 255, 255, 255}, checker.Pixels[4:8])

	var missing *ImageData
	assert.False(t, missing.Valid())
	assert.False(t, (&ImageData{Width: 2, Height: 2, Format: ImageFormatR8Unorm, Pixels: make([]uint8, 3)}).Valid())
	assert.False(t, (&ImageData{Width: 1, Height: 1, Pixels: make([]uint8, 1)}).Valid())
	assert.Equal(t, uint32(16), ImageFormatR32G32B32A32Sfloat.BytesPerPixel())
}

func TestDefaultSamplerConfig(t *testing.T) {
	config := DefaultSamplerConfig()
	assert.Equal(t, TextureFilterModeLinear, config.MinFilter)
	assert.True(t, config.AnisotropyEnable)

	copied := config
	copied.MaxAnisotropy = 1
	assert.Equal(t, float32(16), config.MaxAnisotropy)
}

func TestJobDescriptionStrings(t *testing.T) {
	assert.Equal(t, "record", JOB_TYPE_RECORD.String())
	assert.Equal(t, "general", JOB_TYPE_GENERAL.String())
	assert.Equal(t, "unknown", JobType(1).String())
	assert.Equal(t, "normal", JOB_PRIORITY_NORMAL.String())
	assert.Equal(t, "unknown", JobPriority(9).String())
}
