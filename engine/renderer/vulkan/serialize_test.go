package vulkan

import (
	"testing"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorBufferRoundTrip(t *testing.T) {
	db := NewStorageBuffer(3, metadata.NewData([]byte{1, 2, 3}), metadata.NewData([]byte{0xff}))
	db.ArrayElement = 1

	out, err := MarshalDescriptor(db)
	require.NoError(t, err)
	assert.Contains(t, string(out), "storage_buffer")

	decoded, err := UnmarshalDescriptor(out)
	require.NoError(t, err)
	got, ok := decoded.(*DescriptorBuffer)
	require.True(t, ok)
	assert.Equal(t, db.Binding(), got.Binding())
	require.Len(t, got.DataList, 2)
	assert.Equal(t, []byte{1, 2, 3}, got.DataList[0].Bytes())
	assert.Equal(t, []byte{0xff}, got.DataList[1].Bytes())
	assert.False(t, got.IsCompiled())
}

func TestTextureRoundTrip(t *testing.T) {
	sampler := metadata.DefaultSamplerConfig()
	sampler.AddressModeU = metadata.TextureRepeatClampToBorder
	sampler.BorderColor = metadata.BorderColorOpaqueWhite
	sampler.MipLodBias = 0.25
	sampler.MaxLod = 8
	sampler.CompareEnable = true
	sampler.CompareOp = metadata.CompareOpLessOrEqual
	tex := NewTexture(5, metadata.NewCheckerboardImage(2), sampler)

	out, err := MarshalDescriptor(tex)
	require.NoError(t, err)
	decoded, err := UnmarshalDescriptor(out)
	require.NoError(t, err)

	got, ok := decoded.(*Texture)
	require.True(t, ok)
	assert.Equal(t, tex.Binding(), got.Binding())
	assert.Equal(t, sampler, got.Sampler)
	assert.Equal(t, tex.Image, got.Image)
	assert.False(t, got.IsCompiled())
}

func TestTextureArrayRoundTrip(t *testing.T) {
	nearest := metadata.DefaultSamplerConfig()
	nearest.MinFilter = metadata.TextureFilterModeNearest
	nearest.MagFilter = metadata.TextureFilterModeNearest
	ta := NewTextureArray(6,
		TextureEntry{Image: metadata.NewCheckerboardImage(2), Sampler: metadata.DefaultSamplerConfig()},
		TextureEntry{Image: nil, Sampler: nearest},
	)

	out, err := MarshalDescriptor(ta)
	require.NoError(t, err)
	decoded, err := UnmarshalDescriptor(out)
	require.NoError(t, err)

	got, ok := decoded.(*TextureArray)
	require.True(t, ok)
	assert.Equal(t, ta.Binding(), got.Binding())
	require.Len(t, got.Entries, 2)
	assert.Equal(t, ta.Entries[0], got.Entries[0])
	assert.Nil(t, got.Entries[1].Image)
	assert.Equal(t, nearest, got.Entries[1].Sampler)
}

func TestUnmarshalDescriptorErrors(t *testing.T) {
	_, err := UnmarshalDescriptor([]byte("type = 'mesh'\nbinding = 1\n"))
	assert.ErrorIs(t, err, core.ErrUnknownDescriptorKind)

	_, err = UnmarshalDescriptor([]byte("type = 'buffer'\nkind = 'acceleration_structure'\n"))
	assert.Error(t, err)

	_, err = UnmarshalDescriptor([]byte("type = 'buffer'\ndata = ['not base64!']\n"))
	assert.Error(t, err)

	_, err = UnmarshalDescriptor([]byte("type = 'texture'\n"))
	assert.Error(t, err)
}
