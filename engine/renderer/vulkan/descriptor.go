package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

/** @brief The resource kinds a descriptor can bind. */
type DescriptorKind int

const (
	DescriptorKindUniformBuffer DescriptorKind = iota
	DescriptorKindStorageBuffer
	DescriptorKindCombinedImageSampler
)

var descriptorKindNames = map[DescriptorKind]string{
	DescriptorKindUniformBuffer:        "uniform_buffer",
	DescriptorKindStorageBuffer:        "storage_buffer",
	DescriptorKindCombinedImageSampler: "combined_image_sampler",
}

func (k DescriptorKind) String() string {
	if name, ok := descriptorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("DescriptorKind(%d)", int(k))
}

func (k DescriptorKind) MarshalText() ([]byte, error) {
	name, ok := descriptorKindNames[k]
	if !ok {
		return nil, fmt.Errorf("%w: %d", core.ErrUnknownDescriptorKind, int(k))
	}
	return []byte(name), nil
}

func (k *DescriptorKind) UnmarshalText(text []byte) error {
	for kind, name := range descriptorKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: %q", core.ErrUnknownDescriptorKind, string(text))
}

func (k DescriptorKind) VulkanType() vk.DescriptorType {
	switch k {
	case DescriptorKindStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case DescriptorKindCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	}
	return vk.DescriptorTypeUniformBuffer
}

func (k DescriptorKind) bufferUsage() vk.BufferUsageFlagBits {
	if k == DescriptorKindStorageBuffer {
		return vk.BufferUsageStorageBufferBit
	}
	return vk.BufferUsageUniformBufferBit
}

/**
 * @brief Where a descriptor is bound: slot, first array element and kind.
 */
type DescriptorBinding struct {
	Binding      uint32         `toml:"binding"`
	ArrayElement uint32         `toml:"array_element"`
	Kind         DescriptorKind `toml:"kind"`
}

func (b DescriptorBinding) assignTo(wds *vk.WriteDescriptorSet, set vk.DescriptorSet, count uint32) {
	wds.SType = vk.StructureTypeWriteDescriptorSet
	wds.DstSet = set
	wds.DstBinding = b.Binding
	wds.DstArrayElement = b.ArrayElement
	wds.DescriptorCount = count
	wds.DescriptorType = b.Kind.VulkanType()
}

/**
 * @brief A GPU resource bound through a descriptor set. The set of
 * implementations is closed: DescriptorBuffer, Texture and TextureArray.
 */
type Descriptor interface {
	Binding() DescriptorBinding
	// Compile allocates and uploads the GPU side. It is a no-op once compiled.
	Compile(ctx *Context) error
	IsCompiled() bool
	// AssignTo fills wds for set. It returns false while not compiled.
	AssignTo(wds *vk.WriteDescriptorSet, set vk.DescriptorSet) bool
	NumDescriptors() uint32
	// Release destroys the GPU objects; the descriptor can be compiled again.
	Release()

	descriptor()
}

/**
 * @brief Writes every compiled descriptor into set with one device call.
 * Uncompiled descriptors are skipped. Returns the number of writes issued.
 */
func WriteDescriptorSets(device Device, set vk.DescriptorSet, descriptors ...Descriptor) int {
	writes := make([]vk.WriteDescriptorSet, 0, len(descriptors))
	for _, d := range descriptors {
		var wds vk.WriteDescriptorSet
		if !d.AssignTo(&wds, set) {
			core.LogWarn("skipping descriptor at binding %d: not compiled", d.Binding().Binding)
			continue
		}
		writes = append(writes, wds)
	}
	device.UpdateDescriptorSets(writes)
	return len(writes)
}
