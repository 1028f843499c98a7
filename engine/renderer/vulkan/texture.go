package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// TextureEntry is one sampler and image pair.
type TextureEntry struct {
	Image   *metadata.ImageData
	Sampler metadata.SamplerConfig
}

type compiledEntry struct {
	sampler vk.Sampler
	image   *Image
}

func (ce compiledEntry) info() vk.DescriptorImageInfo {
	return vk.DescriptorImageInfo{
		Sampler:     ce.sampler,
		ImageView:   ce.image.View,
		ImageLayout: ce.image.Layout,
	}
}

func (ce compiledEntry) release(device Device) {
	device.DestroyImage(ce.image)
	device.DestroySampler(ce.sampler)
}

// compileEntry validates the image before the sampler exists, so a failed
// transfer never leaves a sampler behind.
func compileEntry(device Device, binding uint32, entry TextureEntry) (compiledEntry, error) {
	if !entry.Image.Valid() {
		err := fmt.Errorf("texture at binding %d has no usable image data: %w", binding, core.ErrImageTransfer)
		core.LogWarn(err.Error())
		return compiledEntry{}, err
	}

	info := SamplerCreateInfo(entry.Sampler, device.MaxSamplerAnisotropy())
	sampler, err := device.CreateSampler(&info)
	if err != nil {
		return compiledEntry{}, err
	}

	image, err := device.TransferImage(entry.Image)
	if err != nil {
		device.DestroySampler(sampler)
		err = fmt.Errorf("texture at binding %d: %v: %w", binding, err, core.ErrImageTransfer)
		core.LogWarn(err.Error())
		return compiledEntry{}, err
	}
	return compiledEntry{sampler: sampler, image: image}, nil
}

/**
 * @brief A combined image sampler. A failed image transfer leaves it
 * uncompiled; compile again once the image data is usable.
 */
type Texture struct {
	DescriptorBinding
	TextureEntry

	device   Device
	compiled *compiledEntry
}

func NewTexture(binding uint32, image *metadata.ImageData, sampler metadata.SamplerConfig) *Texture {
	return &Texture{
		DescriptorBinding: DescriptorBinding{Binding: binding, Kind: DescriptorKindCombinedImageSampler},
		TextureEntry:      TextureEntry{Image: image, Sampler: sampler},
	}
}

func (t *Texture) descriptor() {}

func (t *Texture) Binding() DescriptorBinding {
	return t.DescriptorBinding
}

func (t *Texture) IsCompiled() bool {
	return t.compiled != nil
}

func (t *Texture) NumDescriptors() uint32 {
	return 1
}

func (t *Texture) Compile(ctx *Context) error {
	if t.IsCompiled() {
		return nil
	}
	entry, err := compileEntry(ctx.Device, t.DescriptorBinding.Binding, t.TextureEntry)
	if err != nil {
		return err
	}
	t.device = ctx.Device
	t.compiled = &entry
	return nil
}

func (t *Texture) AssignTo(wds *vk.WriteDescriptorSet, set vk.DescriptorSet) bool {
	if !t.IsCompiled() {
		return false
	}
	t.DescriptorBinding.assignTo(wds, set, 1)
	wds.PImageInfo = []vk.DescriptorImageInfo{t.compiled.info()}
	return true
}

func (t *Texture) Release() {
	if t.compiled != nil {
		t.compiled.release(t.device)
		t.compiled = nil
	}
}

/**
 * @brief N sampler and image pairs behind one binding, written as one
 * descriptor write of N elements. Compilation is all or nothing.
 */
type TextureArray struct {
	DescriptorBinding

	Entries []TextureEntry

	device   Device
	compiled []compiledEntry
}

func NewTextureArray(binding uint32, entries ...TextureEntry) *TextureArray {
	return &TextureArray{
		DescriptorBinding: DescriptorBinding{Binding: binding, Kind: DescriptorKindCombinedImageSampler},
		Entries:           entries,
	}
}

func (ta *TextureArray) descriptor() {}

func (ta *TextureArray) Binding() DescriptorBinding {
	return ta.DescriptorBinding
}

func (ta *TextureArray) IsCompiled() bool {
	return len(ta.compiled) > 0 && len(ta.compiled) >= len(ta.Entries)
}

func (ta *TextureArray) NumDescriptors() uint32 {
	return uint32(max(len(ta.Entries), len(ta.compiled)))
}

func (ta *TextureArray) Compile(ctx *Context) error {
	if ta.IsCompiled() || len(ta.Entries) == 0 {
		return nil
	}
	ta.Release()

	compiled := make([]compiledEntry, 0, len(ta.Entries))
	for _, e := range ta.Entries {
		entry, err := compileEntry(ctx.Device, ta.DescriptorBinding.Binding, e)
		if err != nil {
			for _, c := range compiled {
				c.release(ctx.Device)
			}
			return err
		}
		compiled = append(compiled, entry)
	}
	ta.device = ctx.Device
	ta.compiled = compiled
	return nil
}

func (ta *TextureArray) AssignTo(wds *vk.WriteDescriptorSet, set vk.DescriptorSet) bool {
	if !ta.IsCompiled() {
		return false
	}
	infos := make([]vk.DescriptorImageInfo, len(ta.compiled))
	for i, c := range ta.compiled {
		infos[i] = c.info()
	}
	ta.DescriptorBinding.assignTo(wds, set, uint32(len(infos)))
	wds.PImageInfo = infos
	return true
}

func (ta *TextureArray) Release() {
	for _, c := range ta.compiled {
		c.release(ta.device)
	}
	ta.compiled = nil
}
