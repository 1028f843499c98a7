package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func vulkanBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

func vulkanFilter(filter metadata.TextureFilter) vk.Filter {
	if filter == metadata.TextureFilterModeNearest {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func vulkanMipmapMode(mode metadata.MipmapMode) vk.SamplerMipmapMode {
	if mode == metadata.MipmapModeNearest {
		return vk.SamplerMipmapModeNearest
	}
	return vk.SamplerMipmapModeLinear
}

func vulkanAddressMode(repeat metadata.TextureRepeat) vk.SamplerAddressMode {
	switch repeat {
	case metadata.TextureRepeatMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	case metadata.TextureRepeatClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case metadata.TextureRepeatClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	case metadata.TextureRepeatMirrorClampToEdge:
		return vk.SamplerAddressModeMirrorClampToEdge
	}
	return vk.SamplerAddressModeRepeat
}

func vulkanBorderColor(color metadata.BorderColor) vk.BorderColor {
	switch color {
	case metadata.BorderColorTransparentBlack:
		return vk.BorderColorFloatTransparentBlack
	case metadata.BorderColorOpaqueWhite:
		return vk.BorderColorFloatOpaqueWhite
	}
	return vk.BorderColorFloatOpaqueBlack
}

// SamplerCreateInfo translates config, capping anisotropy at what the device supports.
func SamplerCreateInfo(config metadata.SamplerConfig, maxDeviceAnisotropy float32) vk.SamplerCreateInfo {
	anisotropy := config.MaxAnisotropy
	if config.AnisotropyEnable {
		anisotropy = math.Clamp(anisotropy, 1, max(maxDeviceAnisotropy, 1))
	}
	return vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		Flags:                   vk.SamplerCreateFlags(config.Flags),
		MagFilter:               vulkanFilter(config.MagFilter),
		MinFilter:               vulkanFilter(config.MinFilter),
		MipmapMode:              vulkanMipmapMode(config.MipmapMode),
		AddressModeU:            vulkanAddressMode(config.AddressModeU),
		AddressModeV:            vulkanAddressMode(config.AddressModeV),
		AddressModeW:            vulkanAddressMode(config.AddressModeW),
		MipLodBias:              config.MipLodBias,
		AnisotropyEnable:        vulkanBool(config.AnisotropyEnable),
		MaxAnisotropy:           anisotropy,
		CompareEnable:           vulkanBool(config.CompareEnable),
		CompareOp:               vk.CompareOp(config.CompareOp),
		MinLod:                  config.MinLod,
		MaxLod:                  config.MaxLod,
		BorderColor:             vulkanBorderColor(config.BorderColor),
		UnnormalizedCoordinates: vulkanBool(config.UnnormalizedCoordinates),
	}
}
