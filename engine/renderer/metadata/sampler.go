package metadata

/** @brief Represents supported texture filtering modes. */
type TextureFilter uint32

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = 0x1
)

/** @brief How texture coordinates outside [0,1] are resolved. */
type TextureRepeat uint32

const (
	TextureRepeatRepeat            TextureRepeat = 0x1
	TextureRepeatMirroredRepeat    TextureRepeat = 0x2
	TextureRepeatClampToEdge       TextureRepeat = 0x3
	TextureRepeatClampToBorder     TextureRepeat = 0x4
	TextureRepeatMirrorClampToEdge TextureRepeat = 0x5
)

/** @brief Filtering between mip levels. */
type MipmapMode uint32

const (
	MipmapModeNearest MipmapMode = 0x0
	MipmapModeLinear  MipmapMode = 0x1
)

/** @brief Color returned when sampling outside a clamp-to-border texture. */
type BorderColor uint32

const (
	BorderColorTransparentBlack BorderColor = 0x0
	BorderColorOpaqueBlack      BorderColor = 0x1
	BorderColorOpaqueWhite      BorderColor = 0x2
)

/** @brief Comparison used by depth-compare samplers. */
type CompareOp uint32

const (
	CompareOpNever CompareOp = iota
	CompareOpLess
	CompareOpEqual
	CompareOpLessOrEqual
	CompareOpGreater
	CompareOpNotEqual
	CompareOpGreaterOrEqual
	CompareOpAlways
)

/**
 * @brief The full set of sampling parameters of a texture. It is a plain value:
 * copies are independent and it is written as-is when a texture is serialized.
 */
type SamplerConfig struct {
	Flags                   uint32        `toml:"flags"`
	MinFilter               TextureFilter `toml:"min_filter"`
	MagFilter               TextureFilter `toml:"mag_filter"`
	MipmapMode              MipmapMode    `toml:"mipmap_mode"`
	AddressModeU            TextureRepeat `toml:"address_mode_u"`
	AddressModeV            TextureRepeat `toml:"address_mode_v"`
	AddressModeW            TextureRepeat `toml:"address_mode_w"`
	MipLodBias              float32       `toml:"mip_lod_bias"`
	AnisotropyEnable        bool          `toml:"anisotropy_enable"`
	MaxAnisotropy           float32       `toml:"max_anisotropy"`
	CompareEnable           bool          `toml:"compare_enable"`
	CompareOp               CompareOp     `toml:"compare_op"`
	MinLod                  float32       `toml:"min_lod"`
	MaxLod                  float32       `toml:"max_lod"`
	BorderColor             BorderColor   `toml:"border_color"`
	UnnormalizedCoordinates bool          `toml:"unnormalized_coordinates"`
}

// DefaultSamplerConfig is linear filtering, repeat addressing and 16x anisotropy.
// Anisotropy requires the device feature samplerAnisotropy.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		MinFilter:        TextureFilterModeLinear,
		MagFilter:        TextureFilterModeLinear,
		MipmapMode:       MipmapModeLinear,
		AddressModeU:     TextureRepeatRepeat,
		AddressModeV:     TextureRepeatRepeat,
		AddressModeW:     TextureRepeatRepeat,
		AnisotropyEnable: true,
		MaxAnisotropy:    16,
		BorderColor:      BorderColorOpaqueBlack,
	}
}
