package metadata

/** @brief Pixel layouts an image can be uploaded in. */
type ImageFormat uint32

const (
	ImageFormatUndefined ImageFormat = iota
	ImageFormatR8Unorm
	ImageFormatR8G8B8A8Unorm
	ImageFormatR8G8B8A8Srgb
	ImageFormatR32G32B32A32Sfloat
)

// BytesPerPixel returns 0 for ImageFormatUndefined.
func (f ImageFormat) BytesPerPixel() uint32 {
	switch f {
	case ImageFormatR8Unorm:
		return 1
	case ImageFormatR8G8B8A8Unorm, ImageFormatR8G8B8A8Srgb:
		return 4
	case ImageFormatR32G32B32A32Sfloat:
		return 16
	}
	return 0
}

/**
 * @brief CPU-side pixels backing a texture descriptor.
 */
type ImageData struct {
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The layout of each pixel. */
	Format ImageFormat
	/** @brief The pixel data of the image, tightly packed rows. */
	Pixels []uint8
}

// Valid reports whether the pixel buffer matches the declared size and format.
func (img *ImageData) Valid() bool {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return false
	}
	bpp := img.Format.BytesPerPixel()
	return bpp != 0 && uint64(len(img.Pixels)) == uint64(img.Width)*uint64(img.Height)*uint64(bpp)
}

// Size is the number of bytes to upload.
func (img *ImageData) Size() uint64 {
	return uint64(len(img.Pixels))
}

// NewCheckerboardImage builds a blue/white checkerboard, the stand-in used while
// real texture data is still streaming in.
func NewCheckerboardImage(dimension uint32) *ImageData {
	channels := uint32(4)
	pixels := make([]uint8, dimension*dimension*channels)
	for i := range pixels {
		pixels[i] = 255
	}

	for row := uint32(0); row < dimension; row++ {
		for col := uint32(0); col < dimension; col++ {
			index := (row * dimension) + col
			index_bpp := index * channels
			if (row%2 != 0) == (col%2 != 0) {
				pixels[index_bpp+0] = 0
				pixels[index_bpp+1] = 0
			}
		}
	}

	return &ImageData{
		Width:  dimension,
		Height: dimension,
		Format: ImageFormatR8G8B8A8Unorm,
		Pixels: pixels,
	}
}
