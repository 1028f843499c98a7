package assets

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

/**
 * @brief Decodes PNG, JPEG, BMP and TIFF files into tightly packed RGBA8
 * pixels ready for a texture descriptor.
 */
type ImageLoader struct {
	/** @brief Store the rows bottom up. */
	FlipY bool
	/** @brief The pixels are sRGB encoded. */
	SRGB bool
	/** @brief Images wider or taller than this are scaled down, keeping the aspect ratio. 0 disables it. */
	MaxExtent int
}

func (il *ImageLoader) Load(path string) (*metadata.ImageData, error) {
	file, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open image %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		err = fmt.Errorf("failed to decode image %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	core.LogDebug("decoded %s image %s (%dx%d)", format, path, img.Bounds().Dx(), img.Bounds().Dy())

	return il.Convert(img), nil
}

func (il *ImageLoader) extent(bounds image.Rectangle) (int, int) {
	width, height := bounds.Dx(), bounds.Dy()
	if il.MaxExtent <= 0 || (width <= il.MaxExtent && height <= il.MaxExtent) {
		return width, height
	}
	if width >= height {
		return il.MaxExtent, max(1, height*il.MaxExtent/width)
	}
	return max(1, width*il.MaxExtent/height), il.MaxExtent
}

// Convert copies img into non premultiplied RGBA8 rows, scaling and flipping as configured.
func (il *ImageLoader) Convert(img image.Image) *metadata.ImageData {
	bounds := img.Bounds()
	width, height := il.extent(bounds)

	rgba := image.NewNRGBA(image.Rect(0, 0, width, height))
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(rgba, rgba.Bounds(), img, bounds, draw.Src, nil)
	}

	pixels := rgba.Pix
	if il.FlipY {
		stride := rgba.Stride
		pixels = make([]uint8, len(rgba.Pix))
		for y := 0; y < height; y++ {
			copy(pixels[y*stride:(y+1)*stride], rgba.Pix[(height-1-y)*stride:(height-y)*stride])
		}
	}

	format := metadata.ImageFormatR8G8B8A8Unorm
	if il.SRGB {
		format = metadata.ImageFormatR8G8B8A8Srgb
	}
	return &metadata.ImageData{
		Width:  uint32(width),
		Height: uint32(height),
		Format: format,
		Pixels: pixels,
	}
}
