package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

// twoRows is red on top, blue at the bottom.
func twoRows() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		img.SetNRGBA(x, 0, color.NRGBA{R: 255, A: 255})
		img.SetNRGBA(x, 1, color.NRGBA{B: 255, A: 255})
	}
	return img
}

func writeImage(t *testing.T, name string, encode func(f *os.File) error) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, encode(f))
	require.NoError(t, f.Close())
	return path
}

func TestLoadPNG(t *testing.T) {
	path := writeImage(t, "rows.png", func(f *os.File) error { return png.Encode(f, twoRows()) })

	il := &ImageLoader{}
	data, err := il.Load(path)
	require.NoError(t, err)

	assert.True(t, data.Valid())
	assert.Equal(t, uint32(2), data.Width)
	assert.Equal(t, uint32(2), data.Height)
	assert.Equal(t, metadata.ImageFormatR8G8B8A8Unorm, data.Format)
	assert.Equal(t, []uint8{255, 0, 0, 255}, data.Pixels[0:4])
	assert.Equal(t, []uint8{0, 0, 255, 255}, data.Pixels[8:12])
}

func TestLoadBMPFlipped(t *testing.T) {
	path := writeImage(t, "rows.bmp", func(f *os.File) error { return bmp.Encode(f, twoRows()) })

	il := &ImageLoader{FlipY: true, SRGB: true}
	data, err := il.Load(path)
	require.NoError(t, err)

	assert.Equal(t, metadata.ImageFormatR8G8B8A8Srgb, data.Format)
	assert.Equal(t, []uint8{0, 0, 255, 255}, data.Pixels[0:4])
	assert.Equal(t, []uint8{255, 0, 0, 255}, data.Pixels[8:12])
}

func TestConvertScalesDown(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 64, 16))
	for i := range src.Pix {
		src.Pix[i] = 200
	}

	data := (&ImageLoader{MaxExtent: 16}).Convert(src)
	assert.Equal(t, uint32(16), data.Width)
	assert.Equal(t, uint32(4), data.Height)
	assert.True(t, data.Valid())

	same := (&ImageLoader{MaxExtent: 128}).Convert(src)
	assert.Equal(t, uint32(64), same.Width)
}

func TestLoadErrors(t *testing.T) {
	il := &ImageLoader{}
	_, err := il.Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err = il.Load(path)
	assert.ErrorIs(t, err, image.ErrFormat)
}
