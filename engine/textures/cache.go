// Package textures decodes image files into device textures and shares
// them by absolute path, so materials referencing the same file end up
// sampling one texture.
package textures

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/rhi"
)

// checkerboardKey is the cache key of the generated fallback texture.
const checkerboardKey = "<checkerboard>"

// Cache loads textures for one device. Safe for concurrent use.
type Cache struct {
	device rhi.Device

	mutex  sync.Mutex
	loaded map[string]rhi.Texture
}

func NewCache(device rhi.Device) *Cache {
	return &Cache{
		device: device,
		loaded: make(map[string]rhi.Texture),
	}
}

// LoadTextureFromFile decodes the image at path and uploads it through
// commandList, which must be open; the caller closes and executes it.
// Loading the same file again returns the already created texture.
func (c *Cache) LoadTextureFromFile(path string, commandList rhi.CommandList) (rhi.Texture, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if texture, ok := c.loaded[key]; ok {
		return texture, nil
	}

	file, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open texture %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		err = fmt.Errorf("failed to decode texture %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}

	texture, err := c.createTexture(toRGBA(img), filepath.Base(path), commandList)
	if err != nil {
		return nil, err
	}
	c.loaded[key] = texture

	desc := texture.Desc()
	core.LogDebug("texture %s loaded (%s, %dx%d)", path, format, desc.Width, desc.Height)
	return texture, nil
}

// Checkerboard returns a generated checker pattern, shared by
// everything that renders without a texture file.
func (c *Cache) Checkerboard(commandList rhi.CommandList) (rhi.Texture, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if texture, ok := c.loaded[checkerboardKey]; ok {
		return texture, nil
	}

	texture, err := c.createTexture(checkerboardImage(), "Checkerboard", commandList)
	if err != nil {
		return nil, err
	}
	c.loaded[checkerboardKey] = texture
	return texture, nil
}

// createTexture turns RGBA pixels into an immutable sampled texture.
// The upload stages through commandList and the texture rests in the
// shader resource state permanently.
func (c *Cache) createTexture(rgba *image.RGBA, debugName string, commandList rhi.CommandList) (rhi.Texture, error) {
	bounds := rgba.Bounds()
	texture, err := c.device.NewTexture(rhi.TextureDesc{
		Width:        uint32(bounds.Dx()),
		Height:       uint32(bounds.Dy()),
		MipLevels:    1,
		SampleCount:  1,
		Format:       rhi.FormatSRGBA8Unorm,
		DebugName:    debugName,
		InitialState: rhi.StateUndefined,
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	commandList.BeginTrackingTextureState(texture, rhi.StateUndefined)
	if err := commandList.WriteTexture(texture, 0, rgba.Pix, uint32(rgba.Stride)); err != nil {
		texture.Destroy()
		core.LogError(err.Error())
		return nil, err
	}
	commandList.SetPermanentTextureState(texture, rhi.StateShaderResource)

	return texture, nil
}

// LoadedTextureCount reports how many textures the cache holds.
func (c *Cache) LoadedTextureCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.loaded)
}

// Destroy releases every cached texture.
func (c *Cache) Destroy() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key, texture := range c.loaded {
		texture.Destroy()
		delete(c.loaded, key)
	}
}

// toRGBA repacks any decoded image into tightly strided RGBA8.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == rgba.Bounds().Dx()*4 {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// checkerboardImage builds the 64x64 fallback pattern with 8 pixel
// cells in two grays.
func checkerboardImage() *image.RGBA {
	const size, cell = 64, 8

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			shade := uint8(230)
			if (x/cell+y/cell)%2 == 1 {
				shade = 110
			}
			offset := rgba.PixOffset(x, y)
			rgba.Pix[offset+0] = shade
			rgba.Pix[offset+1] = shade
			rgba.Pix[offset+2] = shade
			rgba.Pix[offset+3] = 255
		}
	}
	return rgba
}
