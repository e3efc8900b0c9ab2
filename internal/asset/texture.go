package asset

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/emberforge/engine/internal/gfx"
)

// Decoder turns a path into tightly packed RGBA8 pixels.
type Decoder func(path string) (width, height int, pixels []byte, err error)

// DecodeImage reads a PNG or JPEG file.
func DecodeImage(path string) (int, int, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return b.Dx(), b.Dy(), rgba.Pix, nil
}

// TextureRef is one holder's share of a cached texture.
type TextureRef struct {
	Texture gfx.Texture
	path    string
	cache   *TextureCache
	once    sync.Once
}

// Release gives the share back. The texture is freed and evicted when the
// last share is released; a later Get rebuilds it.
func (r *TextureRef) Release() {
	r.once.Do(func() { r.cache.release(r.path) })
}

type textureEntry struct {
	tex  gfx.Texture
	refs int
}

// TextureCache shares textures by path. The cache never keeps a texture
// alive on its own: entries exist only while some holder has a share.
type TextureCache struct {
	mu      sync.Mutex
	dev     gfx.Device
	decode  Decoder
	entries map[string]*textureEntry
	log     *zap.Logger
}

func NewTextureCache(dev gfx.Device, decode Decoder, log *zap.Logger) *TextureCache {
	if decode == nil {
		decode = DecodeImage
	}
	return &TextureCache{
		dev:     dev,
		decode:  decode,
		entries: make(map[string]*textureEntry),
		log:     log,
	}
}

func (c *TextureCache) Get(path string) (*TextureRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok {
		e.refs++
		return &TextureRef{Texture: e.tex, path: path, cache: c}, nil
	}

	w, h, pixels, err := c.decode(path)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", path, err)
	}
	tex, err := c.dev.NewTexture(w, h, gfx.FormatRGBA8, pixels)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", path, err)
	}
	c.entries[path] = &textureEntry{tex: tex, refs: 1}
	c.log.Debug("texture loaded", zap.String("path", path), zap.Int("width", w), zap.Int("height", h))
	return &TextureRef{Texture: tex, path: path, cache: c}, nil
}

func (c *TextureCache) release(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(c.entries, path)
	e.tex.Release()
	c.log.Debug("texture evicted", zap.String("path", path))
}

// Len returns the number of live cached textures.
func (c *TextureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// LoadCubeMap builds a skybox from six square faces in +X, -X, +Y, -Y,
// +Z, -Z order. Cube maps are not cached.
func LoadCubeMap(dev gfx.Device, decode Decoder, faces [6]string) (gfx.Texture, error) {
	if decode == nil {
		decode = DecodeImage
	}
	var data [6][]byte
	size := 0
	for i, path := range faces {
		w, h, pixels, err := decode(path)
		if err != nil {
			return nil, fmt.Errorf("cube map face %d: %w", i, err)
		}
		if w != h || (size != 0 && w != size) {
			return nil, fmt.Errorf("cube map face %s is %dx%d, faces must be square and equal", path, w, h)
		}
		size = w
		data[i] = pixels
	}
	return dev.NewCubeMap(size, data)
}
