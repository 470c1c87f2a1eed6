package render

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"
)

// ImageSource resolves an opaque content handle to a decoded image. The sync
// core never interprets handles itself; the host application decides what
// they mean.
type ImageSource interface {
	Resolve(src string) (image.Image, error)
}

// ImageCache decodes each handle once and serves the cached bitmap on every
// replay after that. Failures are not cached: a handle that could not be
// resolved is retried on the next reference, so a stroke with a bad handle
// stays a valid ledger entry that may render later.
type ImageCache struct {
	mu     sync.Mutex
	src    ImageSource
	images map[string]image.Image
}

func NewImageCache(src ImageSource) *ImageCache {
	return &ImageCache{src: src, images: make(map[string]image.Image)}
}

// Get returns the decoded image for the handle, resolving it on first use.
func (c *ImageCache) Get(src string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if img, ok := c.images[src]; ok {
		return img, true
	}
	if c.src == nil {
		return nil, false
	}
	img, err := c.src.Resolve(src)
	if err != nil || img == nil {
		return nil, false
	}
	c.images[src] = img
	return img, true
}

// DirSource resolves handles as file names under a root directory.
type DirSource struct {
	Root string
}

func (d DirSource) Resolve(src string) (image.Image, error) {
	name := filepath.Base(src) // keep handles from escaping the root
	f, err := os.Open(filepath.Join(d.Root, name))
	if err != nil {
		return nil, fmt.Errorf("open image %q: %w", src, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %q: %w", src, err)
	}
	return img, nil
}
