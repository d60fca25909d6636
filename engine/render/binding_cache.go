package render

import (
	"sync"

	"github.com/torus-gfx/torus/engine/rhi"
)

type bindingKey struct {
	layout  rhi.BindingLayout
	buffer  rhi.Buffer
	texture rhi.Texture
	sampler rhi.Sampler
}

// BindingCache reuses binding sets across frames. Sets are keyed by
// layout and by the resources bound, so a per-frame blit of the same
// texture resolves to one set instead of growing the descriptor pool
// every frame.
type BindingCache struct {
	device rhi.Device

	mutex sync.Mutex
	sets  map[bindingKey]rhi.BindingSet
}

func NewBindingCache(device rhi.Device) *BindingCache {
	return &BindingCache{
		device: device,
		sets:   make(map[bindingKey]rhi.BindingSet),
	}
}

// GetOrCreateBindingSet returns the cached set for desc under layout,
// creating it on the first request.
func (c *BindingCache) GetOrCreateBindingSet(desc rhi.BindingSetDesc, layout rhi.BindingLayout) (rhi.BindingSet, error) {
	key := bindingKey{layout: layout}
	for _, item := range desc.Bindings {
		if key.buffer == nil && item.Buffer != nil {
			key.buffer = item.Buffer
		}
		if key.texture == nil && item.Texture != nil {
			key.texture = item.Texture
		}
		if key.sampler == nil && item.Sampler != nil {
			key.sampler = item.Sampler
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if set, ok := c.sets[key]; ok {
		return set, nil
	}
	set, err := c.device.NewBindingSet(desc, layout)
	if err != nil {
		return nil, err
	}
	c.sets[key] = set
	return set, nil
}

// Clear destroys every cached set. Call it when the textures the sets
// reference are about to be released.
func (c *BindingCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key, set := range c.sets {
		set.Destroy()
		delete(c.sets, key)
	}
}
