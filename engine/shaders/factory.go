// Package shaders loads compiled shader bytecode from disk and turns
// it into device shader objects. Results are cached per file and entry
// point, and a directory watcher drops cache entries when their source
// changes on disk, so the next request picks up the new bytecode.
package shaders

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/rhi"
)

// shaderExtension maps a backend to the bytecode form it consumes.
func shaderExtension(api rhi.GraphicsAPI) string {
	switch api {
	case rhi.GraphicsAPIVulkan:
		return ".spv"
	case rhi.GraphicsAPIWebGPU:
		return ".wgsl"
	}
	return ".null"
}

type cacheEntry struct {
	shader rhi.Shader
	path   string
}

// shaderFileName maps a shader name and entry point to its file. A
// SPIR-V module holds a single entry point, so vulkan files carry the
// entry suffix; a WGSL module holds every entry point of its file.
func (f *Factory) shaderFileName(name, entryName string) string {
	if f.api == rhi.GraphicsAPIVulkan {
		return name + "_" + entryName + shaderExtension(f.api)
	}
	return name + shaderExtension(f.api)
}

// Factory creates shaders for one device from the bytecode directory
// of its backend, basePath/<api>. Safe for concurrent use.
type Factory struct {
	device   rhi.Device
	api      rhi.GraphicsAPI
	basePath string

	mutex sync.RWMutex
	cache map[string]cacheEntry

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFactory opens a factory over basePath and starts watching the
// backend's bytecode directory for changes.
func NewFactory(device rhi.Device, api rhi.GraphicsAPI, basePath string) (*Factory, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	f := &Factory{
		device:   device,
		api:      api,
		basePath: filepath.Join(basePath, api.String()),
		cache:    make(map[string]cacheEntry),
		watcher:  watcher,
		done:     make(chan struct{}),
	}
	go f.watch()

	if err := watcher.Add(f.basePath); err != nil {
		// Headless runs can work without a bytecode directory; they
		// just never see reloads.
		core.LogDebug("shader directory %s is not watchable: %s", f.basePath, err)
	}
	return f, nil
}

// CreateShader returns the shader for the named bytecode file and
// entry point, loading it on the first request and from the cache
// afterwards.
func (f *Factory) CreateShader(name, entryName string, stage rhi.ShaderType) (rhi.Shader, error) {
	key := name + ":" + entryName

	f.mutex.RLock()
	entry, ok := f.cache[key]
	f.mutex.RUnlock()
	if ok {
		return entry.shader, nil
	}

	path := filepath.Join(f.basePath, f.shaderFileName(name, entryName))
	bytecode, err := os.ReadFile(path)
	if err != nil {
		if f.api == rhi.GraphicsAPINull && os.IsNotExist(err) {
			// The null device executes nothing, so headless runs get
			// by without bytecode on disk.
			bytecode = nil
		} else {
			err = fmt.Errorf("failed to read shader %s: %w", path, err)
			core.LogError(err.Error())
			return nil, err
		}
	}

	// glslc emits a single "main" entry per SPIR-V module; the logical
	// entry name already selected the file above.
	entryPoint := entryName
	if f.api == rhi.GraphicsAPIVulkan {
		entryPoint = "main"
	}
	shader, err := f.device.NewShader(rhi.ShaderDesc{
		Type:       stage,
		EntryPoint: entryPoint,
		DebugName:  name,
	}, bytecode)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	f.mutex.Lock()
	f.cache[key] = cacheEntry{shader: shader, path: path}
	f.mutex.Unlock()

	core.LogDebug("shader %s:%s loaded from %s", name, entryName, path)
	return shader, nil
}

func (f *Factory) watch() {
	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				f.invalidate(event.Name)
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher failed: %s", err)
		case <-f.done:
			return
		}
	}
}

// invalidate drops every cached shader built from the changed file.
func (f *Factory) invalidate(path string) {
	changed := filepath.Clean(path)

	f.mutex.Lock()
	defer f.mutex.Unlock()
	for key, entry := range f.cache {
		if entry.path == changed {
			delete(f.cache, key)
			core.LogInfo("shader %s changed on disk, dropping the cached copy", filepath.Base(changed))
		}
	}
}

// CachedShaderCount reports how many shaders the cache currently holds.
func (f *Factory) CachedShaderCount() int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return len(f.cache)
}

// Close stops the directory watcher. Shaders stay alive, the device
// owns them. Close the factory only once.
func (f *Factory) Close() error {
	close(f.done)
	return f.watcher.Close()
}
