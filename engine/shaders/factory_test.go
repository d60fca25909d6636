package shaders

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torus-gfx/torus/engine/rhi"
	"github.com/torus-gfx/torus/engine/rhi/null"
)

func newTestFactory(t *testing.T, api rhi.GraphicsAPI) (*Factory, string) {
	t.Helper()
	basePath := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(basePath, api.String()), 0o755))

	factory, err := NewFactory(null.NewDevice(), api, basePath)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, factory.Close())
	})
	return factory, basePath
}

func TestCreateShaderCachesPerEntryPoint(t *testing.T) {
	factory, _ := newTestFactory(t, rhi.GraphicsAPINull)

	vs, err := factory.CreateShader("basic_triangle", "main_vs", rhi.ShaderTypeVertex)
	require.NoError(t, err)
	require.NotNil(t, vs)
	assert.Equal(t, 1, factory.CachedShaderCount())

	// The same request comes straight out of the cache.
	again, err := factory.CreateShader("basic_triangle", "main_vs", rhi.ShaderTypeVertex)
	require.NoError(t, err)
	assert.Same(t, vs, again)
	assert.Equal(t, 1, factory.CachedShaderCount())

	ps, err := factory.CreateShader("basic_triangle", "main_ps", rhi.ShaderTypePixel)
	require.NoError(t, err)
	assert.NotSame(t, vs, ps)
	assert.Equal(t, 2, factory.CachedShaderCount())
}

func TestVulkanShadersLoadPerEntryFiles(t *testing.T) {
	factory, basePath := newTestFactory(t, rhi.GraphicsAPIVulkan)

	bytecode := []byte{0x03, 0x02, 0x23, 0x07}
	require.NoError(t, os.WriteFile(filepath.Join(basePath, "vulkan", "demo_main_vs.spv"), bytecode, 0o644))

	shader, err := factory.CreateShader("demo", "main_vs", rhi.ShaderTypeVertex)
	require.NoError(t, err)

	nullShader := shader.(*null.Shader)
	assert.Equal(t, bytecode, nullShader.Bytecode)
	// SPIR-V modules compiled by glslc expose a single "main" symbol no
	// matter which logical entry point selected the file.
	assert.Equal(t, "main", shader.Desc().EntryPoint)
	assert.Equal(t, rhi.ShaderTypeVertex, shader.Desc().Type)
	assert.Equal(t, "demo", shader.Desc().DebugName)
}

func TestWebGPUShadersShareOneModuleFile(t *testing.T) {
	factory, basePath := newTestFactory(t, rhi.GraphicsAPIWebGPU)

	source := []byte("@vertex fn main_vs() {}\n@fragment fn main_ps() {}\n")
	require.NoError(t, os.WriteFile(filepath.Join(basePath, "webgpu", "demo.wgsl"), source, 0o644))

	vs, err := factory.CreateShader("demo", "main_vs", rhi.ShaderTypeVertex)
	require.NoError(t, err)
	ps, err := factory.CreateShader("demo", "main_ps", rhi.ShaderTypePixel)
	require.NoError(t, err)

	// Both entry points read the same file but keep their own names.
	assert.Equal(t, source, vs.(*null.Shader).Bytecode)
	assert.Equal(t, source, ps.(*null.Shader).Bytecode)
	assert.Equal(t, "main_vs", vs.Desc().EntryPoint)
	assert.Equal(t, "main_ps", ps.Desc().EntryPoint)
	assert.Equal(t, 2, factory.CachedShaderCount())
}

func TestMissingBytecodeFails(t *testing.T) {
	factory, _ := newTestFactory(t, rhi.GraphicsAPIVulkan)

	shader, err := factory.CreateShader("missing", "main_vs", rhi.ShaderTypeVertex)
	require.Error(t, err)
	assert.Nil(t, shader)
	assert.Contains(t, err.Error(), "failed to read shader")
	assert.Equal(t, 0, factory.CachedShaderCount())
}

func TestNullBackendToleratesMissingBytecode(t *testing.T) {
	factory, _ := newTestFactory(t, rhi.GraphicsAPINull)

	shader, err := factory.CreateShader("anything", "main_cs", rhi.ShaderTypeCompute)
	require.NoError(t, err)
	require.NotNil(t, shader)
	assert.Empty(t, shader.(*null.Shader).Bytecode)
	assert.Equal(t, "main_cs", shader.Desc().EntryPoint)
}

func TestWatcherDropsChangedShaders(t *testing.T) {
	factory, basePath := newTestFactory(t, rhi.GraphicsAPIVulkan)
	path := filepath.Join(basePath, "vulkan", "reload_main_ps.spv")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	first, err := factory.CreateShader("reload", "main_ps", rhi.ShaderTypePixel)
	require.NoError(t, err)
	require.Equal(t, 1, factory.CachedShaderCount())

	// Rewriting the bytecode on disk drops the cache entry...
	require.NoError(t, os.WriteFile(path, []byte{4, 5, 6}, 0o644))
	require.Eventually(t, func() bool {
		return factory.CachedShaderCount() == 0
	}, 5*time.Second, 10*time.Millisecond)

	// ...so the next request loads the new bytecode.
	second, err := factory.CreateShader("reload", "main_ps", rhi.ShaderTypePixel)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, []byte{4, 5, 6}, second.(*null.Shader).Bytecode)
}

func TestFactoryWorksWithoutBytecodeDirectory(t *testing.T) {
	// A base path with no per backend subdirectory is fine for the null
	// backend; the watcher just has nothing to watch.
	factory, err := NewFactory(null.NewDevice(), rhi.GraphicsAPINull, filepath.Join(t.TempDir(), "nowhere"))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, factory.Close())
	}()

	shader, err := factory.CreateShader("demo", "main_vs", rhi.ShaderTypeVertex)
	require.NoError(t, err)
	assert.NotNil(t, shader)
}
