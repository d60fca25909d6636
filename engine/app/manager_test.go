package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torus-gfx/torus/engine/rhi"
	"github.com/torus-gfx/torus/engine/rhi/null"
)

// recordingPass counts frame loop callbacks and logs their order.
type recordingPass struct {
	name  string
	order *[]string

	animates int
	renders  int
	resizes  int
	lastFB   rhi.Framebuffer
}

func (p *recordingPass) Init() error { return nil }

func (p *recordingPass) Animate(elapsed float64) {
	p.animates++
	*p.order = append(*p.order, p.name+":animate")
}

func (p *recordingPass) BackBufferResizing() { p.resizes++ }

func (p *recordingPass) Render(fb rhi.Framebuffer) {
	p.renders++
	p.lastFB = fb
	*p.order = append(*p.order, p.name+":render")
}

func TestDefaultDeviceParams(t *testing.T) {
	params := DefaultDeviceParams()
	assert.Equal(t, uint32(1280), params.BackBufferWidth)
	assert.Equal(t, uint32(720), params.BackBufferHeight)
	assert.Equal(t, -1, params.WindowPosX)
	assert.Equal(t, -1, params.WindowPosY)
	assert.True(t, params.VsyncEnabled)
	assert.False(t, params.EnableValidation)
}

func TestLoadDeviceParamsMissingFileKeepsDefaults(t *testing.T) {
	params, err := LoadDeviceParams(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultDeviceParams(), params)
}

func TestLoadDeviceParamsOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.toml")
	content := "width = 1920\nheight = 1080\nvsync = false\nwindow_pos_x = 100\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	params, err := LoadDeviceParams(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(1920), params.BackBufferWidth)
	assert.Equal(t, uint32(1080), params.BackBufferHeight)
	assert.False(t, params.VsyncEnabled)
	assert.Equal(t, 100, params.WindowPosX)

	// Fields the file does not mention keep their defaults.
	assert.Equal(t, -1, params.WindowPosY)
	assert.False(t, params.EnableValidation)
}

func TestLoadDeviceParamsRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("width = }"), 0o644))

	_, err := LoadDeviceParams(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func newHeadlessManager(t *testing.T) *DeviceManager {
	t.Helper()
	dm := NewDeviceManager(rhi.GraphicsAPINull)
	params := DefaultDeviceParams()
	params.BackBufferWidth = 320
	params.BackBufferHeight = 240
	require.NoError(t, dm.CreateWindowDeviceAndSwapChain(params, "Test"))
	return dm
}

func TestHeadlessManagerRunsOneFrame(t *testing.T) {
	dm := newHeadlessManager(t)
	require.NotNil(t, dm.Device())
	require.NotNil(t, dm.SwapChain())

	width, height := dm.FramebufferSize()
	assert.Equal(t, uint32(320), width)
	assert.Equal(t, uint32(240), height)

	var order []string
	first := &recordingPass{name: "first", order: &order}
	second := &recordingPass{name: "second", order: &order}
	dm.AddRenderPassToBack(first)
	dm.AddRenderPassToBack(second)

	dm.RunMessageLoop()

	// Headless loops render exactly one frame: all passes animate, then
	// all passes render, in registration order.
	assert.Equal(t, []string{"first:animate", "second:animate", "first:render", "second:render"}, order)
	assert.Equal(t, 1, first.renders)
	assert.Same(t, dm.SwapChain().CurrentFramebuffer(), first.lastFB)
	assert.Same(t, first.lastFB, second.lastFB)
	assert.Equal(t, 1, dm.SwapChain().(*null.SwapChain).PresentedFrames())

	dm.Shutdown()
	assert.Nil(t, dm.Device())
	assert.Nil(t, dm.SwapChain())
}

func TestPendingResizeAppliesBeforeTheFrame(t *testing.T) {
	dm := newHeadlessManager(t)
	defer dm.Shutdown()

	var order []string
	pass := &recordingPass{name: "pass", order: &order}
	dm.AddRenderPassToBack(pass)

	// Headless runs have no window callbacks, inject the resize the way
	// the framebuffer callback would.
	dm.resizePending = true
	dm.resizeWidth = 512
	dm.resizeHeight = 384

	dm.RunMessageLoop()

	assert.Equal(t, 1, pass.resizes, "passes drop size dependent state first")
	assert.Equal(t, 1, dm.SwapChain().(*null.SwapChain).ResizeCount())
	assert.False(t, dm.resizePending)

	width, height := dm.FramebufferSize()
	assert.Equal(t, uint32(512), width)
	assert.Equal(t, uint32(384), height)

	// The frame still ran, against the resized back buffer.
	require.Equal(t, 1, pass.renders)
	info := pass.lastFB.Info()
	assert.Equal(t, uint32(512), info.Width)
	assert.Equal(t, uint32(384), info.Height)
}

func TestZeroSizedResizeStaysPending(t *testing.T) {
	dm := newHeadlessManager(t)
	defer dm.Shutdown()

	pass := &recordingPass{name: "pass", order: new([]string)}
	dm.AddRenderPassToBack(pass)

	// A minimized window reports a zero framebuffer; the resize must
	// wait and nothing may be torn down yet.
	dm.resizePending = true
	dm.resizeWidth = 0
	dm.resizeHeight = 0

	assert.False(t, dm.applyResize())
	assert.True(t, dm.resizePending)
	assert.Equal(t, 0, pass.resizes)
	assert.Equal(t, 0, dm.SwapChain().(*null.SwapChain).ResizeCount())
}

func TestRemoveRenderPass(t *testing.T) {
	dm := newHeadlessManager(t)
	defer dm.Shutdown()

	var order []string
	kept := &recordingPass{name: "kept", order: &order}
	removed := &recordingPass{name: "removed", order: &order}
	dm.AddRenderPassToBack(removed)
	dm.AddRenderPassToBack(kept)
	dm.RemoveRenderPass(removed)

	// Removing a pass that was never added is a no-op.
	dm.RemoveRenderPass(&recordingPass{name: "stranger", order: &order})

	dm.RunMessageLoop()
	assert.Equal(t, 0, removed.renders)
	assert.Equal(t, 1, kept.renders)
}

func TestSetInformativeWindowTitleHeadless(t *testing.T) {
	dm := newHeadlessManager(t)
	defer dm.Shutdown()

	// Without a window there is nothing to retitle; the call must not
	// blow up.
	dm.SetInformativeWindowTitle("Example")
}
