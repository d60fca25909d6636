// Package app hosts the device manager: the piece that owns the
// window, the graphics device and the swapchain, and drives registered
// render passes through a blocking frame loop. Examples build on it the
// same way: pick a backend from the command line, create the window and
// device, register a pass, run the loop.
package app

import (
	"flag"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/rhi"
)

// RenderPass is the contract an example implements to take part in the
// frame loop.
type RenderPass interface {
	// Init creates the long lived resources of the pass. It runs once,
	// before the pass joins the loop; a non nil error keeps it out.
	Init() error
	// Animate advances animation state by elapsed seconds.
	Animate(elapsed float64)
	// BackBufferResizing tells the pass the swapchain is about to be
	// recreated, so everything sized to it must be dropped.
	BackBufferResizing()
	// Render records and submits one frame targeting fb.
	Render(fb rhi.Framebuffer)
}

// GraphicsAPIFromArgs reads the backend selection from the command
// line. An unknown name falls back to Vulkan, the default.
func GraphicsAPIFromArgs() rhi.GraphicsAPI {
	backend := flag.String("backend", "vulkan", "graphics backend: vulkan, webgpu or null")
	flag.Parse()

	api, err := rhi.GraphicsAPIFromString(*backend)
	if err != nil {
		core.LogWarn("%s, falling back to vulkan", err)
		return rhi.GraphicsAPIVulkan
	}
	return api
}
