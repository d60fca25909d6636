// Package null implements an rhi backend without a GPU. Resources are
// plain structs over CPU memory and command lists record what was asked
// of them instead of executing it. It exists so applications and tests
// can run the full device lifecycle headless, on machines with no
// graphics stack at all.
package null

import (
	"fmt"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/rhi"
)

// Device implements rhi.Device. The zero value is not usable; create
// devices with NewDevice.
type Device struct {
	features map[rhi.Feature]bool

	liveBuffers   int
	liveTextures  int
	liveSamplers  int
	liveShaders   int
	livePipelines int

	executed []Command
}

var _ rhi.Device = (*Device)(nil)

func NewDevice() *Device {
	return &Device{
		features: map[rhi.Feature]bool{
			rhi.FeatureComputeShaders: true,
			rhi.FeatureMeshlets:       false,
		},
	}
}

// CreateDeviceAndSwapChain builds a device plus a swapchain of the
// given size, mirroring the construction path of the real backends.
func CreateDeviceAndSwapChain(width, height uint32) (*Device, *SwapChain, error) {
	device := NewDevice()
	sc, err := NewSwapChain(device, width, height)
	if err != nil {
		return nil, nil, err
	}
	return device, sc, nil
}

func (d *Device) GraphicsAPI() rhi.GraphicsAPI {
	return rhi.GraphicsAPINull
}

func (d *Device) QueryFeatureSupport(feature rhi.Feature) bool {
	return d.features[feature]
}

// SetFeatureSupport toggles an optional capability. Tests use this to
// exercise both sides of feature gated code paths.
func (d *Device) SetFeatureSupport(feature rhi.Feature, supported bool) {
	d.features[feature] = supported
}

// LivePipelineCount returns how many pipelines of any kind currently
// exist on the device.
func (d *Device) LivePipelineCount() int {
	return d.livePipelines
}

// LiveTextureCount returns how many textures currently exist on the
// device, swapchain back buffers included.
func (d *Device) LiveTextureCount() int {
	return d.liveTextures
}

// ExecutedCommands returns every command submitted to the device so
// far, flattened in submission order.
func (d *Device) ExecutedCommands() []Command {
	return d.executed
}

// ResetExecutedCommands drops the recorded submission history.
func (d *Device) ResetExecutedCommands() {
	d.executed = nil
}

func (d *Device) NewCommandList() (rhi.CommandList, error) {
	return &CommandList{device: d}, nil
}

func (d *Device) ExecuteCommandList(cl rhi.CommandList) error {
	ncl, ok := cl.(*CommandList)
	if !ok {
		return fmt.Errorf("null: foreign command list %T", cl)
	}
	if ncl.open {
		return fmt.Errorf("null: command list executed while still open")
	}
	d.executed = append(d.executed, ncl.commands...)
	return nil
}

func (d *Device) WaitIdle() error {
	return nil
}

func (d *Device) Destroy() {
	if d.liveBuffers != 0 || d.liveTextures != 0 || d.livePipelines != 0 {
		core.LogWarn("null device destroyed with live resources: %d buffers, %d textures, %d pipelines",
			d.liveBuffers, d.liveTextures, d.livePipelines)
	}
}
