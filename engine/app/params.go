package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/torus-gfx/torus/engine/core"
)

/**
 * @brief Window and device creation parameters. The zero value is not
 * meaningful; start from DefaultDeviceParams and override fields.
 */
type DeviceParams struct {
	WindowPosX       int    `toml:"window_pos_x"`
	WindowPosY       int    `toml:"window_pos_y"`
	BackBufferWidth  uint32 `toml:"width"`
	BackBufferHeight uint32 `toml:"height"`
	VsyncEnabled     bool   `toml:"vsync"`
	EnableValidation bool   `toml:"validation"`
}

// DefaultDeviceParams returns the parameters every example starts
// from: a 1280x720 window wherever the system places it, vsync on.
func DefaultDeviceParams() DeviceParams {
	return DeviceParams{
		WindowPosX:       -1,
		WindowPosY:       -1,
		BackBufferWidth:  1280,
		BackBufferHeight: 720,
		VsyncEnabled:     true,
	}
}

// LoadDeviceParams overlays parameters from a TOML file onto the
// defaults. A missing file is not an error, the defaults stand.
func LoadDeviceParams(path string) (DeviceParams, error) {
	params := DefaultDeviceParams()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogDebug("no parameter file at %s, using defaults", path)
			return params, nil
		}
		return params, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	core.LogDebug("device parameters loaded from %s", path)
	return params, nil
}
