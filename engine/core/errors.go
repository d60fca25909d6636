package core

import (
	"errors"
)

var (
	// ErrSwapchainOutOfDate is returned by swapchain acquire/present when the
	// surface no longer matches the window and the chain must be recreated.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date, needs recreation")
	// ErrFeatureUnsupported is returned when a device does not implement an
	// optional capability, such as meshlet pipelines.
	ErrFeatureUnsupported = errors.New("feature not supported by the device")
)
