//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

func runExample(name string) error {
	mg.Deps(Build.Shaders)
	fmt.Printf("Run %s...\n", name)
	if _, err := executeCmd("go", withArgs("run", "./examples/"+name), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the basic triangle example.
func (Run) BasicTriangle() error {
	return runExample("basic_triangle")
}

// Runs the vertex buffer example.
func (Run) VertexBuffer() error {
	return runExample("vertex_buffer")
}

// Runs the deferred shading example.
func (Run) DeferredShading() error {
	return runExample("deferred_shading")
}

// Runs the meshlets example. Requires a device with mesh shader
// support.
func (Run) Meshlets() error {
	return runExample("meshlets")
}
