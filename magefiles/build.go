//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// meshShaderStages need the mesh shading extension, which glslc only
// accepts with a recent target environment.
var meshShaderStages = map[string]bool{".mesh": true, ".task": true}

// Compiles every GLSL source under shaders/glsl into SPIR-V bytecode
// under shaders/vulkan. WGSL under shaders/webgpu is loaded as source
// and needs no compilation.
func (Build) Shaders() error {
	sources, err := filepath.Glob("shaders/glsl/*")
	if err != nil {
		return err
	}
	if err := os.MkdirAll("shaders/vulkan", 0o755); err != nil {
		return err
	}

	for _, source := range sources {
		ext := filepath.Ext(source)
		base := strings.TrimSuffix(filepath.Base(source), ext)
		output := filepath.Join("shaders", "vulkan", base+".spv")

		args := []string{source, "-o", output}
		if meshShaderStages[ext] {
			args = append(args, "--target-env=vulkan1.2")
		}
		if _, err := executeCmd("glslc", withArgs(args...), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds every example binary into bin/.
func (Build) Examples() error {
	examples, err := filepath.Glob("examples/*")
	if err != nil {
		return err
	}
	for _, example := range examples {
		name := filepath.Base(example)
		output := filepath.Join("bin", name)
		fmt.Printf("Building %s...\n", name)
		if _, err := executeCmd("go", withArgs("build", "-o", output, "./"+example), withStream()); err != nil {
			return err
		}
	}
	return nil
}
