// Package webgpu provides the public API for the WebGPU backend.
package webgpu

import (
	"github.com/jacobjwood/Tricycle/internal/backend/webgpu"
)

// Backend implements tensor.Backend on a WebGPU device.
type Backend = webgpu.Backend

// New creates a new WebGPU backend, or returns an error if no adapter is
// available.
var New = webgpu.New

// IsAvailable checks if WebGPU is available on this system.
var IsAvailable = webgpu.IsAvailable
