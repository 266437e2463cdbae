// Package cpu provides the public API for the host CPU backend.
package cpu

import (
	"github.com/jacobjwood/Tricycle/internal/backend/cpu"
)

// Backend implements tensor.Backend on the host CPU.
type Backend = cpu.Backend

// New creates a new CPU backend.
var New = cpu.New
