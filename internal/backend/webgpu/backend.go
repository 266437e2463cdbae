// Package webgpu implements the GPU backend on WebGPU compute shaders via
// go-webgpu (zero-CGO bindings).
//
// Float32 element-wise ops, matmul, 2D transpose, and softmax run as WGSL
// shaders. Everything else computes on an embedded host backend and is
// retagged for the GPU device, so the full Backend surface is available on
// every adapter. Arrays keep a host mirror of their data either way; GPU
// buffers live only for the duration of one dispatch.
package webgpu

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jacobjwood/Tricycle/internal/backend/cpu"
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Backend implements tensor.Backend on a WebGPU device.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache.
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	adapterInfo *wgpu.AdapterInfoGo

	// Host backend for ops without a shader implementation.
	host *cpu.Backend

	log zerolog.Logger
}

// New creates a new WebGPU backend.
// Returns an error if WebGPU is not available or initialization fails.
func New() (backend *Backend, err error) {
	// The native wgpu library panics when missing; report that as an error.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = errors.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	log := newLogger()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return nil, errors.Wrap(instanceErr, "webgpu: create instance")
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, errors.Wrap(adapterErr, "webgpu: request adapter")
	}

	adapterInfo, infoErr := adapter.GetInfo()
	if infoErr != nil {
		adapter.Release()
		instance.Release()
		return nil, errors.Wrap(infoErr, "webgpu: adapter info")
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, errors.Wrap(deviceErr, "webgpu: request device")
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, errors.New("webgpu: failed to get queue")
	}

	log.Info().
		Str("adapter", adapterInfo.Device).
		Str("vendor", adapterInfo.Vendor).
		Msg("webgpu backend initialized")

	return &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		adapterInfo: adapterInfo,
		host:        cpu.New(),
		log:         log,
	}, nil
}

// newLogger builds the backend logger. Verbosity is controlled by the
// TRICYCLE_DEBUG environment variable.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if os.Getenv("TRICYCLE_DEBUG") != "" {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).
		Level(level).
		With().Timestamp().Str("backend", "webgpu").
		Logger()
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// Release releases all WebGPU resources.
// Must be called when the backend is no longer needed.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil

	for _, s := range b.shaders {
		s.Release()
	}
	b.shaders = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	if b.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", b.adapterInfo.Device, b.adapterInfo.Vendor)
	}
	return "WebGPU"
}

// Device returns the compute device.
func (b *Backend) Device() tensor.Device {
	return tensor.WebGPU
}

// AdapterInfo returns information about the GPU adapter.
func (b *Backend) AdapterInfo() *wgpu.AdapterInfoGo {
	return b.adapterInfo
}

// shaderEligible reports whether a binary op can run as a shader:
// float32 operands of identical shape. Broadcasting runs on the host.
func shaderEligible(a, other *tensor.Array) bool {
	return a.DType() == tensor.Float32 &&
		other.DType() == tensor.Float32 &&
		a.Shape().Equal(other.Shape())
}

// onHost runs an op on the embedded host backend and retags the result for
// this device.
func (b *Backend) onHost(name string, f func(host *cpu.Backend) *tensor.Array) *tensor.Array {
	b.log.Debug().Str("op", name).Msg("host fallback")
	return f(b.host).WithDevice(tensor.WebGPU)
}

func (b *Backend) binary(name, code string, a, other *tensor.Array,
	hostOp func(host *cpu.Backend) *tensor.Array) *tensor.Array {

	if !shaderEligible(a, other) {
		return b.onHost(name, hostOp)
	}
	result, err := b.runBinaryOp(a, other, name, code)
	if err != nil {
		panic("webgpu: " + name + ": " + err.Error())
	}
	return result
}

func (b *Backend) unary(name, code string, x *tensor.Array,
	hostOp func(host *cpu.Backend) *tensor.Array) *tensor.Array {

	if x.DType() != tensor.Float32 {
		return b.onHost(name, hostOp)
	}
	result, err := b.runUnaryOp(x, name, code)
	if err != nil {
		panic("webgpu: " + name + ": " + err.Error())
	}
	return result
}

func (b *Backend) scalar(name, code string, x *tensor.Array, s float64,
	hostOp func(host *cpu.Backend) *tensor.Array) *tensor.Array {

	if x.DType() != tensor.Float32 {
		return b.onHost(name, hostOp)
	}
	result, err := b.runScalarOp(x, s, name, code)
	if err != nil {
		panic("webgpu: " + name + ": " + err.Error())
	}
	return result
}

// Add performs element-wise addition.
func (b *Backend) Add(a, other *tensor.Array) *tensor.Array {
	return b.binary("add", addShader, a, other,
		func(host *cpu.Backend) *tensor.Array { return host.Add(a, other) })
}

// Sub performs element-wise subtraction.
func (b *Backend) Sub(a, other *tensor.Array) *tensor.Array {
	return b.binary("sub", subShader, a, other,
		func(host *cpu.Backend) *tensor.Array { return host.Sub(a, other) })
}

// Mul performs element-wise multiplication.
func (b *Backend) Mul(a, other *tensor.Array) *tensor.Array {
	return b.binary("mul", mulShader, a, other,
		func(host *cpu.Backend) *tensor.Array { return host.Mul(a, other) })
}

// Div performs element-wise division.
func (b *Backend) Div(a, other *tensor.Array) *tensor.Array {
	return b.binary("div", divShader, a, other,
		func(host *cpu.Backend) *tensor.Array { return host.Div(a, other) })
}

// Maximum returns the element-wise maximum.
func (b *Backend) Maximum(a, other *tensor.Array) *tensor.Array {
	return b.binary("maximum", maximumShader, a, other,
		func(host *cpu.Backend) *tensor.Array { return host.Maximum(a, other) })
}

// Minimum returns the element-wise minimum.
func (b *Backend) Minimum(a, other *tensor.Array) *tensor.Array {
	return b.binary("minimum", minimumShader, a, other,
		func(host *cpu.Backend) *tensor.Array { return host.Minimum(a, other) })
}

// AddScalar adds a scalar to every element.
func (b *Backend) AddScalar(x *tensor.Array, s float64) *tensor.Array {
	return b.scalar("add_scalar", addScalarShader, x, s,
		func(host *cpu.Backend) *tensor.Array { return host.AddScalar(x, s) })
}

// MulScalar multiplies every element by a scalar.
func (b *Backend) MulScalar(x *tensor.Array, s float64) *tensor.Array {
	return b.scalar("mul_scalar", mulScalarShader, x, s,
		func(host *cpu.Backend) *tensor.Array { return host.MulScalar(x, s) })
}

// PowScalar raises every element to a scalar power.
func (b *Backend) PowScalar(x *tensor.Array, p float64) *tensor.Array {
	return b.scalar("pow_scalar", powScalarShader, x, p,
		func(host *cpu.Backend) *tensor.Array { return host.PowScalar(x, p) })
}

// Exp computes the element-wise exponential.
func (b *Backend) Exp(x *tensor.Array) *tensor.Array {
	return b.unary("exp", expShader, x,
		func(host *cpu.Backend) *tensor.Array { return host.Exp(x) })
}

// Log computes the element-wise natural logarithm.
func (b *Backend) Log(x *tensor.Array) *tensor.Array {
	return b.unary("log", logShader, x,
		func(host *cpu.Backend) *tensor.Array { return host.Log(x) })
}

// Sqrt computes the element-wise square root.
func (b *Backend) Sqrt(x *tensor.Array) *tensor.Array {
	return b.unary("sqrt", sqrtShader, x,
		func(host *cpu.Backend) *tensor.Array { return host.Sqrt(x) })
}

// Sin computes the element-wise sine.
func (b *Backend) Sin(x *tensor.Array) *tensor.Array {
	return b.unary("sin", sinShader, x,
		func(host *cpu.Backend) *tensor.Array { return host.Sin(x) })
}

// Cos computes the element-wise cosine.
func (b *Backend) Cos(x *tensor.Array) *tensor.Array {
	return b.unary("cos", cosShader, x,
		func(host *cpu.Backend) *tensor.Array { return host.Cos(x) })
}

// MatMul performs matrix multiplication: [M, K] @ [K, N] -> [M, N].
func (b *Backend) MatMul(a, other *tensor.Array) *tensor.Array {
	if a.DType() != tensor.Float32 ||
		len(a.Shape()) != 2 || len(other.Shape()) != 2 ||
		a.Shape()[1] != other.Shape()[0] {
		return b.onHost("matmul", func(host *cpu.Backend) *tensor.Array {
			return host.MatMul(a, other)
		})
	}
	result, err := b.runMatMul(a, other)
	if err != nil {
		panic("webgpu: matmul: " + err.Error())
	}
	return result
}

// BatchMatMul performs batched matrix multiplication on the host.
func (b *Backend) BatchMatMul(a, other *tensor.Array) *tensor.Array {
	return b.onHost("batch_matmul", func(host *cpu.Backend) *tensor.Array {
		return host.BatchMatMul(a, other)
	})
}

// Reshape returns an array with the same data and a new shape.
func (b *Backend) Reshape(x *tensor.Array, shape tensor.Shape) *tensor.Array {
	return b.host.Reshape(x, shape).WithDevice(tensor.WebGPU)
}

// Transpose permutes the array's axes. The plain 2D reversal runs as a
// shader; arbitrary permutations run on the host.
func (b *Backend) Transpose(x *tensor.Array, axes ...int) *tensor.Array {
	is2DReversal := len(x.Shape()) == 2 &&
		(len(axes) == 0 || (len(axes) == 2 && axes[0] == 1 && axes[1] == 0))
	if x.DType() != tensor.Float32 || !is2DReversal {
		return b.onHost("transpose", func(host *cpu.Backend) *tensor.Array {
			return host.Transpose(x, axes...)
		})
	}
	result, err := b.runTranspose(x)
	if err != nil {
		panic("webgpu: transpose: " + err.Error())
	}
	return result
}

// BroadcastTo materializes x broadcast up to the given shape.
func (b *Backend) BroadcastTo(x *tensor.Array, shape tensor.Shape) *tensor.Array {
	return b.onHost("broadcast_to", func(host *cpu.Backend) *tensor.Array {
		return host.BroadcastTo(x, shape)
	})
}

// Concat concatenates arrays along the given axis.
func (b *Backend) Concat(xs []*tensor.Array, axis int) *tensor.Array {
	return b.onHost("concat", func(host *cpu.Backend) *tensor.Array {
		return host.Concat(xs, axis)
	})
}

// Narrow returns the slice [start, start+length) of x along the given axis.
func (b *Backend) Narrow(x *tensor.Array, axis, start, length int) *tensor.Array {
	return b.onHost("narrow", func(host *cpu.Backend) *tensor.Array {
		return host.Narrow(x, axis, start, length)
	})
}

// Sum reduces the whole array to a scalar.
func (b *Backend) Sum(x *tensor.Array) *tensor.Array {
	return b.onHost("sum", func(host *cpu.Backend) *tensor.Array {
		return host.Sum(x)
	})
}

// SumAxis sums along one axis.
func (b *Backend) SumAxis(x *tensor.Array, axis int, keep bool) *tensor.Array {
	return b.onHost("sum_axis", func(host *cpu.Backend) *tensor.Array {
		return host.SumAxis(x, axis, keep)
	})
}

// MaxAxis takes the maximum along one axis.
func (b *Backend) MaxAxis(x *tensor.Array, axis int, keep bool) *tensor.Array {
	return b.onHost("max_axis", func(host *cpu.Backend) *tensor.Array {
		return host.MaxAxis(x, axis, keep)
	})
}

// Greater compares a > other element-wise, returning a Bool array.
func (b *Backend) Greater(a, other *tensor.Array) *tensor.Array {
	return b.onHost("greater", func(host *cpu.Backend) *tensor.Array {
		return host.Greater(a, other)
	})
}

// GreaterEqual compares a >= other element-wise, returning a Bool array.
func (b *Backend) GreaterEqual(a, other *tensor.Array) *tensor.Array {
	return b.onHost("greater_equal", func(host *cpu.Backend) *tensor.Array {
		return host.GreaterEqual(a, other)
	})
}

// Where selects x where cond is true and y elsewhere.
func (b *Backend) Where(cond, x, y *tensor.Array) *tensor.Array {
	return b.onHost("where", func(host *cpu.Backend) *tensor.Array {
		return host.Where(cond, x, y)
	})
}

// Softmax computes softmax along the last axis of a 2D array.
func (b *Backend) Softmax(x *tensor.Array) *tensor.Array {
	if x.DType() != tensor.Float32 || len(x.Shape()) != 2 {
		return b.onHost("softmax", func(host *cpu.Backend) *tensor.Array {
			return host.Softmax(x)
		})
	}
	result, err := b.runSoftmax(x)
	if err != nil {
		panic("webgpu: softmax: " + err.Error())
	}
	return result
}
