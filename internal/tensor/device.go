package tensor

// Device represents the compute device an array is placed on.
// Placement is a per-array static choice; mixing devices in one Op
// fails with a DeviceMismatchError.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}
