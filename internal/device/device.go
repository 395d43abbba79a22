// Package device describes the compute targets values and evaluations are
// placed on.
package device

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/born-ml/graphcore/internal/envconfig"
	"github.com/born-ml/graphcore/internal/tensor"
)

// ErrUnsupportedDevice is returned for devices this engine cannot place
// storage or computation on.
var ErrUnsupportedDevice = errors.New("unsupported device")

// Descriptor identifies one compute device.
type Descriptor struct {
	Kind tensor.Device
	ID   int
}

// CPU returns the host CPU device.
func CPU() Descriptor {
	return Descriptor{Kind: tensor.CPU}
}

// Default returns the device selected by GRAPHCORE_DEVICE, or the CPU.
// An unparseable or unsupported selection falls back to the CPU.
func Default() Descriptor {
	s := envconfig.Device()
	if s == "" {
		return CPU()
	}
	d, err := Parse(s)
	if err != nil {
		return CPU()
	}
	if err := Check(d); err != nil {
		return CPU()
	}
	return d
}

// Available lists the devices this engine can use.
func Available() []Descriptor {
	return []Descriptor{CPU()}
}

// Probe is a device found on the host.
type Probe struct {
	Descriptor
	Supported bool // false when the engine cannot place work on it
}

var webGPUPresent = sync.OnceValue(probeWebGPU)

// Detected lists Available() followed by accelerators present on the host
// that the engine does not support. The WebGPU probe runs once per process.
func Detected() []Probe {
	var found []Probe
	for _, d := range Available() {
		found = append(found, Probe{Descriptor: d, Supported: true})
	}
	if webGPUPresent() {
		found = append(found, Probe{Descriptor: Descriptor{Kind: tensor.WebGPU}})
	}
	return found
}

// Check returns ErrUnsupportedDevice unless d is one of Available().
func Check(d Descriptor) error {
	for _, a := range Available() {
		if a == d {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedDevice, d)
}

// Compatible reports whether storage on a can be read by computation on b.
func Compatible(a, b Descriptor) bool {
	return a == b
}

// String returns e.g. "CPU:0".
func (d Descriptor) String() string {
	return d.Kind.String() + ":" + strconv.Itoa(d.ID)
}

// Parse parses "cpu", "cpu:0", "cuda:1", "webgpu" and similar. Parsing does
// not imply the device is supported; use Check.
func Parse(s string) (Descriptor, error) {
	name, id, hasID := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	var d Descriptor
	switch name {
	case "cpu":
		d.Kind = tensor.CPU
	case "cuda", "gpu":
		d.Kind = tensor.CUDA
	case "vulkan":
		d.Kind = tensor.Vulkan
	case "metal":
		d.Kind = tensor.Metal
	case "webgpu":
		d.Kind = tensor.WebGPU
	default:
		return Descriptor{}, fmt.Errorf("%w: unknown device %q", ErrUnsupportedDevice, s)
	}
	if hasID {
		n, err := strconv.Atoi(id)
		if err != nil || n < 0 {
			return Descriptor{}, fmt.Errorf("%w: invalid device id in %q", ErrUnsupportedDevice, s)
		}
		d.ID = n
	}
	return d, nil
}
