//go:build !windows

package device

// probeWebGPU reports whether a WebGPU adapter can be requested. The wgpu
// bindings only load the native library on Windows.
func probeWebGPU() bool {
	return false
}
