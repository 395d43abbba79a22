//go:build windows

package device

import (
	"github.com/go-webgpu/webgpu/wgpu"
)

// probeWebGPU reports whether a WebGPU adapter can be requested.
func probeWebGPU() (found bool) {
	// wgpu panics when wgpu_native.dll cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			found = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}
