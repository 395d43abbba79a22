// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"github.com/born-ml/graphcore/internal/device"
)

// DeviceDescriptor identifies a compute device.
type DeviceDescriptor = device.Descriptor

// CPUDevice returns the host CPU.
func CPUDevice() DeviceDescriptor {
	return device.CPU()
}

// DefaultDevice returns the device selected by GRAPHCORE_DEVICE, or the CPU.
func DefaultDevice() DeviceDescriptor {
	return device.Default()
}

// AvailableDevices lists the devices this build can evaluate on.
func AvailableDevices() []DeviceDescriptor {
	return device.Available()
}
