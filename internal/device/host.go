package device

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Host describes the CPU backing the CPU device.
type Host struct {
	Brand          string
	Vendor         string
	PhysicalCores  int
	LogicalCores   int
	ThreadsPerCore int
	CacheLine      int
	Features       []string
}

// HostInfo reports what cpuid knows about the host CPU.
func HostInfo() Host {
	h := Host{
		Brand:          cpuid.CPU.BrandName,
		Vendor:         cpuid.CPU.VendorString,
		PhysicalCores:  cpuid.CPU.PhysicalCores,
		LogicalCores:   cpuid.CPU.LogicalCores,
		ThreadsPerCore: cpuid.CPU.ThreadsPerCore,
		CacheLine:      cpuid.CPU.CacheLine,
		Features:       cpuid.CPU.FeatureSet(),
	}
	// cpuid reports zero on platforms it cannot probe.
	if h.LogicalCores == 0 {
		h.LogicalCores = runtime.NumCPU()
	}
	if h.Brand == "" {
		h.Brand = runtime.GOARCH
	}
	return h
}

// HasVectorUnit reports whether the host offers wide SIMD (AVX2 or NEON/ASIMD).
func (h Host) HasVectorUnit() bool {
	return cpuid.CPU.Supports(cpuid.AVX2) || cpuid.CPU.Supports(cpuid.ASIMD)
}
