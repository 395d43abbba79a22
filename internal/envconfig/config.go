// Package envconfig reads graphcore settings from the environment.
package envconfig

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// Var returns an environment variable stripped of surrounding whitespace
// and quotes.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// BoolWithDefault returns a getter for a boolean variable.
// Unparseable non-empty values count as true.
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool returns a getter for a boolean variable that defaults to false.
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// String returns a getter for a string variable.
func String(k string) func() string {
	return func() string {
		return Var(k)
	}
}

// Uint returns a getter for an unsigned integer variable.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				klog.Warningf("invalid environment variable %s=%q, using default %d", key, s, defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

var (
	// Device selects the default device, e.g. "cpu" or "cpu:0".
	Device = String("GRAPHCORE_DEVICE")
	// Deterministic forces deterministic algorithms for evaluators built from the environment.
	Deterministic = Bool("GRAPHCORE_DETERMINISTIC")
	// MinChunkSize is the minimum number of elements handed to one worker.
	MinChunkSize = Uint("GRAPHCORE_MIN_CHUNK", 1024)
)

// NumThreads is the number of kernel worker goroutines.
// Defaults to runtime.NumCPU().
func NumThreads() int {
	//nolint:gosec // G115: NumCPU is small
	return int(Uint("GRAPHCORE_NUM_THREADS", uint(runtime.NumCPU()))())
}

// Seed returns the fixed random seed from GRAPHCORE_SEED, if set.
func Seed() (uint64, bool) {
	s := Var("GRAPHCORE_SEED")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		klog.Warningf("invalid environment variable GRAPHCORE_SEED=%q, ignoring", s)
		return 0, false
	}
	return n, true
}

// EnvVar describes one configuration variable.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns all configuration variables with their current values.
func AsMap() map[string]EnvVar {
	seed, fixed := Seed()
	var seedValue any
	if fixed {
		seedValue = seed
	}
	return map[string]EnvVar{
		"GRAPHCORE_DEVICE":        {"GRAPHCORE_DEVICE", Device(), "Default device (cpu, cpu:N)"},
		"GRAPHCORE_DETERMINISTIC": {"GRAPHCORE_DETERMINISTIC", Deterministic(), "Force deterministic algorithms"},
		"GRAPHCORE_MIN_CHUNK":     {"GRAPHCORE_MIN_CHUNK", MinChunkSize(), "Minimum elements per kernel worker"},
		"GRAPHCORE_NUM_THREADS":   {"GRAPHCORE_NUM_THREADS", NumThreads(), "Kernel worker goroutines (default: number of CPUs)"},
		"GRAPHCORE_SEED":          {"GRAPHCORE_SEED", seedValue, "Fixed random seed for parameter initialization"},
	}
}
