// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"github.com/born-ml/graphcore/internal/random"
)

// SetFixedRandomSeed fixes the process-wide random seed.
func SetFixedRandomSeed(seed uint64) {
	random.SetFixedRandomSeed(seed)
}

// RandomSeed returns the process-wide random seed.
func RandomSeed() uint64 {
	return random.RandomSeed()
}

// IsRandomSeedFixed reports whether SetFixedRandomSeed has been called.
func IsRandomSeedFixed() bool {
	return random.IsRandomSeedFixed()
}

// ForceDeterministicAlgorithms makes Evaluators created afterwards use
// fixed-order reductions.
func ForceDeterministicAlgorithms() {
	random.ForceDeterministicAlgorithms()
}

// ShouldForceDeterministicAlgorithms reports the process-wide switch.
func ShouldForceDeterministicAlgorithms() bool {
	return random.ShouldForceDeterministicAlgorithms()
}
