// Package random holds the determinism controls (fixed random seed and the
// deterministic-algorithms switch) and the parameter initializers that draw
// randomness under them.
package random

import (
	"math/rand"
	"sync"
	"time"

	"github.com/born-ml/graphcore/internal/envconfig"
)

// Settings is an immutable snapshot of a State. Evaluation takes Settings
// explicitly so a run is reproducible regardless of later flag changes.
type Settings struct {
	Seed          uint64
	SeedFixed     bool
	Deterministic bool
}

// State is a set of determinism flags. The zero value is not usable; use
// NewState.
type State struct {
	mu            sync.RWMutex
	seed          uint64
	fixed         bool
	deterministic bool
	draws         uint64 // seeds handed out since the seed was last set
}

// NewState returns a State with an unfixed, time-derived seed.
func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset clears both flags and picks a fresh unfixed seed.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	//nolint:gosec // G115: wrap-around is fine for a seed
	s.seed = uint64(time.Now().UnixNano())
	s.fixed = false
	s.deterministic = false
	s.draws = 0
}

// SetFixedRandomSeed fixes the seed all later draws derive from.
func (s *State) SetFixedRandomSeed(seed uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = seed
	s.fixed = true
	s.draws = 0
}

// RandomSeed returns the current seed.
func (s *State) RandomSeed() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seed
}

// IsRandomSeedFixed reports whether SetFixedRandomSeed has been called since
// the last Reset.
func (s *State) IsRandomSeedFixed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fixed
}

// ForceDeterministicAlgorithms makes evaluators built from this State avoid
// algorithms whose results depend on scheduling.
func (s *State) ForceDeterministicAlgorithms() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deterministic = true
}

// ShouldForceDeterministicAlgorithms reports the deterministic switch.
func (s *State) ShouldForceDeterministicAlgorithms() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deterministic
}

// Snapshot captures the current flags.
func (s *State) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Settings{Seed: s.seed, SeedFixed: s.fixed, Deterministic: s.deterministic}
}

// NextSeed returns the seed for the next random draw. With a fixed seed the
// sequence of returned seeds is the same in every run; otherwise it is
// unpredictable.
func (s *State) NextSeed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fixed {
		//nolint:gosec // not security sensitive
		return rand.Int63()
	}
	s.draws++
	return mix(s.seed, s.draws)
}

// NewRand returns a generator seeded by NextSeed.
func (s *State) NewRand() *rand.Rand {
	//nolint:gosec // Intentional deterministic seed for reproducibility
	return rand.New(rand.NewSource(s.NextSeed()))
}

// mix derives a per-draw seed with a splitmix64 step.
func mix(seed, n uint64) int64 {
	z := seed + n*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	//nolint:gosec // G115: sign bit is dropped on purpose
	return int64(z & (1<<63 - 1))
}

var defaultState = newDefaultState()

func newDefaultState() *State {
	s := NewState()
	if seed, ok := envconfig.Seed(); ok {
		s.SetFixedRandomSeed(seed)
	}
	if envconfig.Deterministic() {
		s.ForceDeterministicAlgorithms()
	}
	return s
}

// Default returns the process-wide State.
func Default() *State {
	return defaultState
}

// SetFixedRandomSeed fixes the process-wide seed.
func SetFixedRandomSeed(seed uint64) {
	defaultState.SetFixedRandomSeed(seed)
}

// RandomSeed returns the process-wide seed.
func RandomSeed() uint64 {
	return defaultState.RandomSeed()
}

// IsRandomSeedFixed reports whether the process-wide seed is fixed.
func IsRandomSeedFixed() bool {
	return defaultState.IsRandomSeedFixed()
}

// ForceDeterministicAlgorithms sets the process-wide deterministic switch.
func ForceDeterministicAlgorithms() {
	defaultState.ForceDeterministicAlgorithms()
}

// ShouldForceDeterministicAlgorithms reports the process-wide switch.
func ShouldForceDeterministicAlgorithms() bool {
	return defaultState.ShouldForceDeterministicAlgorithms()
}
