// SPDX-License-Identifier: MIT
// Package: weitrix/synth
//
// options.go: configuration and functional options for synthetic pairs.
//
// Contract:
//   • Options are functional (type Option func(*config)).
//   • Option constructors validate and panic on meaningless inputs.
//     Generate itself never panics.
//   • Defaults are deterministic; randomness comes only from the seed.

package synth

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
)

// Deterministic defaults.
const (
	// DefaultSeed seeds the generator when WithSeed is not given.
	DefaultSeed int64 = 1
	// DefaultWeight is the constant cell weight when no WeightFn is set.
	DefaultWeight = 1.0
	// DefaultNoise is the noise standard deviation at weight 1.
	DefaultNoise = 1.0
	// DefaultVariancePower makes the noise variance exactly 1/w.
	DefaultVariancePower = 1.0
)

// IDFn maps a zero-based index to an identifier.
type IDFn func(idx int) string

// PrefixIDFn returns prefix + decimal index: "g0", "g1", ...
func PrefixIDFn(prefix string) IDFn {
	return func(idx int) string { return prefix + strconv.Itoa(idx) }
}

// WeightFn draws the weight of cell (i, j).
type WeightFn func(i, j int, rng *rand.Rand) float64

// ConstantWeightFn always yields value. Panics if value < 0.
func ConstantWeightFn(value float64) WeightFn {
	if value < 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		panic(fmt.Sprintf("synth: ConstantWeightFn: value must be finite and >= 0, got %g", value))
	}

	return func(int, int, *rand.Rand) float64 { return value }
}

// UniformWeightFn samples uniformly in [lo, hi). Panics unless 0 <= lo <= hi.
func UniformWeightFn(lo, hi float64) WeightFn {
	if lo < 0 || hi < lo {
		panic(fmt.Sprintf("synth: UniformWeightFn: require 0 <= lo <= hi, got lo=%g hi=%g", lo, hi))
	}

	return func(_, _ int, rng *rand.Rand) float64 {
		if hi == lo {
			return lo
		}

		return lo + rng.Float64()*(hi-lo)
	}
}

// ExponentialWeightFn samples Exp(rate), mean 1/rate. Panics if rate <= 0.
func ExponentialWeightFn(rate float64) WeightFn {
	if rate <= 0 {
		panic(fmt.Sprintf("synth: ExponentialWeightFn: rate must be > 0, got %g", rate))
	}

	return func(_, _ int, rng *rand.Rand) float64 { return rng.ExpFloat64() / rate }
}

// RowWeightFn gives every cell of row i the weight 1 + i%period, so total
// weight varies between rows. Panics if period < 1.
func RowWeightFn(period int) WeightFn {
	if period < 1 {
		panic(fmt.Sprintf("synth: RowWeightFn: period must be >= 1, got %d", period))
	}

	return func(i, _ int, _ *rand.Rand) float64 { return float64(1 + i%period) }
}

// config holds every knob of Generate.
type config struct {
	seed     int64
	rowID    IDFn
	colID    IDFn
	weightFn WeightFn
	missing  float64 // probability a cell is unobserved (weight 0)

	p         int     // latent components
	loadingSD float64 // row loading sd
	meanSD    float64 // row mean sd

	noise float64 // noise sd at weight 1
	power float64 // noise variance = noise²/w^power
	// colScale multiplies the noise variance of column j.
	colScale func(j int) float64
}

// Option customizes Generate.
type Option func(*config)

func newConfig(opts ...Option) config {
	c := config{
		seed:      DefaultSeed,
		rowID:     PrefixIDFn("row"),
		colID:     PrefixIDFn("col"),
		weightFn:  ConstantWeightFn(DefaultWeight),
		loadingSD: 1,
		noise:     DefaultNoise,
		power:     DefaultVariancePower,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}

	return c
}

// WithSeed fixes the random source.
func WithSeed(seed int64) Option {
	return func(c *config) { c.seed = seed }
}

// WithIDs sets the row and column identifier schemes. Panics on nil.
func WithIDs(row, col IDFn) Option {
	if row == nil || col == nil {
		panic("synth: WithIDs(nil)")
	}

	return func(c *config) { c.rowID, c.colID = row, col }
}

// WithWeightFn sets the weight generator. Panics on nil.
func WithWeightFn(fn WeightFn) Option {
	if fn == nil {
		panic("synth: WithWeightFn(nil)")
	}

	return func(c *config) { c.weightFn = fn }
}

// WithMissing makes each cell unobserved with probability prob.
// Panics unless prob is in [0, 1).
func WithMissing(prob float64) Option {
	if !(prob >= 0 && prob < 1) {
		panic(fmt.Sprintf("synth: WithMissing: prob must be in [0,1), got %g", prob))
	}

	return func(c *config) { c.missing = prob }
}

// WithComponents plants p latent components with row loadings ~ N(0, sd²)
// and orthonormal column scores. Panics if p < 0 or sd < 0.
func WithComponents(p int, sd float64) Option {
	if p < 0 || sd < 0 {
		panic(fmt.Sprintf("synth: WithComponents: need p >= 0 and sd >= 0, got p=%d sd=%g", p, sd))
	}

	return func(c *config) { c.p, c.loadingSD = p, sd }
}

// WithRowMeans draws each row's mean from N(0, sd²). Panics if sd < 0.
func WithRowMeans(sd float64) Option {
	if sd < 0 {
		panic(fmt.Sprintf("synth: WithRowMeans: sd must be >= 0, got %g", sd))
	}

	return func(c *config) { c.meanSD = sd }
}

// WithNoise sets the noise sd at weight 1. Panics if sd < 0.
func WithNoise(sd float64) Option {
	if sd < 0 {
		panic(fmt.Sprintf("synth: WithNoise: sd must be >= 0, got %g", sd))
	}

	return func(c *config) { c.noise = sd }
}

// WithVariancePower sets the noise variance to noise²/w^power. Power 1 gives
// correctly calibrated weights; smaller powers give weights that overstate
// the precision of heavily weighted cells.
func WithVariancePower(power float64) Option {
	if math.IsNaN(power) || math.IsInf(power, 0) {
		panic("synth: WithVariancePower: power must be finite")
	}

	return func(c *config) { c.power = power }
}

// WithColumnScale multiplies the noise variance of column j by scale(j).
// Panics on nil.
func WithColumnScale(scale func(j int) float64) Option {
	if scale == nil {
		panic("synth: WithColumnScale(nil)")
	}

	return func(c *config) { c.colScale = scale }
}
