// SPDX-License-Identifier: MIT

package components

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/katalvlaran/weitrix/lsq"
	"github.com/katalvlaran/weitrix/parallel"
)

const (
	// DefaultTolerance is the relative RSS decrease below which iteration stops.
	DefaultTolerance = 1e-5

	// DefaultMaxIter bounds the number of alternating passes.
	DefaultMaxIter = 1000

	// DefaultVarimax enables varimax rotation of the novel block.
	DefaultVarimax = true

	// DefaultSeed seeds the random fallback for degenerate score columns.
	DefaultSeed int64 = 563

	varimaxEps     = 1e-9
	varimaxMaxIter = 1000
)

const (
	panicTolerance = "components: WithTolerance: tol must be finite and >= 0"
	panicMaxIter   = "components: WithMaxIter: n must be >= 1"
	panicBlockRows = "components: WithBlockRows: n must be >= 0"
)

// Observer receives progress events. Implementations must be safe for use
// from the goroutine that called Fit.
type Observer interface {
	IterationDone(iter int, rss float64)
	FitDone(p, iterations int, converged bool, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) IterationDone(int, float64)            {}
func (nopObserver) FitDone(int, int, bool, time.Duration) {}

// Option configures Fit and Explore.
type Option func(*Options)

// Options is the resolved configuration.
type Options struct {
	tol         float64
	maxIter     int
	varimax     bool
	seed        int64
	rcond       float64
	blockRows   int
	exec        parallel.Executor
	log         zerolog.Logger
	observer    Observer
	designNames []string
}

// WithTolerance sets the relative convergence tolerance.
func WithTolerance(tol float64) Option {
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol < 0 {
		panic(panicTolerance)
	}

	return func(o *Options) { o.tol = tol }
}

// WithMaxIter bounds the number of iterations.
func WithMaxIter(n int) Option {
	if n < 1 {
		panic(panicMaxIter)
	}

	return func(o *Options) { o.maxIter = n }
}

// WithVarimax toggles varimax rotation.
func WithVarimax(on bool) Option {
	return func(o *Options) { o.varimax = on }
}

// WithSeed fixes the random source used for degenerate columns.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.seed = seed }
}

// WithRCond sets the pseudo-inverse cutoff of every least-squares solve.
func WithRCond(rcond float64) Option {
	return func(o *Options) { o.rcond = rcond }
}

// WithExecutor runs row and column passes on ex.
func WithExecutor(ex parallel.Executor) Option {
	return func(o *Options) { o.exec = ex }
}

// WithBlockRows sets the partition size for row and column passes.
// 0 selects parallel.DefaultBlockRows.
func WithBlockRows(n int) Option {
	if n < 0 {
		panic(panicBlockRows)
	}

	return func(o *Options) { o.blockRows = n }
}

// WithLogger routes progress events to log. Per-iteration events are Debug.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Options) { o.log = log }
}

// WithObserver attaches a telemetry observer.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithDesignNames labels the design columns. Missing names default to D1..Dk.
func WithDesignNames(names ...string) Option {
	return func(o *Options) { o.designNames = append([]string(nil), names...) }
}

func gatherOptions(user ...Option) Options {
	o := Options{
		tol:      DefaultTolerance,
		maxIter:  DefaultMaxIter,
		varimax:  DefaultVarimax,
		seed:     DefaultSeed,
		rcond:    lsq.DefaultRCond,
		exec:     parallel.Serial{},
		log:      zerolog.Nop(),
		observer: nopObserver{},
	}
	for _, set := range user {
		if set != nil {
			set(&o)
		}
	}
	if o.exec == nil {
		o.exec = parallel.Serial{}
	}

	return o
}
