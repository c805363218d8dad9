// SPDX-License-Identifier: MIT

package calibrate

import (
	"github.com/rs/zerolog"

	"github.com/katalvlaran/weitrix/dispersion"
	"github.com/katalvlaran/weitrix/glm"
	"github.com/katalvlaran/weitrix/parallel"
)

// Diagnostic row-table columns written by Trend.
const (
	ColDF               = "degrees_of_freedom"
	ColDispersionBefore = "dispersion_before"
	ColDispersionTrend  = "dispersion_trend"
	ColDispersionAfter  = "dispersion_after"
)

// DefaultFamily is the variance family of the row trend.
const DefaultFamily = glm.Gamma

const panicBlockRows = "calibrate: WithBlockRows: n must be >= 0"

// Option configures Trend and All.
type Option func(*options)

type options struct {
	family      glm.Family
	exec        parallel.Executor
	blockRows   int
	log         zerolog.Logger
	observer    glm.Observer
	glmMaxIter  int
	dfCorrected bool
}

// WithFamily sets the GLM variance family of Trend. All always uses Gamma.
func WithFamily(f glm.Family) Option { return func(o *options) { o.family = f } }

// WithExecutor runs row blocks on ex.
func WithExecutor(ex parallel.Executor) Option { return func(o *options) { o.exec = ex } }

// WithBlockRows sets the row block size; 0 selects the default.
// Panics if n < 0.
func WithBlockRows(n int) Option {
	if n < 0 {
		panic(panicBlockRows)
	}

	return func(o *options) { o.blockRows = n }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option { return func(o *options) { o.log = log } }

// WithObserver receives GLM iteration events.
func WithObserver(obs glm.Observer) Option { return func(o *options) { o.observer = obs } }

// WithMaxIter bounds the GLM iterations; 0 keeps the glm default.
func WithMaxIter(n int) Option { return func(o *options) { o.glmMaxIter = n } }

// WithResidualCorrection makes All scale each squared residual by n_i/ν_i
// (observed cells over residual degrees of freedom of its row), so the
// response estimates the variance rather than its downward-biased version.
func WithResidualCorrection(on bool) Option { return func(o *options) { o.dfCorrected = on } }

func gather(user []Option) options {
	o := options{family: DefaultFamily, exec: parallel.Serial{}, log: zerolog.Nop()}
	for _, set := range user {
		if set != nil {
			set(&o)
		}
	}

	return o
}

func (o *options) glmOptions(family glm.Family) []glm.Option {
	out := []glm.Option{glm.WithFamily(family), glm.WithLogger(o.log)}
	if o.observer != nil {
		out = append(out, glm.WithObserver(o.observer))
	}
	if o.glmMaxIter > 0 {
		out = append(out, glm.WithMaxIter(o.glmMaxIter))
	}

	return out
}

func (o *options) dispersionOptions() []dispersion.Option {
	return []dispersion.Option{
		dispersion.WithExecutor(o.exec),
		dispersion.WithBlockRows(o.blockRows),
		dispersion.WithLogger(o.log),
	}
}
