// SPDX-License-Identifier: MIT

// Package dispersion estimates the per-row weighted residual variance left
// by a components fit.
//
// For row i with observed cells W_i (weight > 0) and fitted values from
// Row×Colᵀ:
//
//	ν_i          = |W_i| − (k+p)
//	dispersion_i = Σ_{j∈W_i} w_ij·(x_ij − fitted_ij)² / ν_i
//
// Rows with ν_i ≤ 0 are unavailable (NaN), not an error. The estimate is
// rotation-invariant because it only depends on the reconstruction.
package dispersion

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/katalvlaran/weitrix/components"
	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/parallel"
	"github.com/katalvlaran/weitrix/weitrix"
)

// ErrShape indicates the components do not belong to the pair.
var ErrShape = errors.New("dispersion: components do not match pair")

// Option configures Estimate and Residuals.
type Option func(*options)

type options struct {
	exec      parallel.Executor
	blockRows int
	log       zerolog.Logger
}

// WithExecutor runs the row blocks on ex.
func WithExecutor(ex parallel.Executor) Option {
	return func(o *options) { o.exec = ex }
}

// WithBlockRows sets the row block size; 0 selects the default.
func WithBlockRows(n int) Option {
	return func(o *options) { o.blockRows = n }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

func gather(user []Option) options {
	o := options{exec: parallel.Serial{}, log: zerolog.Nop()}
	for _, set := range user {
		if set != nil {
			set(&o)
		}
	}

	return o
}

// Result holds one entry per row.
type Result struct {
	// Dispersion is NaN where unavailable.
	Dispersion []float64
	// DF is the residual degrees of freedom ν, floored at 0.
	DF []float64
	// WeightedRSS is Σ w·ε² per row.
	WeightedRSS []float64
}

// Available reports whether row i has a dispersion estimate.
func (r *Result) Available(i int) bool { return !math.IsNaN(r.Dispersion[i]) }

// NAvailable counts rows with an estimate.
func (r *Result) NAvailable() int {
	n := 0
	for i := range r.Dispersion {
		if r.Available(i) {
			n++
		}
	}

	return n
}

type block struct {
	disp, df, rss []float64
}

// Estimate computes the dispersion of every row of pair under comp.
func Estimate(ctx context.Context, pair *weitrix.Pair, comp *components.Components, opts ...Option) (*Result, error) {
	if err := comp.Check(pair); err != nil {
		return nil, fmt.Errorf("dispersion.Estimate: %w: %w", ErrShape, err)
	}
	o := gather(opts)
	params := comp.NAxes()

	parts, err := parallel.MapRows(ctx, o.exec, pair, o.blockRows,
		func(_ context.Context, b parallel.Block, part *weitrix.Pair) (block, error) {
			out := block{
				disp: make([]float64, b.Len()),
				df:   make([]float64, b.Len()),
				rss:  make([]float64, b.Len()),
			}
			var fitted []float64
			for i := 0; i < part.Rows(); i++ {
				fitted = comp.FittedRow(b.Lo+i, fitted)
				x, w := part.XRow(i), part.WRow(i)
				nObs := 0
				var rss float64
				for j, wj := range w {
					if wj > 0 {
						e := x[j] - fitted[j]
						rss += wj * e * e
						nObs++
					}
				}
				nu := nObs - params
				out.rss[i] = rss
				if nu > 0 {
					out.df[i] = float64(nu)
					out.disp[i] = rss / float64(nu)
				} else {
					out.disp[i] = math.NaN()
				}
			}

			return out, nil
		})
	if err != nil {
		return nil, fmt.Errorf("dispersion.Estimate: %w", err)
	}

	res := &Result{}
	for _, p := range parts {
		res.Dispersion = append(res.Dispersion, p.disp...)
		res.DF = append(res.DF, p.df...)
		res.WeightedRSS = append(res.WeightedRSS, p.rss...)
	}
	if res.Dispersion == nil {
		res.Dispersion, res.DF, res.WeightedRSS = []float64{}, []float64{}, []float64{}
	}
	o.log.Debug().Int("rows", pair.Rows()).Int("available", res.NAvailable()).Msg("dispersion estimated")

	return res, nil
}

// Residuals returns x − Row×Colᵀ, with NaN in unobserved cells.
func Residuals(ctx context.Context, pair *weitrix.Pair, comp *components.Components, opts ...Option) (*matrix.Dense, error) {
	if err := comp.Check(pair); err != nil {
		return nil, fmt.Errorf("dispersion.Residuals: %w: %w", ErrShape, err)
	}
	o := gather(opts)
	out, err := matrix.NewDense(pair.Rows(), pair.Cols(), matrix.WithNoValidateNaNInf())
	if err != nil {
		return nil, fmt.Errorf("dispersion.Residuals: %w", err)
	}
	_, err = parallel.MapRows(ctx, o.exec, pair, o.blockRows,
		func(_ context.Context, b parallel.Block, part *weitrix.Pair) (struct{}, error) {
			var fitted []float64
			for i := 0; i < part.Rows(); i++ {
				fitted = comp.FittedRow(b.Lo+i, fitted)
				dst := out.RawRowView(b.Lo + i)
				x, w := part.XRow(i), part.WRow(i)
				for j, wj := range w {
					if wj > 0 {
						dst[j] = x[j] - fitted[j]
					} else {
						dst[j] = math.NaN()
					}
				}
			}

			return struct{}{}, nil
		})
	if err != nil {
		return nil, fmt.Errorf("dispersion.Residuals: %w", err)
	}

	return out, nil
}
