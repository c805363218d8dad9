// SPDX-License-Identifier: MIT

package weitrix

import (
	"fmt"
	"math"

	"github.com/katalvlaran/weitrix/matrix"
)

// RegressionInput is the values+weights structure consumed by downstream
// weighted-regression and empirical-Bayes testing tools.
type RegressionInput struct {
	E       *matrix.Dense // measurements, unchanged
	Weights *matrix.Dense // final weights, unchanged
	RowIDs  []string
	ColIDs  []string
	// DFPrior is the prior degrees of freedom; NaN when none was supplied.
	DFPrior float64
	// DF holds residual degrees of freedom per row, nil when unknown.
	DF []float64
}

// ExportOption configures Export.
type ExportOption func(*RegressionInput)

// WithDFPrior attaches a prior degrees-of-freedom value.
func WithDFPrior(df float64) ExportOption {
	return func(r *RegressionInput) { r.DFPrior = df }
}

// WithRowDF attaches per-row residual degrees of freedom, usually the
// degrees_of_freedom column written by calibration.
func WithRowDF(df []float64) ExportOption {
	return func(r *RegressionInput) {
		r.DF = make([]float64, len(df))
		copy(r.DF, df)
	}
}

// Export converts p for a downstream regression tool. Measurements and
// weights pass through unchanged.
//
// Errors: ErrNonFiniteObserved when a positive-weight cell holds NaN or ±Inf;
// ErrIDCount when a row df slice has the wrong length.
func Export(p *Pair, opts ...ExportOption) (*RegressionInput, error) {
	if err := p.CheckObserved(); err != nil {
		return nil, pairErrorf("Export", err)
	}
	out := &RegressionInput{
		E:       p.X(),
		Weights: p.W(),
		RowIDs:  p.RowIDs(),
		ColIDs:  p.ColIDs(),
		DFPrior: math.NaN(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(out)
		}
	}
	if out.DF != nil && len(out.DF) != p.Rows() {
		return nil, pairErrorf("Export", fmt.Errorf("df length %d for %d rows: %w", len(out.DF), p.Rows(), ErrIDCount))
	}

	return out, nil
}
