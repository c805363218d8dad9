// SPDX-License-Identifier: MIT

// Package glm fits generalized linear models with a log link by iteratively
// reweighted least squares.
//
//	log μ_i = x_i·β + offset_i
//	Var(y_i) = φ·V(μ_i)/w_i
//
// V is chosen by Family (Gamma: μ², QuasiPoisson: μ). The scale φ is the
// Pearson estimate. Only observations with positive weight take part.
package glm

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/weitrix/lsq"
	"github.com/katalvlaran/weitrix/matrix"
)

var (
	// ErrNoObservations indicates no observation has positive weight.
	ErrNoObservations = errors.New("glm: no observations with positive weight")

	// ErrNegativeResponse indicates a negative or non-finite response.
	ErrNegativeResponse = errors.New("glm: response must be finite and non-negative")

	// ErrDegenerate indicates the model cannot be fit, e.g. an all-zero response.
	ErrDegenerate = errors.New("glm: degenerate model")

	// ErrShape indicates inconsistent lengths.
	ErrShape = errors.New("glm: inconsistent data shape")
)

const (
	// DefaultTolerance bounds the relative coefficient change at convergence.
	DefaultTolerance = 1e-8
	// DefaultMaxIter bounds IRLS iterations.
	DefaultMaxIter = 100

	etaLimit = 700
)

// Observer receives one event per IRLS iteration.
type Observer interface {
	GLMIteration(iter int, change float64)
}

// Option configures Fit.
type Option func(*options)

type options struct {
	family   Family
	tol      float64
	maxIter  int
	log      zerolog.Logger
	observer Observer
}

// WithFamily selects the variance family.
func WithFamily(f Family) Option { return func(o *options) { o.family = f } }

// WithTolerance sets the convergence tolerance.
func WithTolerance(tol float64) Option { return func(o *options) { o.tol = tol } }

// WithMaxIter bounds iterations.
func WithMaxIter(n int) Option { return func(o *options) { o.maxIter = n } }

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option { return func(o *options) { o.log = log } }

// WithObserver attaches an iteration observer.
func WithObserver(obs Observer) Option { return func(o *options) { o.observer = obs } }

// Data is a regression problem. Nil Weights means unit weights, nil Offset
// means zero offset.
type Data struct {
	X       *matrix.Dense // n × p
	Y       []float64
	Weights []float64
	Offset  []float64
}

// Model is a fitted log-link GLM.
type Model struct {
	Family     Family
	Coef       []float64
	Scale      float64 // Pearson φ; NaN when residual df ≤ 0
	Rank       int
	NObs       int
	Iterations int
	Converged  bool
}

// DFResidual is NObs − Rank.
func (m *Model) DFResidual() int { return m.NObs - m.Rank }

// Predict returns exp(X·β + offset). Nil offset means zero.
func (m *Model) Predict(x *matrix.Dense, offset []float64) ([]float64, error) {
	if x.Cols() != len(m.Coef) || (offset != nil && len(offset) != x.Rows()) {
		return nil, fmt.Errorf("glm.Predict: %dx%d design for %d coefficients: %w", x.Rows(), x.Cols(), len(m.Coef), ErrShape)
	}
	out, err := matrix.MatVec(x, m.Coef)
	if err != nil {
		return nil, fmt.Errorf("glm.Predict: %w", err)
	}
	for i, eta := range out {
		if offset != nil {
			eta += offset[i]
		}
		out[i] = math.Exp(clampEta(eta))
	}

	return out, nil
}

func clampEta(eta float64) float64 {
	return math.Max(-etaLimit, math.Min(etaLimit, eta))
}

// Fit estimates β by IRLS.
//
// Implementation:
//   - Stage 1: validate; μ starts at (y + ȳ)/2 where ȳ is the weighted mean.
//   - Stage 2: solve the weighted least-squares problem for the working
//     response z = η − offset + (y − μ)/μ with working weights w·μ²/V(μ).
//   - Stage 3: stop when ‖Δβ‖∞ ≤ tol·(‖β‖∞ + tol); otherwise repeat.
//
// Errors: ErrShape, ErrNegativeResponse, ErrNoObservations, ErrDegenerate.
// Non-convergence returns the last estimate with Converged false.
func Fit(ctx context.Context, d Data, opts ...Option) (*Model, error) {
	o := options{family: Gamma, tol: DefaultTolerance, maxIter: DefaultMaxIter, log: zerolog.Nop()}
	for _, set := range opts {
		if set != nil {
			set(&o)
		}
	}
	if d.X == nil {
		return nil, fmt.Errorf("glm.Fit: %w", matrix.ErrNilMatrix)
	}
	n, p := d.X.Rows(), d.X.Cols()
	if len(d.Y) != n || (d.Weights != nil && len(d.Weights) != n) || (d.Offset != nil && len(d.Offset) != n) {
		return nil, fmt.Errorf("glm.Fit: %w", ErrShape)
	}
	w := d.Weights
	if w == nil {
		w = make([]float64, n)
		floats.AddConst(1, w)
	}
	off := d.Offset
	if off == nil {
		off = make([]float64, n)
	}

	var sw, swy float64
	nObs := 0
	for i := 0; i < n; i++ {
		if !(w[i] > 0) {
			continue
		}
		if d.Y[i] < 0 || math.IsNaN(d.Y[i]) || math.IsInf(d.Y[i], 0) {
			return nil, fmt.Errorf("glm.Fit: row %d: y=%g: %w", i, d.Y[i], ErrNegativeResponse)
		}
		if math.IsNaN(off[i]) || math.IsInf(off[i], 0) {
			return nil, fmt.Errorf("glm.Fit: row %d: offset=%g: %w", i, off[i], ErrDegenerate)
		}
		sw += w[i]
		swy += w[i] * d.Y[i]
		nObs++
	}
	if nObs == 0 {
		return nil, fmt.Errorf("glm.Fit: %w", ErrNoObservations)
	}
	ybar := swy / sw
	if ybar == 0 {
		return nil, fmt.Errorf("glm.Fit: mean response is zero: %w", ErrDegenerate)
	}

	mu := make([]float64, n)
	eta := make([]float64, n)
	for i := range mu {
		mu[i] = (d.Y[i] + ybar) / 2
		if !(w[i] > 0) {
			mu[i] = ybar
		}
		eta[i] = math.Log(mu[i])
	}

	m := &Model{Family: o.family, Coef: make([]float64, p), NObs: nObs, Scale: math.NaN()}
	solver := lsq.NewSolver(p, 0)
	z := make([]float64, n)
	ww := make([]float64, n)
	a := d.X.RawData()
	var change float64
	for iter := 1; iter <= o.maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("glm.Fit: %w", err)
		}
		for i := 0; i < n; i++ {
			if !(w[i] > 0) {
				ww[i] = 0
				continue
			}
			z[i] = eta[i] - off[i] + (d.Y[i]-mu[i])/mu[i]
			ww[i] = w[i] * mu[i] * mu[i] / o.family.Variance(mu[i])
		}
		res, err := solver.Solve(a, z, ww)
		if err != nil {
			return nil, fmt.Errorf("glm.Fit: %w", err)
		}
		change = floats.Distance(res.Beta, m.Coef, math.Inf(1))
		scale := floats.Norm(res.Beta, math.Inf(1))
		copy(m.Coef, res.Beta)
		m.Rank = res.Rank
		m.Iterations = iter

		for i := 0; i < n; i++ {
			eta[i] = clampEta(floats.Dot(a[i*p:(i+1)*p], m.Coef) + off[i])
			mu[i] = math.Exp(eta[i])
		}
		if o.observer != nil {
			o.observer.GLMIteration(iter, change)
		}
		o.log.Debug().Int("iter", iter).Float64("change", change).Msg("glm iteration")
		if iter > 1 && change <= o.tol*(scale+o.tol) {
			m.Converged = true
			break
		}
	}
	for i := range mu {
		if w[i] > 0 && (mu[i] == 0 || math.IsInf(mu[i], 0)) {
			return nil, fmt.Errorf("glm.Fit: fitted mean left the representable range: %w", ErrDegenerate)
		}
	}
	if !m.Converged {
		o.log.Warn().Int("max_iter", o.maxIter).Float64("change", change).Msg("glm did not converge; returning last estimate")
	}

	if df := nObs - m.Rank; df > 0 {
		var pearson float64
		for i := 0; i < n; i++ {
			if w[i] > 0 {
				r := d.Y[i] - mu[i]
				pearson += w[i] * r * r / o.family.Variance(mu[i])
			}
		}
		m.Scale = pearson / float64(df)
	}

	return m, nil
}
