// SPDX-License-Identifier: MIT

// Package weitrix is a toolkit for weighted measurement matrices: a matrix
// of observations paired with a same-shaped matrix of non-negative weights,
// where weight 0 marks a missing value.
//
// 🚀 What is in the box?
//
//	• Pairs: weitrix.Pair with row and column side-tables, row binding,
//	  randomized null datasets and export for downstream regression
//	• Components: weighted alternating least squares over a fixed design
//	  plus p novel components, varimax rotation, and Explore for p = 0..max
//	• Dispersion: per-row weighted residual variance and degrees of freedom
//	• Calibration: a log-link GLM of dispersion on a formula over row
//	  covariates (Trend) or of squared residuals over cells (All)
//	• Formulas: "~ spline(log(total_weight), 3)", "~ col + log(weight)", ...
//	• Row-parallel execution on a bounded worker pool
//
// ✨ Why weitrix?
//
//   - Missing data handled by weight, never by imputation
//   - Deterministic: fixed seeds and a fixed reduction order, serial or parallel
//   - Weights that mean something: after calibration, dispersion is flat
//
// Packages:
//
//	weitrix/     Pair, Randomize, Export
//	components/  Fit, Explore, ExploreRandomized
//	dispersion/  Estimate, Residuals
//	calibrate/   Trend, All, Isotonic, TrendSpread
//	design/      formula parsing and binding
//	glm/         IRLS for Gamma and quasi-Poisson log-link models
//	lsq/         weighted least squares with a truncated pseudo-inverse
//	parallel/    row blocks and executors
//	matrix/      dense storage, validators and kernels
//	table/       side-tables keyed by identifiers
//	synth/       synthetic pairs with planted components
//
// The weitrix command (cmd/weitrix) drives all of the above from TSV files.
//
// Quick example:
//
//	pair, _ := weitrix.FromRows(x, w)
//	comp, _ := components.Fit(ctx, pair, components.Intercept(pair.Cols()), 2)
//	calibrated, model, _ := calibrate.Trend(ctx, pair, comp, "~ log(total_weight)")
//	fmt.Println(model)
package weitrix
