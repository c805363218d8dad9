// SPDX-License-Identifier: MIT

// Package calibrate rescales the weights of a pair so that residual
// dispersion no longer depends on known covariates.
//
// Two variants are provided:
//
//	Trend  one example per row: response = row dispersion, weights = residual
//	       degrees of freedom, predictors = a formula over row covariates plus
//	       the derived names total_weight and mu. Each row's weights are
//	       multiplied by 1/trend; rows without a dispersion get weight zero.
//	All    one example per observed cell: response = squared residual,
//	       predictors = a formula over row and column covariates, the identity
//	       factors row and col, the current weight and the fitted value mu.
//	       Every observed cell gets weight 1/fitted.
//
// Both fit a log-link GLM (package glm) and return a new Pair; measurements
// are never modified. Trend appends the diagnostics degrees_of_freedom,
// dispersion_before, dispersion_trend and dispersion_after to the row table.
//
// All builds a training frame with one entry per observed cell, so its
// memory use grows as rows × columns. It suits bulk matrices, not very large
// cell-level ones.
//
// TrendSpread summarises how much dispersion still moves with a covariate,
// using a weighted isotonic regression.
package calibrate
