// SPDX-License-Identifier: MIT

// Package components fits weighted, missing-data-tolerant "components of
// variation": a low-rank factorization
//
//	X ≈ Row × Colᵀ
//
// where the first k columns of Col are a fixed design matrix (known column
// covariates such as an intercept or treatment group) and the remaining p
// columns are discovered from the data.
//
// Algorithm (alternating weighted least squares):
//
//	Stage 1: validate the configuration (design rows, k+p identifiability,
//	         design rank, finite observed measurements).
//	Stage 2: seed the p novel score columns from the SVD of a row-mean-filled,
//	         design-residualized copy of X.
//	Stage 3: fitRows solves one weighted least-squares problem per row over
//	         its observed cells; fitCols solves one per column for the novel
//	         scores with the design block held fixed. Novel scores are kept
//	         orthonormal and orthogonal to the design, which leaves the fitted
//	         subspace unchanged.
//	Stage 4: stop when the relative decrease of the weighted RSS falls below
//	         the tolerance, or at MaxIter with a warning and the best fit.
//	Stage 5: rotate the novel block. Varimax by default; otherwise principal
//	         axes ordered by descending explained variance. Each axis is
//	         oriented so the sum of cubed loadings is non-negative.
//
// Cells with weight 0 never influence the result, whatever their value.
//
// Determinism:
//
//	Seeding, the random fallback for degenerate score columns and every
//	rotation are deterministic given WithSeed. Parallel executors change
//	scheduling only; results are assembled by index.
//
// Complexity:
//
//	Each iteration costs O(n_rows·n_cols·(k+p)²) for the two solve passes.
package components
