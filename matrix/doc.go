// SPDX-License-Identifier: MIT

// Package matrix provides the dense numeric storage shared by every weitrix
// package: a row-major Dense type with safe accessors, a single numeric policy
// (finite-value validation), centralized validators, and a small set of
// deterministic kernels (Mul, MulT, MatVec, Gram, Jacobi Eigen) plus
// weighted row statistics.
//
// What & Why:
//
//	Measurement matrices legitimately hold NaN in cells whose weight is zero,
//	while weight and design matrices must be finite. The numeric policy is
//	therefore a per-matrix switch (on by default, off with WithNoValidateNaNInf)
//	instead of a global flag.
//
// Determinism:
//
//	All loops run in fixed i→j order; no map iteration and no randomness.
//
// Complexity quicksheet:
//
//	NewDense O(r*c); At/Set O(1); Clone O(r*c); Mul O(r*k*c);
//	Eigen O(maxIter*n^2) per sweep step.
//
// Interop:
//
//	Gonum converts a *Dense to a *mat.Dense sharing the same backing slice so
//	SVD/QR routines from gonum can run on package data without copying.
package matrix
