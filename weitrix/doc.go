// SPDX-License-Identifier: MIT

// Package weitrix defines Pair, a measurement matrix paired with a weight
// matrix of the same shape, plus row and column side-tables.
//
// Weight semantics:
//
//	w > 0   the cell is observed; w is its relative precision
//	        ("equivalent replicate count").
//	w == 0  the cell is missing; its measurement is ignored everywhere and
//	        may hold anything, including NaN.
//
// A Pair is immutable. Calibration returns a new Pair with new weights and
// new side-tables while measurements and identifiers are carried over.
//
// The package also covers the two outer edges of the pipeline: Export, which
// produces the values+weights+df-prior structure consumed by downstream
// weighted regression tools, and Randomize, which draws a null pair with the
// same weight structure.
package weitrix
