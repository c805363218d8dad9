// SPDX-License-Identifier: MIT

// Package design turns small model formulas into numeric design matrices.
//
// Grammar (whitespace is ignored):
//
//	formula := [ "~" ] [ "-" ] term { ("+" | "-") term }
//	term    := "0" | "1" | name | call
//	call    := "log(" expr ")" | "sqrt(" expr ")"
//	         | "spline(" expr "," int ")" | "poly(" expr "," int ")"
//	         | "factor(" name ")" | "offset(" expr ")"
//	expr    := [ "-" ] ( number | name | "log(" expr ")" | "sqrt(" expr ")" )
//
// The intercept is included unless the formula contains "0" or "-1".
// A bare name becomes one numeric column or, for categorical covariates,
// treatment-coded indicator columns (first sorted level is the baseline
// when an intercept is present). offset(...) terms add to the linear
// predictor and produce no column.
//
// Names resolve against a Frame, which also fixes the level:
//
//	Column  one entry per matrix column (engine designs)
//	Row     one entry per matrix row (dispersion trends)
//	Cell    one entry per observed cell (element-wise trends); adds the
//	        special names row, col (identity factors) and weight
//
// Resolution happens in Bind, before any fitting, so an unknown or
// unavailable name fails at configuration time. Bind also freezes data
// dependent state (spline knots, polynomial scaling, factor levels) so a
// Bound formula evaluates identically on new frames.
package design
